// Package swap provides swap quotes and calldata for strategies.
package swap

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/business/swap/app"
	swapDI "github.com/fd1az/dma-strategies/business/swap/di"
	"github.com/fd1az/dma-strategies/business/swap/infra/mockexchange"
	"github.com/fd1az/dma-strategies/business/swap/infra/oneinch"
	"github.com/fd1az/dma-strategies/internal/config"
	"github.com/fd1az/dma-strategies/internal/di"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/monolith"
	"github.com/fd1az/dma-strategies/internal/network"
)

// Module implements the swap bounded context.
type Module struct{}

// RegisterServices registers the swap provider selected by configuration.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, swapDI.SwapDataProvider, func(sr di.ServiceRegistry) app.SwapDataProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		net := sr.Get("network").(*network.Network)

		provider, err := newProvider(cfg, net, log)
		if err != nil {
			panic("failed to create swap provider: " + err.Error())
		}
		return provider
	})
	return nil
}

func newProvider(cfg *config.Config, net *network.Network, log logger.LoggerInterface) (app.SwapDataProvider, error) {
	swapAddress, err := net.Address(network.Swap)
	if err != nil {
		return nil, err
	}

	if cfg.Strategy.SwapProvider == "mock" {
		ex, err := mockexchange.New(swapAddress)
		if err != nil {
			return nil, err
		}
		for symbol, usd := range cfg.Strategy.MockPrices {
			token, err := net.Token(symbol)
			if err != nil {
				// the default table lists tokens some networks do not carry
				continue
			}
			ex.SetPrice(token, decimal.NewFromFloat(usd))
		}
		return ex, nil
	}

	return oneinch.NewClient(oneinch.Config{
		BaseURL:           cfg.OneInch.BaseURL,
		APIKey:            cfg.OneInch.APIKey,
		Version:           cfg.OneInch.Version,
		ChainID:           net.ChainID(),
		SwapAddress:       swapAddress,
		Protocols:         cfg.OneInch.Protocols,
		RequestsPerMinute: cfg.OneInch.RequestsPerMinute,
		Timeout:           cfg.OneInch.Timeout,
	}, log)
}

// Startup initializes the swap module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "swap module started", "provider", mono.Config().Strategy.SwapProvider)
	return nil
}
