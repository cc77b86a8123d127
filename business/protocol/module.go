// Package protocol reads lending protocol state from chain.
package protocol

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dma-strategies/business/protocol/app"
	protocolDI "github.com/fd1az/dma-strategies/business/protocol/di"
	"github.com/fd1az/dma-strategies/business/protocol/infra"
	"github.com/fd1az/dma-strategies/internal/di"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/monolith"
	"github.com/fd1az/dma-strategies/internal/network"
)

// Module implements the protocol bounded context.
type Module struct{}

// RegisterServices registers the fetcher factory.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, protocolDI.FetcherFactory, func(sr di.ServiceRegistry) app.FetcherFactory {
		client := sr.Get("ethClient").(*ethclient.Client)
		log := sr.Get("logger").(logger.LoggerInterface)
		net := sr.Get("network").(*network.Network)
		return infra.NewFactory(client, net, log)
	})
	return nil
}

// Startup initializes the protocol module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "protocol module started", "network", string(mono.Network().Name()))
	return nil
}
