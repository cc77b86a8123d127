// Package strategy implements the open, adjust, close and borrow strategies on top of the
// protocol readers, the simulator and the operation builders.
package strategy

import (
	"context"

	blockchainDI "github.com/fd1az/dma-strategies/business/blockchain/di"
	protocolDI "github.com/fd1az/dma-strategies/business/protocol/di"
	simApp "github.com/fd1az/dma-strategies/business/simulation/app"
	"github.com/fd1az/dma-strategies/business/strategy/app"
	strategyDI "github.com/fd1az/dma-strategies/business/strategy/di"
	swapDI "github.com/fd1az/dma-strategies/business/swap/di"
	"github.com/fd1az/dma-strategies/internal/config"
	"github.com/fd1az/dma-strategies/internal/di"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/monolith"
	"github.com/fd1az/dma-strategies/internal/network"
)

// Module implements the strategy bounded context. It depends on the blockchain, protocol
// and swap modules.
type Module struct{}

// RegisterServices registers all strategy services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Simulator (private - internal dependency)
	di.RegisterToken(c, strategyDI.Simulator, func(sr di.ServiceRegistry) app.Simulator {
		log := sr.Get("logger").(logger.LoggerInterface)
		net := sr.Get("network").(*network.Network)

		sim, err := simApp.NewSimulator(swapDI.GetSwapDataProvider(sr), net.SwapAddress, log)
		if err != nil {
			panic("failed to create simulator: " + err.Error())
		}
		return sim
	})

	// Register Service (public - used by the HTTP API and the CLI)
	di.RegisterToken(c, strategyDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		net := sr.Get("network").(*network.Network)

		var gas app.GasEstimator
		if cfg.Strategy.EstimateGas {
			gas = blockchainDI.GetGasService(sr)
		}

		svc, err := app.NewService(
			net,
			protocolDI.GetFetcherFactory(sr),
			strategyDI.GetSimulator(sr),
			gas,
			app.Config{Slippage: cfg.Strategy.SlippageDecimal(), EstimateGas: cfg.Strategy.EstimateGas},
			log,
		)
		if err != nil {
			panic("failed to create strategy service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup resolves the service so wiring errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := strategyDI.GetService(mono.Services())
	mono.Logger().Info(ctx, "strategy module started", "network", string(svc.Network().Name()))
	return nil
}
