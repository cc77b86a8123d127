// Package blockchain implements gas pricing for built transactions.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dma-strategies/business/blockchain/app"
	blockchainDI "github.com/fd1az/dma-strategies/business/blockchain/di"
	"github.com/fd1az/dma-strategies/business/blockchain/infra/ethereum"
	"github.com/fd1az/dma-strategies/internal/di"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		client := sr.Get("ethClient").(*ethclient.Client)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := ethereum.NewGasOracle(client, ethereum.DefaultGasOracleConfig(), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register GasService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.GasService, func(sr di.ServiceRegistry) *app.GasService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewGasService(blockchainDI.GetGasOracle(sr), ethereum.DefaultGasOracleConfig().DefaultGas, log)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "blockchain module started")
	return nil
}
