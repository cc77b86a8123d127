// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/dma-strategies/business/blockchain/app"
	"github.com/fd1az/dma-strategies/internal/di"
)

// Public service tokens - exposed to other modules
var (
	GasService = di.NewToken[*app.GasService]("blockchain.GasService")
)

// Private dependency tokens - internal to blockchain module
var (
	GasOracle = di.NewToken[app.GasOracle]("blockchain:gasOracle")
)

// Helper functions for type-safe access
func GetGasService(c di.ServiceRegistry) *app.GasService {
	return di.GetToken(c, GasService)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
