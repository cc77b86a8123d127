// Package di contains dependency injection tokens for the strategy context.
package di

import (
	"github.com/fd1az/dma-strategies/business/strategy/app"
	"github.com/fd1az/dma-strategies/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("strategy.Service")
)

// Private dependency tokens - internal to strategy module
var (
	Simulator = di.NewToken[app.Simulator]("strategy:simulator")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetSimulator(c di.ServiceRegistry) app.Simulator {
	return di.GetToken(c, Simulator)
}
