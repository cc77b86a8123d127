// Package di contains dependency injection tokens for the swap context.
package di

import (
	"github.com/fd1az/dma-strategies/business/swap/app"
	"github.com/fd1az/dma-strategies/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SwapDataProvider = di.NewToken[app.SwapDataProvider]("swap.SwapDataProvider")
)

func GetSwapDataProvider(c di.ServiceRegistry) app.SwapDataProvider {
	return di.GetToken(c, SwapDataProvider)
}
