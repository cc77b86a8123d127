// Package di contains dependency injection tokens for the protocol context.
package di

import (
	"github.com/fd1az/dma-strategies/business/protocol/app"
	"github.com/fd1az/dma-strategies/internal/di"
)

// Public service tokens - exposed to other modules
var (
	FetcherFactory = di.NewToken[app.FetcherFactory]("protocol.FetcherFactory")
)

func GetFetcherFactory(c di.ServiceRegistry) app.FetcherFactory {
	return di.GetToken(c, FetcherFactory)
}
