// Package app defines the ports through which strategies read lending protocol state.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// DataFetcher reads reserve parameters, balances and oracle prices from one protocol.
type DataFetcher interface {
	Protocol() domain.Protocol

	FetchReserveData(ctx context.Context, token *asset.Asset) (domain.ReserveData, error)
	FetchUserReserveData(ctx context.Context, token *asset.Asset, proxy common.Address) (domain.UserReserveData, error)

	// FetchAssetPrice returns the price in the oracle's base currency.
	FetchAssetPrice(ctx context.Context, token *asset.Asset) (decimal.Decimal, error)

	// FetchEModeCategoryData returns CodeEModeUnsupported on protocols without e-mode.
	FetchEModeCategoryData(ctx context.Context, categoryID uint8) (domain.EModeCategory, error)
}

// MarketReader is implemented by fetchers bound to a single market.
type MarketReader interface {
	FetchMarketParams(ctx context.Context) (domain.MarketParams, error)
}

// MarketRef selects a MorphoBlue market. The pooled protocols ignore it.
type MarketRef struct {
	ID   common.Hash
	Loan *asset.Asset
}

// FetcherFactory hands out a DataFetcher for a protocol on the configured network.
type FetcherFactory interface {
	Fetcher(p domain.Protocol, market MarketRef) (DataFetcher, error)
}
