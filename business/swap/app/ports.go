// Package app contains swap sizing services and port definitions for the swap context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/business/swap/domain"
)

// SwapDataProvider quotes a swap and returns executable calldata.
type SwapDataProvider interface {
	// GetSwapData quotes amount of from into to. slippage is a fraction (0.01 = 1%).
	GetSwapData(ctx context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error)
}

// SwapDataFunc adapts a function to SwapDataProvider.
type SwapDataFunc func(ctx context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error)

func (f SwapDataFunc) GetSwapData(ctx context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error) {
	return f(ctx, from, to, amount, slippage)
}
