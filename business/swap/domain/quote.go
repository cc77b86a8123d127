package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// Quote is a swap quote with the calldata needed to execute it.
type Quote struct {
	FromTokenAddress common.Address
	ToTokenAddress   common.Address
	FromTokenAmount  *big.Int
	ToTokenAmount    *big.Int
	MinToTokenAmount *big.Int
	ExchangeCalldata []byte
	// ExchangeAddress is the aggregator router the calldata targets.
	ExchangeAddress common.Address
	Source          string
}

// Validate rejects quotes missing amounts or with a floor above the quoted output.
func (q *Quote) Validate() error {
	if q == nil {
		return apperror.Validation(apperror.CodeSwapDataMissing, "nil quote")
	}
	if q.FromTokenAmount == nil || q.ToTokenAmount == nil || q.MinToTokenAmount == nil {
		return apperror.New(apperror.CodeInvalidQuote, apperror.WithContext("missing amounts"))
	}
	if q.FromTokenAmount.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidQuote, apperror.WithContext("non-positive from amount"))
	}
	if q.MinToTokenAmount.Cmp(q.ToTokenAmount) > 0 {
		return apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("min %s above quoted %s", q.MinToTokenAmount, q.ToTokenAmount)))
	}
	return nil
}

// MarketPrice is how many whole `to` tokens one whole `from` token buys at this quote.
func (q *Quote) MarketPrice(from, to *asset.Asset) decimal.Decimal {
	if q.FromTokenAmount == nil || q.FromTokenAmount.Sign() == 0 {
		return decimal.Zero
	}
	in := decimal.NewFromBigInt(q.FromTokenAmount, -int32(from.Decimals()))
	out := decimal.NewFromBigInt(q.ToTokenAmount, -int32(to.Decimals()))
	return out.DivRound(in, 18)
}

// MinToTokenAmountFor applies slippage (a fraction) to a quoted output, rounding down.
func MinToTokenAmountFor(toTokenAmount *big.Int, slippage decimal.Decimal) *big.Int {
	floor := decimal.NewFromBigInt(toTokenAmount, 0).Mul(decimal.NewFromInt(1).Sub(slippage))
	return asset.RoundToInt(floor, asset.RoundDown)
}
