package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// SwapDataArgs describes one swap to quote.
type SwapDataArgs struct {
	From     *asset.Asset
	To       *asset.Asset
	Amount   asset.Amount // amount of From before any pre-swap fee
	Slippage decimal.Decimal
	FeeBps   int64
	// IsIncreasingRisk picks the fee side unless CollectFeeFrom forces one.
	IsIncreasingRisk bool
	CollectFeeFrom   domain.FeeSide
}

// SwapDataDeps are the capabilities GetSwapDataHelper needs.
type SwapDataDeps struct {
	GetSwapData     SwapDataProvider
	GetTokenAddress func(*asset.Asset) (common.Address, error)
}

// SwapDataResult is a quote together with how its fee is collected.
type SwapDataResult struct {
	SwapData       *domain.Quote
	CollectFeeFrom domain.FeeSide
	// PreSwapFee is taken from Amount before quoting. Zero when the target token is taxed.
	PreSwapFee asset.Amount
}

// GetSwapDataHelper resolves token addresses, deducts any pre-swap fee and quotes the rest.
func GetSwapDataHelper(ctx context.Context, args SwapDataArgs, deps SwapDataDeps) (SwapDataResult, error) {
	if deps.GetSwapData == nil {
		return SwapDataResult{}, apperror.Validation(apperror.CodeSwapDataMissing, "no swap data provider")
	}
	if args.From == nil || args.To == nil || !args.Amount.IsPositive() {
		return SwapDataResult{}, apperror.Validation(apperror.CodeNoArguments, "swap tokens and a positive amount are required")
	}

	resolve := deps.GetTokenAddress
	if resolve == nil {
		resolve = func(a *asset.Asset) (common.Address, error) { return a.Address(), nil }
	}
	from, err := resolve(args.From)
	if err != nil {
		return SwapDataResult{}, err
	}
	to, err := resolve(args.To)
	if err != nil {
		return SwapDataResult{}, err
	}

	side := args.CollectFeeFrom
	if side == "" {
		side = domain.CollectFeeFrom(args.IsIncreasingRisk)
	}

	preSwapFee := asset.Zero(args.From)
	if side == domain.SourceToken {
		preSwapFee = domain.CalculateFee(args.Amount, args.FeeBps, asset.RoundDown)
	}
	swapAmount, err := args.Amount.Sub(preSwapFee)
	if err != nil {
		return SwapDataResult{}, err
	}

	quote, err := deps.GetSwapData.GetSwapData(ctx, from, to, swapAmount.Raw(), args.Slippage)
	if err != nil {
		return SwapDataResult{}, apperror.Wrap(err, apperror.CodeSwapQuoteFailed, "getSwapData")
	}
	if err := quote.Validate(); err != nil {
		return SwapDataResult{}, err
	}

	return SwapDataResult{SwapData: quote, CollectFeeFrom: side, PreSwapFee: preSwapFee}, nil
}
