package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

type recordingProvider struct {
	from, to common.Address
	amount   *big.Int
	err      error
}

func (p *recordingProvider) GetSwapData(_ context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.from, p.to, p.amount = from, to, new(big.Int).Set(amount)
	out := new(big.Int).Div(amount, big.NewInt(2))
	return &domain.Quote{
		FromTokenAddress: from,
		ToTokenAddress:   to,
		FromTokenAmount:  amount,
		ToTokenAmount:    out,
		MinToTokenAmount: domain.MinToTokenAmountFor(out, slippage),
	}, nil
}

func TestGetSwapDataHelper_SourceTokenFee(t *testing.T) {
	provider := &recordingProvider{}
	amount := asset.NewAmountFromInt64(asset.USDC, 1_000_000_000)

	res, err := GetSwapDataHelper(context.Background(), SwapDataArgs{
		From:             asset.USDC,
		To:               asset.ETH,
		Amount:           amount,
		Slippage:         decimal.RequireFromString("0.01"),
		FeeBps:           20,
		IsIncreasingRisk: true,
	}, SwapDataDeps{
		GetSwapData: provider,
		GetTokenAddress: func(a *asset.Asset) (common.Address, error) {
			if a.IsNative() {
				return asset.AddrWETHEthereum, nil
			}
			return a.Address(), nil
		},
	})
	require.NoError(t, err)

	require.Equal(t, domain.SourceToken, res.CollectFeeFrom)
	require.Equal(t, int64(2_000_000), res.PreSwapFee.Raw().Int64())
	require.Equal(t, int64(998_000_000), provider.amount.Int64())
	require.Equal(t, asset.AddrWETHEthereum, provider.to)
	require.Equal(t, asset.AddrUSDCEthereum, provider.from)
}

func TestGetSwapDataHelper_TargetTokenFee(t *testing.T) {
	provider := &recordingProvider{}
	amount := asset.NewAmountFromInt64(asset.WETH, 1_000_000)

	res, err := GetSwapDataHelper(context.Background(), SwapDataArgs{
		From:   asset.WETH,
		To:     asset.USDC,
		Amount: amount,
		FeeBps: 20,
	}, SwapDataDeps{GetSwapData: provider})
	require.NoError(t, err)

	require.Equal(t, domain.TargetToken, res.CollectFeeFrom)
	require.True(t, res.PreSwapFee.IsZero())
	require.Equal(t, int64(1_000_000), provider.amount.Int64())
}

func TestGetSwapDataHelper_Errors(t *testing.T) {
	ctx := context.Background()
	args := SwapDataArgs{From: asset.WETH, To: asset.USDC, Amount: asset.NewAmountFromInt64(asset.WETH, 1)}

	_, err := GetSwapDataHelper(ctx, args, SwapDataDeps{})
	require.Equal(t, apperror.CodeSwapDataMissing, apperror.GetCode(err))

	_, err = GetSwapDataHelper(ctx, SwapDataArgs{From: asset.WETH}, SwapDataDeps{GetSwapData: &recordingProvider{}})
	require.Equal(t, apperror.CodeNoArguments, apperror.GetCode(err))

	upstream := errors.New("aggregator down")
	_, err = GetSwapDataHelper(ctx, args, SwapDataDeps{GetSwapData: &recordingProvider{err: upstream}})
	require.ErrorIs(t, err, upstream)
	require.Equal(t, apperror.CodeSwapQuoteFailed, apperror.GetCode(err))
}
