package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	"github.com/fd1az/dma-strategies/business/simulation/domain"
	swapDomain "github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/business/swap/infra/mockexchange"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amount(t *testing.T, a *asset.Asset, s string) asset.Amount {
	t.Helper()
	out, err := asset.ParseString(a, s)
	require.NoError(t, err)
	return out
}

var wethCategory = positionDomain.Category{
	DustLimit:            d("0"),
	MaxLoanToValue:       d("0.8"),
	LiquidationThreshold: d("0.825"),
}

func newSimulator(t *testing.T) *Simulator {
	t.Helper()
	ex, err := mockexchange.New(common.HexToAddress("0x00000000000000000000000000000000000e8c4a"))
	require.NoError(t, err)
	ex.SetPrice(asset.WETH, d("2000"))
	ex.SetPrice(asset.USDC, d("1"))
	ex.SetPrice(asset.DAI, d("1"))

	sim, err := NewSimulator(ex, nil, logger.NewDiscard())
	require.NoError(t, err)
	return sim
}

func wethUSDC(t *testing.T, collateral, debt string) positionDomain.Position {
	return positionDomain.NewPosition(amount(t, asset.USDC, debt), amount(t, asset.WETH, collateral), d("2000"), wethCategory)
}

func directUSDC() domain.FlashloanSpec {
	return domain.FlashloanSpec{Kind: domain.DirectFlashloan, Token: asset.USDC}
}

func TestSimulator_OpenMultipleTwo(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateAdjust(context.Background(), AdjustArgs{
		TransitionArgs: TransitionArgs{
			Position:  wethUSDC(t, "0", "0"),
			Slippage:  d("0.005"),
			Flashloan: directUSDC(),
		},
		Target:            positionDomain.MustRiskRatio(d("2"), positionDomain.Multiple),
		DepositCollateral: amount(t, asset.WETH, "1"),
	})
	require.NoError(t, err)

	require.True(t, tr.Flags.IsIncreasingRisk)
	require.True(t, tr.Flags.RequiresFlashloan)
	require.True(t, tr.Flags.UsesSwap)
	require.InDelta(t, 0.5, tr.Target.RiskRatio().LoanToValue().InexactFloat64(), 1e-6)

	require.NotNil(t, tr.Swap)
	require.Equal(t, swapDomain.SourceToken, tr.Swap.CollectFeeFrom)
	require.True(t, tr.Swap.PreSwapFee.IsPositive())
	require.True(t, tr.Swap.PostSwapFee.IsZero())
	require.True(t, tr.Swap.TokenFee.Equals(tr.Swap.PreSwapFee))
	require.Equal(t, asset.USDC, tr.Swap.SourceToken)
	require.NotEmpty(t, tr.Swap.ExchangeCalldata)

	// the flashloan is the borrow when the lender charges nothing
	require.True(t, tr.Flashloan.Equals(tr.Borrow))
	require.Equal(t, tr.Target.Debt().Raw().String(), tr.Delta.Debt.String())
	require.Equal(t, 0, tr.Delta.Flashloan.Cmp(tr.Flashloan.Raw()))
	require.False(t, tr.Issues.HasErrors())
}

func TestSimulator_AdjustDownTaxesTarget(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateAdjust(context.Background(), AdjustArgs{
		TransitionArgs: TransitionArgs{
			Position:  wethUSDC(t, "2", "2000"),
			Slippage:  d("0.005"),
			Flashloan: directUSDC(),
		},
		Target: positionDomain.MustRiskRatio(d("0.3"), positionDomain.LTV),
	})
	require.NoError(t, err)

	require.False(t, tr.Flags.IsIncreasingRisk)
	require.Equal(t, swapDomain.TargetToken, tr.Swap.CollectFeeFrom)
	require.True(t, tr.Swap.PostSwapFee.IsPositive())
	require.True(t, tr.Swap.PreSwapFee.IsZero())
	require.Equal(t, asset.WETH, tr.Swap.SourceToken)
	require.InDelta(t, 0.3, tr.Target.RiskRatio().LoanToValue().InexactFloat64(), 1e-6)
	require.Negative(t, tr.Delta.Collateral.Sign())
	require.Negative(t, tr.Delta.Debt.Sign())
}

func TestSimulator_AdjustFlagsMaxLTV(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateAdjust(context.Background(), AdjustArgs{
		TransitionArgs: TransitionArgs{
			Position:  wethUSDC(t, "1", "0"),
			Flashloan: directUSDC(),
		},
		Target: positionDomain.MustRiskRatio(d("0.85"), positionDomain.LTV),
	})
	require.NoError(t, err)
	require.True(t, tr.Issues.Has(positionDomain.TargetLTVExceedsMaxLTV))
}

func TestSimulator_BorrowCap(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateAdjust(context.Background(), AdjustArgs{
		TransitionArgs: TransitionArgs{
			Position:    wethUSDC(t, "1", "0"),
			Flashloan:   directUSDC(),
			DebtReserve: positionDomain.ReserveCaps{BorrowCap: d("1000000"), TotalDebt: d("999500")},
		},
		Target: positionDomain.MustRiskRatio(d("0.5"), positionDomain.LTV),
	})
	require.NoError(t, err)
	require.True(t, tr.Issues.Has(positionDomain.DebtAmountExceedsBorrowCap))
}

func TestSimulator_CloseToDebt(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateClose(context.Background(), CloseArgs{
		TransitionArgs: TransitionArgs{
			Position:  wethUSDC(t, "2", "1500"),
			Slippage:  d("0.01"),
			Flashloan: directUSDC(),
		},
		To: domain.CloseToDebt,
	})
	require.NoError(t, err)

	require.True(t, tr.Target.IsEmpty())
	require.True(t, tr.Flags.RequiresFlashloan)
	require.True(t, tr.Issues.Has(positionDomain.PositionClosed))
	require.Equal(t, swapDomain.TargetToken, tr.Swap.CollectFeeFrom)
	require.Equal(t, "2", tr.Swap.FromTokenAmount.ToDecimal().String())
	require.Equal(t, "1501.5", tr.Flashloan.ToDecimal().String())
}

func TestSimulator_CloseCollateralisedFlashloan(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateClose(context.Background(), CloseArgs{
		TransitionArgs: TransitionArgs{
			Position: wethUSDC(t, "2", "1500"),
			Slippage: d("0.01"),
			Flashloan: domain.FlashloanSpec{
				Kind:        domain.CollateralisedFlashloan,
				Token:       asset.DAI,
				MaxLTV:      d("0.75"),
				PriceInDebt: d("1"),
			},
		},
		To: domain.CloseToCollateral,
	})
	require.NoError(t, err)

	// 4000 USDC of collateral / (0.75 * 0.8)
	want, _ := new(big.Int).SetString("6666666666666666666667", 10)
	require.Equal(t, want.String(), tr.Flashloan.Raw().String())
	require.Equal(t, asset.DAI, tr.Flashloan.Asset())
	require.True(t, tr.Swap.FromTokenAmount.ToDecimal().LessThan(d("1")))
}

func TestSimulator_DepositBorrowToTarget(t *testing.T) {
	sim := newSimulator(t)
	half := positionDomain.MustRiskRatio(d("0.5"), positionDomain.LTV)

	tr, err := sim.SimulateLegs(context.Background(), LegsArgs{
		TransitionArgs:    TransitionArgs{Position: wethUSDC(t, "0", "0")},
		DepositCollateral: amount(t, asset.WETH, "1"),
		BorrowToTarget:    &half,
	})
	require.NoError(t, err)

	require.Equal(t, "1000", tr.Borrow.ToDecimal().String())
	require.Nil(t, tr.Swap)
	require.False(t, tr.Flags.RequiresFlashloan)
	require.InDelta(t, 0.5, tr.Target.RiskRatio().LoanToValue().InexactFloat64(), 1e-9)
}

func TestSimulator_PaybackWithdrawWarnsOnClamp(t *testing.T) {
	sim := newSimulator(t)

	tr, err := sim.SimulateLegs(context.Background(), LegsArgs{
		TransitionArgs: TransitionArgs{Position: wethUSDC(t, "2", "500")},
		Payback:        amount(t, asset.USDC, "800"),
	})
	require.NoError(t, err)
	require.Equal(t, "500", tr.Payback.ToDecimal().String())
	require.True(t, tr.Issues.Has(positionDomain.PaybackExceedsDebt))
}

func TestSimulator_MissingSwapProvider(t *testing.T) {
	sim, err := NewSimulator(nil, nil, logger.NewDiscard())
	require.NoError(t, err)

	_, err = sim.SimulateAdjust(context.Background(), AdjustArgs{
		TransitionArgs: TransitionArgs{Position: wethUSDC(t, "1", "0"), Flashloan: directUSDC()},
		Target:         positionDomain.MustRiskRatio(d("0.5"), positionDomain.LTV),
	})
	require.Equal(t, apperror.CodeSwapDataMissing, apperror.GetCode(err))
}
