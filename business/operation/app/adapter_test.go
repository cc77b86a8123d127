package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/business/operation/domain"
	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simApp "github.com/fd1az/dma-strategies/business/simulation/app"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	swapDomain "github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/business/swap/infra/mockexchange"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
)

var (
	category = positionDomain.Category{
		DustLimit:            decimal.Zero,
		MaxLoanToValue:       decimal.RequireFromString("0.8"),
		LiquidationThreshold: decimal.RequireFromString("0.825"),
	}
	addrs = Addresses{
		Executor: common.HexToAddress("0x00000000000000000000000000000000000000e1"),
		Proxy:    common.HexToAddress("0x00000000000000000000000000000000000000f2"),
		User:     common.HexToAddress("0x00000000000000000000000000000000000000a3"),
		Pool:     common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"),
	}
	market = &protocolDomain.MarketParams{
		LoanToken:       asset.USDC.Address(),
		CollateralToken: asset.WETH.Address(),
		Oracle:          common.HexToAddress("0x00000000000000000000000000000000000000b4"),
		IRM:             common.HexToAddress("0x00000000000000000000000000000000000000c5"),
		LLTV:            big.NewInt(860000000000000000),
	}
)

func amount(t *testing.T, a *asset.Asset, s string) asset.Amount {
	t.Helper()
	out, err := asset.ParseString(a, s)
	require.NoError(t, err)
	return out
}

// riskUpTransition is an open of 1 WETH deposit plus 1 WETH bought with 2000 USDC.
func riskUpTransition(t *testing.T, deposit string) *simDomain.Transition {
	t.Helper()
	empty := positionDomain.NewPosition(asset.Zero(asset.USDC), asset.Zero(asset.WETH), decimal.NewFromInt(2000), category)
	target := positionDomain.NewPosition(amount(t, asset.USDC, "2000"), amount(t, asset.WETH, "2"), decimal.NewFromInt(2000), category)
	return &simDomain.Transition{
		Swap: &simDomain.Swap{
			SourceToken:      asset.USDC,
			TargetToken:      asset.WETH,
			FromTokenAmount:  amount(t, asset.USDC, "2000"),
			ToTokenAmount:    amount(t, asset.WETH, "1"),
			MinToTokenAmount: amount(t, asset.WETH, "0.995"),
			ExchangeCalldata: []byte{0x12, 0x34},
			FeeBps:           20,
			CollectFeeFrom:   swapDomain.SourceToken,
		},
		Flags:     simDomain.Flags{IsIncreasingRisk: true, RequiresFlashloan: true, UsesSwap: true},
		Flashloan: amount(t, asset.USDC, "2000"),
		Deposit:   amount(t, asset.WETH, deposit),
		Borrow:    amount(t, asset.USDC, "2000"),
		Payback:   asset.Zero(asset.USDC),
		Withdraw:  asset.Zero(asset.WETH),
		Current:   empty,
		Target:    target,
	}
}

func openArgs(t *testing.T, deposit string) Args {
	return Args{
		Addresses:    addrs,
		Transition:   riskUpTransition(t, deposit),
		Collateral:   asset.WETH,
		Debt:         asset.USDC,
		Market:       market,
		PositionType: "Multiply",
	}
}

func TestAdapters_MatchDefinitions(t *testing.T) {
	defs := domain.DefaultDefinitions()

	for _, p := range protocolDomain.Protocols {
		t.Run(p.String(), func(t *testing.T) {
			adapter, err := ResolveAdapter(p, defs)
			require.NoError(t, err)
			require.Equal(t, p, adapter.Protocol())

			up := openArgs(t, "1")
			down := closeArgs(t)
			down.Market = market
			legs := legsArgs(t)
			legs.Market = market

			builds := map[domain.Kind]func() (domain.Operation, error){
				domain.KindOpen:            func() (domain.Operation, error) { return adapter.Open(up) },
				domain.KindAdjustRiskUp:    func() (domain.Operation, error) { return adapter.AdjustUp(up) },
				domain.KindAdjustRiskDown:  func() (domain.Operation, error) { return adapter.AdjustDown(down) },
				domain.KindClose:           func() (domain.Operation, error) { return adapter.Close(down) },
				domain.KindDepositBorrow:   func() (domain.Operation, error) { return adapter.DepositBorrow(legs) },
				domain.KindPaybackWithdraw: func() (domain.Operation, error) { return adapter.PaybackWithdraw(legs) },
			}
			for kind, build := range builds {
				op, err := build()
				require.NoError(t, err, kind.String())
				require.Equal(t, domain.OperationName(p, kind), op.Name)

				layout, err := domain.Layout(p, kind)
				require.NoError(t, err)
				flat := domain.Flatten(op.Calls)
				require.Len(t, flat, len(layout), kind.String())
				for i, call := range flat {
					require.Equal(t, layout[i], call.ServiceName, "%s call %d", kind, i)
				}
			}
		})
	}
}

func TestOpen_SkippedCallsKeepLayout(t *testing.T) {
	adapter := NewAaveV3Adapter(domain.DefaultDefinitions())

	withDeposit, err := adapter.Open(openArgs(t, "1"))
	require.NoError(t, err)
	withoutDeposit, err := adapter.Open(openArgs(t, "0"))
	require.NoError(t, err)

	a, b := domain.Flatten(withDeposit.Calls), domain.Flatten(withoutDeposit.Calls)
	require.Len(t, b, len(a))
	for i := range a {
		require.Equal(t, a[i].TargetHash, b[i].TargetHash)
	}

	// call 1 pulls the collateral deposit from the user
	require.False(t, a[1].Skipped)
	require.True(t, b[1].Skipped)

	// no native token is involved, so wrapping is skipped in both
	require.True(t, a[3].Skipped)
	require.True(t, b[3].Skipped)
}

func TestOpen_NativeCollateralWraps(t *testing.T) {
	adapter := NewAaveV3Adapter(domain.DefaultDefinitions())
	args := openArgs(t, "1")
	args.CollateralIsNative = true

	op, err := adapter.Open(args)
	require.NoError(t, err)

	flat := domain.Flatten(op.Calls)
	require.Equal(t, domain.ServicePullToken, flat[1].ServiceName)
	require.True(t, flat[1].Skipped)
	require.Equal(t, domain.ServiceWrapEth, flat[3].ServiceName)
	require.False(t, flat[3].Skipped)
}

func TestOpen_EModeOnlyOnOpen(t *testing.T) {
	adapter := NewSparkAdapter(domain.DefaultDefinitions())
	args := openArgs(t, "1")
	args.EModeCategory = 1

	find := func(op domain.Operation) domain.ActionCall {
		for _, c := range domain.Flatten(op.Calls) {
			if c.ServiceName == domain.ServiceSparkSetEMode {
				return c
			}
		}
		t.Fatal("no set e-mode call")
		return domain.ActionCall{}
	}

	open, err := adapter.Open(args)
	require.NoError(t, err)
	require.False(t, find(open).Skipped)

	up, err := adapter.AdjustUp(args)
	require.NoError(t, err)
	require.True(t, find(up).Skipped)
}

func closeArgs(t *testing.T) Args {
	t.Helper()
	ex, err := mockexchange.New(common.HexToAddress("0x00000000000000000000000000000000000e8c4a"))
	require.NoError(t, err)
	ex.SetPrice(asset.WETH, decimal.NewFromInt(2000))
	ex.SetPrice(asset.USDC, decimal.NewFromInt(1))

	sim, err := simApp.NewSimulator(ex, nil, logger.NewDiscard())
	require.NoError(t, err)

	position := positionDomain.NewPosition(amount(t, asset.USDC, "1500"), amount(t, asset.WETH, "2"), decimal.NewFromInt(2000), category)
	tr, err := sim.SimulateClose(context.Background(), simApp.CloseArgs{
		TransitionArgs: simApp.TransitionArgs{
			Position:  position,
			Slippage:  decimal.RequireFromString("0.005"),
			Flashloan: simDomain.FlashloanSpec{Kind: simDomain.DirectFlashloan, Token: asset.USDC},
		},
		To: simDomain.CloseToDebt,
	})
	require.NoError(t, err)

	return Args{
		Addresses:  addrs,
		Transition: tr,
		Collateral: asset.WETH,
		Debt:       asset.USDC,
	}
}

func TestClose_WrapsEverythingInFlashloan(t *testing.T) {
	args := closeArgs(t)
	require.True(t, args.Transition.Target.IsEmpty())

	op, err := NewAaveV3Adapter(nil).Close(args)
	require.NoError(t, err)

	require.Equal(t, "CloseAAVEV3Position", op.Name)
	require.Len(t, op.Calls, 3)
	require.Equal(t, domain.ServiceTakeFlashloan, op.Calls[0].ServiceName)
	require.NotEmpty(t, op.Calls[0].Inner)
	require.Equal(t, domain.ServiceReturnFunds, op.Calls[1].ServiceName)
	require.Equal(t, domain.ServiceReturnFunds, op.Calls[2].ServiceName)

	tx, err := domain.BuildTransaction(op, addrs.Executor, addrs.Proxy, nil)
	require.NoError(t, err)
	require.Equal(t, addrs.Proxy, tx.To)
}

func TestNewAdapters_DefaultDefinitions(t *testing.T) {
	adapters := map[string]ProtocolAdapter{
		"aave-v3": NewAaveV3Adapter(nil),
		"spark":   NewSparkAdapter(nil),
	}
	for name, a := range adapters {
		t.Run(name, func(t *testing.T) {
			op, err := a.Close(closeArgs(t))
			require.NoError(t, err)
			require.NoError(t, domain.DefaultDefinitions().Check(op))
		})
	}
}

func TestAdjustDown_NativeDebtDepositRejected(t *testing.T) {
	args := closeArgs(t)
	args.DebtIsNative = true
	args.DepositDebt = amount(t, asset.USDC, "10")

	_, err := NewAaveV3Adapter(nil).AdjustDown(args)
	require.Error(t, err)
	require.Equal(t, apperror.CodeInvalidInput, apperror.GetCode(err))
}

func legsArgs(t *testing.T) Args {
	current := positionDomain.NewPosition(amount(t, asset.USDC, "1000"), amount(t, asset.WETH, "2"), decimal.NewFromInt(2000), category)
	return Args{
		Addresses: addrs,
		Transition: &simDomain.Transition{
			Deposit:  amount(t, asset.WETH, "1"),
			Borrow:   amount(t, asset.USDC, "500"),
			Payback:  amount(t, asset.USDC, "1000"),
			Withdraw: amount(t, asset.WETH, "0.5"),
			Current:  current,
			Target:   current,
		},
		Collateral: asset.WETH,
		Debt:       asset.USDC,
	}
}

func TestDepositBorrow_NothingToDo(t *testing.T) {
	args := legsArgs(t)
	args.Transition.Deposit = asset.Zero(asset.WETH)
	args.Transition.Borrow = asset.Zero(asset.USDC)

	_, err := NewAaveV3Adapter(nil).DepositBorrow(args)
	require.Error(t, err)
	require.Equal(t, apperror.CodeNoArguments, apperror.GetCode(err))
}

func TestPaybackWithdraw_SkipsMissingLeg(t *testing.T) {
	args := legsArgs(t)
	args.Transition.Withdraw = asset.Zero(asset.WETH)

	op, err := NewAaveV3Adapter(nil).PaybackWithdraw(args)
	require.NoError(t, err)

	flat := domain.Flatten(op.Calls)
	require.Len(t, flat, 7)
	require.Equal(t, domain.ServiceAaveV3Payback, flat[3].ServiceName)
	require.False(t, flat[3].Skipped)
	require.True(t, flat[4].Skipped, "withdraw")
	require.True(t, flat[6].Skipped, "return funds")
}

func TestMorpho_RequiresMarket(t *testing.T) {
	args := openArgs(t, "1")
	args.Market = nil

	_, err := NewMorphoBlueAdapter(nil).Open(args)
	require.Error(t, err)
	require.Equal(t, apperror.CodeRequiredField, apperror.GetCode(err))
}

func TestResolveAdapter_Unknown(t *testing.T) {
	_, err := ResolveAdapter(protocolDomain.Protocol(99), nil)
	require.Error(t, err)
}
