package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	position "github.com/fd1az/dma-strategies/business/position/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amt(t *testing.T, a *asset.Asset, s string) asset.Amount {
	t.Helper()
	out, err := asset.ParseString(a, s)
	if err != nil {
		t.Fatalf("ParseString(%s) error = %v", s, err)
	}
	return out
}

var ethCategory = position.Category{
	DustLimit:            d("0"),
	MaxLoanToValue:       d("0.8"),
	LiquidationThreshold: d("0.825"),
}

func ethUSDC(t *testing.T, collateral, debt string) position.Position {
	t.Helper()
	return position.NewPosition(amt(t, asset.USDC, debt), amt(t, asset.WETH, collateral), d("2000"), ethCategory)
}

func closeTo(got, want, tolerance decimal.Decimal) bool {
	return got.Sub(want).Abs().LessThanOrEqual(tolerance)
}

func TestPlanAdjust_OpenToMultiple(t *testing.T) {
	tests := []struct {
		name     string
		slippage string
		fee      string
		flf      string
	}{
		{"frictionless", "0", "0", "0"},
		{"with fee and slippage", "0.005", "0.002", "0"},
		{"with flashloan fee", "0.005", "0.002", "0.0005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := position.NewMultiple(d("2"))
			if err != nil {
				t.Fatal(err)
			}
			plan, err := PlanAdjust(AdjustInput{
				Position:          ethUSDC(t, "0", "0"),
				Target:            target,
				DepositCollateral: amt(t, asset.WETH, "1"),
				MarketPrice:       d("2000"),
				Slippage:          d(tt.slippage),
				Fee:               d(tt.fee),
				FlashloanFee:      d(tt.flf),
			})
			if err != nil {
				t.Fatalf("PlanAdjust() error = %v", err)
			}

			if !plan.IsIncreasingRisk {
				t.Error("IsIncreasingRisk = false")
			}
			if ltv := plan.Target.RiskRatio().LoanToValue(); !closeTo(ltv, d("0.5"), d("0.000001")) {
				t.Errorf("target LTV = %s, want 0.5", ltv)
			}
			if !plan.Withdraw.IsZero() || !plan.Payback.IsZero() {
				t.Errorf("withdraw/payback = %s/%s, want zero", plan.Withdraw, plan.Payback)
			}
		})
	}
}

func TestPlanAdjust_FrictionlessOpenAmounts(t *testing.T) {
	plan, err := PlanAdjust(AdjustInput{
		Position:          ethUSDC(t, "0", "0"),
		Target:            position.MustRiskRatio(d("2"), position.Multiple),
		DepositCollateral: amt(t, asset.WETH, "1"),
		MarketPrice:       d("2000"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := plan.Borrow.ToDecimal(); !got.Equal(d("2000")) {
		t.Errorf("borrow = %s, want 2000", got)
	}
	if got := plan.Target.Collateral().ToDecimal(); !got.Equal(d("2")) {
		t.Errorf("collateral = %s, want 2", got)
	}
	if !plan.SwapAmount.Equals(plan.DebtRequirement) {
		t.Errorf("swap %s != flashloan %s without a debt deposit", plan.SwapAmount, plan.DebtRequirement)
	}
}

func TestPlanAdjust_RiskDown(t *testing.T) {
	plan, err := PlanAdjust(AdjustInput{
		Position:    ethUSDC(t, "2", "2000"),
		Target:      position.MustRiskRatio(d("0.25"), position.LTV),
		MarketPrice: d("2000"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if plan.IsIncreasingRisk {
		t.Error("IsIncreasingRisk = true")
	}
	if got := plan.Withdraw.ToDecimal(); !closeTo(got, d("0.666666666666666666"), d("0.000000000000000001")) {
		t.Errorf("withdraw = %s", got)
	}
	if got := plan.Payback.ToDecimal(); !got.Equal(d("1333.333334")) {
		t.Errorf("payback = %s, want 1333.333334 (rounded up)", got)
	}
	if ltv := plan.Target.RiskRatio().LoanToValue(); !closeTo(ltv, d("0.25"), d("0.000001")) {
		t.Errorf("target LTV = %s, want 0.25", ltv)
	}
}

func TestPlanAdjust_DebtDepositOnRiskDown(t *testing.T) {
	plan, err := PlanAdjust(AdjustInput{
		Position:    ethUSDC(t, "2", "2000"),
		Target:      position.MustRiskRatio(d("0.25"), position.LTV),
		DepositDebt: amt(t, asset.USDC, "1000"),
		MarketPrice: d("2000"),
	})
	if err != nil {
		t.Fatal(err)
	}
	// 1000 USDC deposited brings the position to exactly 0.25
	if !plan.Withdraw.IsZero() {
		t.Errorf("withdraw = %s, want 0", plan.Withdraw)
	}
	if got := plan.Payback.ToDecimal(); !got.Equal(d("1000")) {
		t.Errorf("payback = %s, want 1000", got)
	}
}

func TestPlanAdjust_TargetAtCurrentRiskBuildsNothing(t *testing.T) {
	tests := []struct {
		name    string
		pos     position.Position
		target  string
		deposit string
	}{
		{"same ltv", ethUSDC(t, "2", "2000"), "0.5", ""},
		{"deposit only at zero ltv", ethUSDC(t, "0", "0"), "0", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := AdjustInput{
				Position:    tt.pos,
				Target:      position.MustRiskRatio(d(tt.target), position.LTV),
				MarketPrice: d("2000"),
			}
			if tt.deposit != "" {
				in.DepositCollateral = amt(t, asset.WETH, tt.deposit)
			}
			_, err := PlanAdjust(in)
			if apperror.GetCode(err) != apperror.CodeNoOperationBuilt {
				t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeNoOperationBuilt)
			}
		})
	}
}

func TestPlanAdjust_Unreachable(t *testing.T) {
	tests := []struct {
		name   string
		pos    position.Position
		target string
		market string
	}{
		{"market far below oracle", ethUSDC(t, "2", "2000"), "0.25", "400"},
		{"non-positive market price", ethUSDC(t, "2", "2000"), "0.25", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanAdjust(AdjustInput{
				Position:    tt.pos,
				Target:      position.MustRiskRatio(d(tt.target), position.LTV),
				MarketPrice: d(tt.market),
			})
			if err == nil {
				t.Fatal("PlanAdjust() error = nil")
			}
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("error %T is not an AppError", err)
			}
		})
	}
}

func TestPlanAdjust_FlashloanGrowsWithTarget(t *testing.T) {
	var previous asset.Amount
	for i, multiple := range []string{"1.5", "2", "2.5", "3", "4"} {
		plan, err := PlanAdjust(AdjustInput{
			Position:          ethUSDC(t, "0", "0"),
			Target:            position.MustRiskRatio(d(multiple), position.Multiple),
			DepositCollateral: amt(t, asset.WETH, "1"),
			MarketPrice:       d("2000"),
			Slippage:          d("0.005"),
			Fee:               d("0.002"),
		})
		if err != nil {
			t.Fatalf("multiple %s: %v", multiple, err)
		}
		if i > 0 {
			if grew, _ := plan.DebtRequirement.GreaterThan(previous); !grew {
				t.Errorf("multiple %s: flashloan %s not above %s", multiple, plan.DebtRequirement, previous)
			}
		}
		previous = plan.DebtRequirement
	}
}

func TestSizeFlashloan(t *testing.T) {
	tests := []struct {
		name  string
		spec  FlashloanSpec
		value string
		want  string // raw
	}{
		{
			name:  "direct covers value exactly",
			spec:  FlashloanSpec{Kind: DirectFlashloan, Token: asset.USDC},
			value: "1000.0000001",
			want:  "1000000001",
		},
		{
			name:  "collateralised scales to token precision",
			spec:  FlashloanSpec{Kind: CollateralisedFlashloan, Token: asset.USDC, MaxLTV: d("0.75"), PriceInDebt: d("1")},
			value: "1000",
			want:  "1666666667",
		},
		{
			name:  "collateralised in an 18 decimal token",
			spec:  FlashloanSpec{Kind: CollateralisedFlashloan, Token: asset.DAI, MaxLTV: d("0.75"), PriceInDebt: d("1")},
			value: "1000",
			want:  "1666666666666666666667",
		},
		{
			name:  "zero value",
			spec:  FlashloanSpec{Kind: CollateralisedFlashloan, Token: asset.DAI, MaxLTV: d("0.75"), PriceInDebt: d("1")},
			value: "0",
			want:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SizeFlashloan(tt.spec, d(tt.value))
			if err != nil {
				t.Fatal(err)
			}
			if got.Raw().String() != tt.want {
				t.Errorf("SizeFlashloan() = %s, want %s", got.Raw(), tt.want)
			}
		})
	}
}

func TestSizeFlashloan_Monotonic(t *testing.T) {
	spec := FlashloanSpec{Kind: CollateralisedFlashloan, Token: asset.DAI, MaxLTV: d("0.77"), PriceInDebt: d("0.9998")}
	prev := asset.Zero(asset.DAI)
	for _, v := range []string{"0.000001", "1", "999.99", "1000", "250000"} {
		got, err := SizeFlashloan(spec, d(v))
		if err != nil {
			t.Fatal(err)
		}
		if cmp, _ := got.Cmp(prev); cmp <= 0 {
			t.Errorf("value %s: %s not above %s", v, got, prev)
		}
		prev = got
	}
}

func TestPlanClose(t *testing.T) {
	t.Run("to debt sells everything", func(t *testing.T) {
		plan, err := PlanClose(CloseInput{
			Position:    ethUSDC(t, "2", "1500"),
			To:          CloseToDebt,
			MarketPrice: d("2000"),
			Slippage:    d("0.01"),
			Fee:         d("0.002"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if !plan.Target.IsEmpty() {
			t.Errorf("target = %s / %s, want empty", plan.Target.Collateral(), plan.Target.Debt())
		}
		if got := plan.Payback.ToDecimal(); !got.Equal(d("1501.5")) {
			t.Errorf("payback = %s, want 1501.5", got)
		}
		if got := plan.SwapAmount.ToDecimal(); !got.Equal(d("2")) {
			t.Errorf("swap = %s, want 2", got)
		}
		if got := plan.ExpectedSwapOut.ToDecimal(); !got.Equal(d("3952.08")) {
			t.Errorf("out = %s, want 3952.08", got)
		}
	})

	t.Run("to collateral keeps the rest", func(t *testing.T) {
		plan, err := PlanClose(CloseInput{
			Position:    ethUSDC(t, "2", "1500"),
			To:          CloseToCollateral,
			MarketPrice: d("2000"),
			Slippage:    d("0.01"),
			Fee:         d("0.002"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if !plan.Target.IsEmpty() {
			t.Error("target not empty")
		}
		if got := plan.ExpectedSwapOut.ToDecimal(); got.LessThan(d("1500")) {
			t.Errorf("out %s does not repay the debt", got)
		}
		sum := plan.SwapAmount.MustAdd(plan.ReturnedCollateral)
		if !sum.Equals(plan.Withdraw) {
			t.Errorf("swap + returned = %s, want %s", sum, plan.Withdraw)
		}
		if got := plan.ReturnedCollateral.ToDecimal(); !got.GreaterThan(d("1.2")) {
			t.Errorf("returned = %s, want about 1.24", got)
		}
	})

	t.Run("no debt", func(t *testing.T) {
		_, err := PlanClose(CloseInput{
			Position:    ethUSDC(t, "2", "0"),
			MarketPrice: d("2000"),
		})
		if apperror.GetCode(err) != apperror.CodeNoOperationBuilt {
			t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeNoOperationBuilt)
		}
	})

	t.Run("underwater", func(t *testing.T) {
		_, err := PlanClose(CloseInput{
			Position:    ethUSDC(t, "1", "1500"),
			MarketPrice: d("1000"),
		})
		if apperror.GetCode(err) != apperror.CodeTargetUnreachable {
			t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeTargetUnreachable)
		}
	})
}

func TestPlanLegs(t *testing.T) {
	half := position.MustRiskRatio(d("0.5"), position.LTV)

	tests := []struct {
		name         string
		in           func(t *testing.T) LegsInput
		wantBorrow   string
		wantPayback  string
		wantWithdraw string
	}{
		{
			name: "deposit and borrow to target",
			in: func(t *testing.T) LegsInput {
				return LegsInput{
					Position:          ethUSDC(t, "0", "0"),
					DepositCollateral: amt(t, asset.WETH, "1"),
					BorrowToTarget:    &half,
				}
			},
			wantBorrow: "1000", wantPayback: "0", wantWithdraw: "0",
		},
		{
			name: "payback clamps to debt",
			in: func(t *testing.T) LegsInput {
				return LegsInput{
					Position: ethUSDC(t, "2", "500"),
					Payback:  amt(t, asset.USDC, "800"),
					Withdraw: amt(t, asset.WETH, "0.5"),
				}
			},
			wantBorrow: "0", wantPayback: "500", wantWithdraw: "0.5",
		},
		{
			name: "withdraw clamps to collateral",
			in: func(t *testing.T) LegsInput {
				return LegsInput{
					Position: ethUSDC(t, "2", "0"),
					Withdraw: amt(t, asset.WETH, "3"),
				}
			},
			wantBorrow: "0", wantPayback: "0", wantWithdraw: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanLegs(tt.in(t))
			if err != nil {
				t.Fatal(err)
			}
			if got := plan.Borrow.ToDecimal(); !got.Equal(d(tt.wantBorrow)) {
				t.Errorf("borrow = %s, want %s", got, tt.wantBorrow)
			}
			if got := plan.Payback.ToDecimal(); !got.Equal(d(tt.wantPayback)) {
				t.Errorf("payback = %s, want %s", got, tt.wantPayback)
			}
			if got := plan.Withdraw.ToDecimal(); !got.Equal(d(tt.wantWithdraw)) {
				t.Errorf("withdraw = %s, want %s", got, tt.wantWithdraw)
			}
		})
	}
}

func TestPlanLegs_NoArguments(t *testing.T) {
	_, err := PlanLegs(LegsInput{Position: ethUSDC(t, "1", "0")})
	if apperror.GetCode(err) != apperror.CodeNoArguments {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeNoArguments)
	}
}

func TestPostSwapFeeEstimate(t *testing.T) {
	// 20 bps on 1000 USDC inflated by 1%
	got := PostSwapFeeEstimate(amt(t, asset.USDC, "1000"), 20)
	if got.ToDecimal().String() != "2.02" {
		t.Errorf("fee = %s, want 2.02", got.ToDecimal())
	}
}
