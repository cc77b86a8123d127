package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	position "github.com/fd1az/dma-strategies/business/position/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// AdjustInput is the state a risk change is solved from. Prices are collateral priced in
// the debt token. Fee, FlashloanFee and Slippage are fractions.
type AdjustInput struct {
	Position          position.Position
	Target            position.RiskRatio
	DepositCollateral asset.Amount // optional, in the position's collateral token
	DepositDebt       asset.Amount // optional, in the position's debt token
	MarketPrice       decimal.Decimal
	Slippage          decimal.Decimal
	Fee               decimal.Decimal
	FlashloanFee      decimal.Decimal
}

// AdjustPlan is the solved move. Amounts not used by the direction are zero.
type AdjustPlan struct {
	IsIncreasingRisk bool
	// SwapAmount enters the swap, fee included: debt token when increasing risk,
	// collateral token when decreasing it.
	SwapAmount asset.Amount
	// DebtRequirement is the debt token the flashloan has to provide.
	DebtRequirement asset.Amount
	Borrow          asset.Amount
	Withdraw        asset.Amount
	Payback         asset.Amount
	// ExpectedSwapOut is the swap output after fee at the slippage-adjusted price.
	ExpectedSwapOut asset.Amount
	Target          position.Position
	// MarketPriceWithSlippage is the price the plan assumed.
	MarketPriceWithSlippage decimal.Decimal
}

// UsesSwap reports whether any amount goes through the swap.
func (p AdjustPlan) UsesSwap() bool {
	return p.SwapAmount.IsPositive()
}

func orZero(a asset.Amount, token *asset.Asset) asset.Amount {
	if a.Asset() == nil {
		return asset.Zero(token)
	}
	return a
}

// PlanAdjust solves for the borrow/swap or withdraw/swap/payback that lands the position
// on the target risk ratio. Direction is decided against the position after deposits.
func PlanAdjust(in AdjustInput) (AdjustPlan, error) {
	if !in.MarketPrice.IsPositive() {
		return AdjustPlan{}, apperror.New(apperror.CodeSimulationFailed, apperror.WithContext("market price must be positive"))
	}
	if !in.Position.OraclePrice().IsPositive() {
		return AdjustPlan{}, apperror.New(apperror.CodeSimulationFailed, apperror.WithContext("oracle price must be positive"))
	}

	collateralToken := in.Position.Collateral().Asset()
	debtToken := in.Position.Debt().Asset()
	depositCollateral := orZero(in.DepositCollateral, collateralToken)
	depositDebt := orZero(in.DepositDebt, debtToken)

	withDeposit, err := in.Position.Deposit(depositCollateral)
	if err != nil {
		return AdjustPlan{}, err
	}

	targetLTV := in.Target.LoanToValue()
	if targetLTV.GreaterThan(withDeposit.RiskRatio().LoanToValue()) {
		return planRiskUp(in, withDeposit, depositDebt, targetLTV)
	}
	return planRiskDown(in, withDeposit, depositDebt, targetLTV)
}

// planRiskUp solves
//
//	D0 + X(1+flf) = L·Po·(C + (X+Du)(1−F)/Pm')
//
// for the flashloaned debt X, where Pm' = Pm(1+S) is the price paid for collateral.
func planRiskUp(in AdjustInput, p position.Position, depositDebt asset.Amount, ltv decimal.Decimal) (AdjustPlan, error) {
	debtToken := p.Debt().Asset()
	collateralToken := p.Collateral().Asset()

	pm := in.MarketPrice.Mul(one.Add(in.Slippage))
	lpo := ltv.Mul(p.OraclePrice())
	netRate := one.Sub(in.Fee).DivRound(pm, divPrecision) // collateral per debt token after fee

	c := p.Collateral().ToDecimal()
	d0 := p.Debt().ToDecimal()
	du := depositDebt.ToDecimal()

	numerator := lpo.Mul(c.Add(du.Mul(netRate))).Sub(d0)
	denominator := one.Add(in.FlashloanFee).Sub(lpo.Mul(netRate))
	if !denominator.IsPositive() {
		return AdjustPlan{}, apperror.New(apperror.CodeTargetUnreachable,
			apperror.WithContext(fmt.Sprintf("ltv %s cannot be reached at market price %s", ltv, pm)))
	}

	x := numerator.DivRound(denominator, divPrecision)
	if x.IsNegative() {
		x = decimal.Zero
	}

	flashloaned := asset.FromDecimal(debtToken, x, asset.PrecisionNormal, asset.RoundUp)
	borrow := asset.FromDecimal(debtToken, x.Mul(one.Add(in.FlashloanFee)), asset.PrecisionNormal, asset.RoundUp)
	swapAmount, err := flashloaned.Add(depositDebt)
	if err != nil {
		return AdjustPlan{}, err
	}
	out := asset.FromDecimal(collateralToken, swapAmount.ToDecimal().Mul(netRate), asset.PrecisionNormal, asset.RoundDown)

	target, err := p.Deposit(out)
	if err != nil {
		return AdjustPlan{}, err
	}
	if target, err = target.Borrow(borrow); err != nil {
		return AdjustPlan{}, err
	}

	return AdjustPlan{
		IsIncreasingRisk:        true,
		SwapAmount:              swapAmount,
		DebtRequirement:         flashloaned,
		Borrow:                  borrow,
		Withdraw:                asset.Zero(collateralToken),
		Payback:                 asset.Zero(debtToken),
		ExpectedSwapOut:         out,
		Target:                  target,
		MarketPriceWithSlippage: pm,
	}, nil
}

// planRiskDown solves
//
//	D0 − Du − Y·k = L·Po·(C − Y),  k = Pm'(1−F)/(1+flf)
//
// for the withdrawn collateral Y, where Pm' = Pm(1−S) is the price collateral sells at.
func planRiskDown(in AdjustInput, p position.Position, depositDebt asset.Amount, ltv decimal.Decimal) (AdjustPlan, error) {
	debtToken := p.Debt().Asset()
	collateralToken := p.Collateral().Asset()

	pm := in.MarketPrice.Mul(one.Sub(in.Slippage))
	lpo := ltv.Mul(p.OraclePrice())
	k := pm.Mul(one.Sub(in.Fee)).DivRound(one.Add(in.FlashloanFee), divPrecision)

	c := p.Collateral().ToDecimal()
	d0 := p.Debt().ToDecimal()
	du := depositDebt.ToDecimal()

	y := decimal.Zero
	if remaining := d0.Sub(du).Sub(lpo.Mul(c)); remaining.IsPositive() {
		denominator := k.Sub(lpo)
		if !denominator.IsPositive() {
			return AdjustPlan{}, apperror.New(apperror.CodeTargetUnreachable,
				apperror.WithContext(fmt.Sprintf("ltv %s cannot be reached at market price %s", ltv, pm)))
		}
		y = remaining.DivRound(denominator, divPrecision)
	}
	if !y.IsPositive() && depositDebt.IsZero() {
		return AdjustPlan{}, apperror.Validation(apperror.CodeNoOperationBuilt, "No operation built. Check your arguments.")
	}
	if y.GreaterThan(c) {
		return AdjustPlan{}, apperror.New(apperror.CodeTargetUnreachable,
			apperror.WithContext(fmt.Sprintf("needs %s collateral, position holds %s", y, c)))
	}

	withdraw := asset.FromDecimal(collateralToken, y, asset.PrecisionNormal, asset.RoundDown)
	flashloaned := asset.FromDecimal(debtToken, withdraw.ToDecimal().Mul(k), asset.PrecisionNormal, asset.RoundUp)
	out := asset.FromDecimal(debtToken, withdraw.ToDecimal().Mul(pm).Mul(one.Sub(in.Fee)), asset.PrecisionNormal, asset.RoundDown)
	payback, err := flashloaned.Add(depositDebt)
	if err != nil {
		return AdjustPlan{}, err
	}

	target, err := p.Withdraw(withdraw)
	if err != nil {
		return AdjustPlan{}, err
	}
	if target, err = target.Payback(payback); err != nil {
		return AdjustPlan{}, err
	}

	return AdjustPlan{
		IsIncreasingRisk:        false,
		SwapAmount:              withdraw,
		DebtRequirement:         flashloaned,
		Borrow:                  asset.Zero(debtToken),
		Withdraw:                withdraw,
		Payback:                 payback,
		ExpectedSwapOut:         out,
		Target:                  target,
		MarketPriceWithSlippage: pm,
	}, nil
}
