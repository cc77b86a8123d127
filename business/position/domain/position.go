package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/asset"
)

// Category holds the protocol risk parameters that apply to a position.
type Category struct {
	// DustLimit is the smallest non-zero debt allowed, in whole debt token units.
	DustLimit            decimal.Decimal
	MaxLoanToValue       decimal.Decimal
	LiquidationThreshold decimal.Decimal
	LiquidationPenalty   decimal.Decimal
}

// Position is an immutable snapshot of a collateral/debt pair. Transition methods return
// a new Position; amounts never go below zero.
type Position struct {
	debt        asset.Amount
	collateral  asset.Amount
	oraclePrice decimal.Decimal // collateral priced in debt token
	category    Category
}

// NewPosition creates a Position. oraclePrice is one whole collateral token in debt token units.
func NewPosition(debt, collateral asset.Amount, oraclePrice decimal.Decimal, category Category) Position {
	return Position{
		debt:        debt,
		collateral:  collateral,
		oraclePrice: oraclePrice,
		category:    category,
	}
}

func (p Position) Debt() asset.Amount           { return p.debt }
func (p Position) Collateral() asset.Amount     { return p.collateral }
func (p Position) OraclePrice() decimal.Decimal { return p.oraclePrice }
func (p Position) Category() Category           { return p.category }

// Deposit adds collateral.
func (p Position) Deposit(amount asset.Amount) (Position, error) {
	c, err := p.collateral.Add(amount)
	if err != nil {
		return p, err
	}
	p.collateral = c
	return p, nil
}

// Withdraw removes collateral, clamping at zero.
func (p Position) Withdraw(amount asset.Amount) (Position, error) {
	c, err := p.collateral.SubClamped(amount)
	if err != nil {
		return p, err
	}
	p.collateral = c
	return p, nil
}

// Borrow adds debt.
func (p Position) Borrow(amount asset.Amount) (Position, error) {
	d, err := p.debt.Add(amount)
	if err != nil {
		return p, err
	}
	p.debt = d
	return p, nil
}

// Payback removes debt, clamping at zero.
func (p Position) Payback(amount asset.Amount) (Position, error) {
	d, err := p.debt.SubClamped(amount)
	if err != nil {
		return p, err
	}
	p.debt = d
	return p, nil
}

// WithOraclePrice returns a copy priced at price.
func (p Position) WithOraclePrice(price decimal.Decimal) Position {
	p.oraclePrice = price
	return p
}

// WithCategory returns a copy under different risk parameters.
func (p Position) WithCategory(c Category) Position {
	p.category = c
	return p
}

// CollateralValue is the collateral priced in the debt token.
func (p Position) CollateralValue() decimal.Decimal {
	return p.collateral.ToDecimal().Mul(p.oraclePrice)
}

// RiskRatio is debt over collateral value as LTV. A position with debt and no collateral
// reports the maximum representable LTV.
func (p Position) RiskRatio() RiskRatio {
	return RiskRatio{value: ltvOf(p.debt.ToDecimal(), p.CollateralValue()), typ: LTV}
}

func ltvOf(debt, collateralValue decimal.Decimal) decimal.Decimal {
	if debt.IsZero() {
		return decimal.Zero
	}
	if !collateralValue.IsPositive() {
		return maxLTV
	}
	ltv := debt.DivRound(collateralValue, ratioPrecision)
	if ltv.GreaterThanOrEqual(one) {
		return maxLTV
	}
	return ltv
}

// maxLTV is the largest LTV NewRiskRatio accepts.
var maxLTV = one.Sub(decimal.New(1, -ratioPrecision))

// LiquidationPrice is the oracle price at which LTV reaches the liquidation threshold.
func (p Position) LiquidationPrice() decimal.Decimal {
	denom := p.collateral.ToDecimal().Mul(p.category.LiquidationThreshold)
	if denom.IsZero() {
		return decimal.Zero
	}
	return p.debt.ToDecimal().DivRound(denom, ratioPrecision)
}

// RelativeCollateralPriceMovementUntilLiquidation is the fractional drop in collateral
// price the position can absorb before liquidation.
func (p Position) RelativeCollateralPriceMovementUntilLiquidation() decimal.Decimal {
	if p.oraclePrice.IsZero() {
		return decimal.Zero
	}
	return one.Sub(p.LiquidationPrice().DivRound(p.oraclePrice, ratioPrecision))
}

// HealthFactor is collateral value times liquidation threshold over debt. Zero when there
// is no debt.
func (p Position) HealthFactor() decimal.Decimal {
	debt := p.debt.ToDecimal()
	if debt.IsZero() {
		return decimal.Zero
	}
	return p.CollateralValue().Mul(p.category.LiquidationThreshold).DivRound(debt, ratioPrecision)
}

// NetValue is collateral value minus debt, in debt token units. It can be negative.
func (p Position) NetValue() decimal.Decimal {
	return p.CollateralValue().Sub(p.debt.ToDecimal())
}

// DebtAvailable is the extra debt that keeps LTV at MaxLoanToValue, floored at zero.
func (p Position) DebtAvailable() asset.Amount {
	return p.DebtAvailableWith(p.collateral, p.debt)
}

// DebtAvailableWith computes DebtAvailable for alternative collateral and debt amounts.
func (p Position) DebtAvailableWith(collateral, debt asset.Amount) asset.Amount {
	available := p.category.MaxLoanToValue.
		Mul(p.oraclePrice).
		Mul(collateral.ToDecimal()).
		Sub(debt.ToDecimal())
	return asset.FromDecimal(p.debt.Asset(), available, asset.PrecisionNormal, asset.RoundDown)
}

// BuyingPower is the same quantity as DebtAvailable.
func (p Position) BuyingPower() asset.Amount {
	return p.DebtAvailable()
}

// MaxCollateralToWithdraw is the collateral that can leave while LTV stays at MaxLoanToValue.
func (p Position) MaxCollateralToWithdraw() asset.Amount {
	locked := decimal.Zero
	if denom := p.oraclePrice.Mul(p.category.MaxLoanToValue); denom.IsPositive() {
		locked = p.debt.ToDecimal().DivRound(denom, ratioPrecision)
	} else if p.debt.IsPositive() {
		return asset.Zero(p.collateral.Asset())
	}
	free := p.collateral.ToDecimal().Sub(locked)
	return asset.FromDecimal(p.collateral.Asset(), free, asset.PrecisionNormal, asset.RoundDown)
}

// MinConfigurableRiskRatio is the lowest LTV reachable by selling collateral at
// marketPriceAccountingForSlippage until debt is down to the dust limit.
func (p Position) MinConfigurableRiskRatio(marketPriceAccountingForSlippage decimal.Decimal) RiskRatio {
	dust := p.category.DustLimit
	if dust.IsZero() || !marketPriceAccountingForSlippage.IsPositive() {
		return ZeroRisk()
	}
	debtDelta := p.debt.ToDecimal().Sub(dust)
	remaining := p.collateral.ToDecimal().Sub(debtDelta.DivRound(marketPriceAccountingForSlippage, ratioPrecision))
	if !remaining.IsPositive() {
		return ZeroRisk()
	}
	return RiskRatio{value: ltvOf(dust, remaining.Mul(marketPriceAccountingForSlippage)), typ: LTV}
}

// IsEmpty reports whether the position holds neither collateral nor debt.
func (p Position) IsEmpty() bool {
	return p.collateral.IsZero() && p.debt.IsZero()
}
