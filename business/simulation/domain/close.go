package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	position "github.com/fd1az/dma-strategies/business/position/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// CloseTo is the token the user is left holding after a close.
type CloseTo uint8

const (
	// CloseToDebt sells all collateral and returns the surplus debt token.
	CloseToDebt CloseTo = iota
	// CloseToCollateral sells only the collateral needed to repay and returns the rest.
	CloseToCollateral
)

func (c CloseTo) String() string {
	if c == CloseToCollateral {
		return "collateral"
	}
	return "debt"
}

// ParseCloseTo accepts "debt" and "collateral". Empty means debt.
func ParseCloseTo(s string) (CloseTo, error) {
	switch s {
	case "", "debt":
		return CloseToDebt, nil
	case "collateral":
		return CloseToCollateral, nil
	}
	return 0, apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("unknown close target %q", s))
}

// CloseInput is the state a close is planned from.
type CloseInput struct {
	Position     position.Position
	To           CloseTo
	MarketPrice  decimal.Decimal
	Slippage     decimal.Decimal
	Fee          decimal.Decimal
	FlashloanFee decimal.Decimal
}

// ClosePlan repays all debt and withdraws all collateral.
type ClosePlan struct {
	To CloseTo
	// Payback includes a buffer for interest that accrues before execution. The protocol
	// takes only what is owed.
	Payback  asset.Amount
	Withdraw asset.Amount
	// SwapAmount is the collateral sold.
	SwapAmount asset.Amount
	// DebtRequirement is the debt token the flashloan has to provide.
	DebtRequirement asset.Amount
	// ExpectedSwapOut is the debt token received after fee at the slippage-adjusted price.
	ExpectedSwapOut         asset.Amount
	ReturnedCollateral      asset.Amount
	Target                  position.Position
	MarketPriceWithSlippage decimal.Decimal
}

// PlanClose sizes a full close. The flashloan covers the debt plus CloseInterestBuffer, so
// a position without debt is rejected.
// Closing to collateral sells enough to repay debt and the flashloan fee, capped at the
// whole collateral.
func PlanClose(in CloseInput) (ClosePlan, error) {
	if !in.MarketPrice.IsPositive() {
		return ClosePlan{}, apperror.New(apperror.CodeSimulationFailed, apperror.WithContext("market price must be positive"))
	}
	p := in.Position
	debtToken := p.Debt().Asset()
	collateralToken := p.Collateral().Asset()

	pm := in.MarketPrice.Mul(one.Sub(in.Slippage))
	d0 := p.Debt().ToDecimal()
	c0 := p.Collateral()
	if !d0.IsPositive() {
		return ClosePlan{}, apperror.Validation(apperror.CodeNoOperationBuilt,
			"position has no debt to flashloan against, withdraw the collateral instead")
	}

	flashloaned := asset.FromDecimal(debtToken, d0.Mul(one.Add(CloseInterestBuffer)), asset.PrecisionNormal, asset.RoundUp)

	swap := c0
	if in.To == CloseToCollateral {
		owed := d0.Add(flashloaned.ToDecimal().Mul(in.FlashloanFee))
		needed := owed.DivRound(pm.Mul(one.Sub(in.Fee)), divPrecision)
		swap = asset.FromDecimal(collateralToken, needed, asset.PrecisionNormal, asset.RoundUp)
		if lt, _ := c0.LessThan(swap); lt {
			swap = c0
		}
	}

	out := asset.FromDecimal(debtToken, swap.ToDecimal().Mul(pm).Mul(one.Sub(in.Fee)), asset.PrecisionNormal, asset.RoundDown)
	if out.ToDecimal().LessThan(d0) {
		return ClosePlan{}, apperror.New(apperror.CodeTargetUnreachable,
			apperror.WithContext(fmt.Sprintf("collateral sells for %s, debt is %s", out.ToDecimal(), d0)))
	}

	returned, err := c0.SubClamped(swap)
	if err != nil {
		return ClosePlan{}, err
	}

	target, err := p.Withdraw(c0)
	if err != nil {
		return ClosePlan{}, err
	}
	if target, err = target.Payback(flashloaned); err != nil {
		return ClosePlan{}, err
	}

	return ClosePlan{
		To:                      in.To,
		Payback:                 flashloaned,
		Withdraw:                c0,
		SwapAmount:              swap,
		DebtRequirement:         flashloaned,
		ExpectedSwapOut:         out,
		ReturnedCollateral:      returned,
		Target:                  target,
		MarketPriceWithSlippage: pm,
	}, nil
}
