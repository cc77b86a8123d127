package domain

import (
	"github.com/shopspring/decimal"

	position "github.com/fd1az/dma-strategies/business/position/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// LegsInput is a move that needs no swap: deposit and borrow, or payback and withdraw.
type LegsInput struct {
	Position          position.Position
	DepositCollateral asset.Amount
	Borrow            asset.Amount
	Payback           asset.Amount
	Withdraw          asset.Amount
	// BorrowToTarget, when set, replaces Borrow with the debt that lands the position on
	// the ratio after the deposit.
	BorrowToTarget *position.RiskRatio
}

// LegsPlan holds the effective amounts. Payback and Withdraw are clamped to what the
// position holds; Requested* keep the caller's values for validation.
type LegsPlan struct {
	Deposit           asset.Amount
	Borrow            asset.Amount
	Payback           asset.Amount
	Withdraw          asset.Amount
	RequestedPayback  asset.Amount
	RequestedWithdraw asset.Amount
	Target            position.Position
}

// PlanLegs applies deposit, borrow, payback and withdraw in that order.
func PlanLegs(in LegsInput) (LegsPlan, error) {
	p := in.Position
	debtToken := p.Debt().Asset()
	collateralToken := p.Collateral().Asset()

	deposit := orZero(in.DepositCollateral, collateralToken)
	borrow := orZero(in.Borrow, debtToken)
	payback := orZero(in.Payback, debtToken)
	withdraw := orZero(in.Withdraw, collateralToken)

	if deposit.IsZero() && borrow.IsZero() && payback.IsZero() && withdraw.IsZero() && in.BorrowToTarget == nil {
		return LegsPlan{}, apperror.Validation(apperror.CodeNoArguments, "At least one argument needs to be provided")
	}

	target, err := p.Deposit(deposit)
	if err != nil {
		return LegsPlan{}, err
	}

	if in.BorrowToTarget != nil {
		wanted := in.BorrowToTarget.LoanToValue().Mul(target.CollateralValue()).Sub(target.Debt().ToDecimal())
		if wanted.IsNegative() {
			wanted = decimal.Zero
		}
		borrow = asset.FromDecimal(debtToken, wanted, asset.PrecisionNormal, asset.RoundDown)
	}
	if target, err = target.Borrow(borrow); err != nil {
		return LegsPlan{}, err
	}

	effectivePayback, err := payback.Min(target.Debt())
	if err != nil {
		return LegsPlan{}, err
	}
	if target, err = target.Payback(effectivePayback); err != nil {
		return LegsPlan{}, err
	}

	effectiveWithdraw, err := withdraw.Min(target.Collateral())
	if err != nil {
		return LegsPlan{}, err
	}
	if target, err = target.Withdraw(effectiveWithdraw); err != nil {
		return LegsPlan{}, err
	}

	return LegsPlan{
		Deposit:           deposit,
		Borrow:            borrow,
		Payback:           effectivePayback,
		Withdraw:          effectiveWithdraw,
		RequestedPayback:  payback,
		RequestedWithdraw: withdraw,
		Target:            target,
	}, nil
}
