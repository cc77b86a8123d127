package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/asset"
)

// IssueKind separates blocking problems from advisory ones.
type IssueKind string

const (
	IssueError   IssueKind = "error"
	IssueWarning IssueKind = "warning"
	IssueSuccess IssueKind = "success"
)

// Issue names returned to callers.
const (
	DebtAmountExceedsBorrowCap    = "debt-amount-exceeds-borrow-cap"
	TargetLTVExceedsSupplyCap     = "target-ltv-exceeds-supply-cap"
	TargetLTVExceedsMaxLTV        = "target-ltv-exceeds-max-ltv"
	DebtBelowDustLimit            = "debt-below-dust-limit"
	YieldLoopCloseToLiquidation   = "yield-loop-close-to-liquidation"
	TargetLTVBelowMinConfigurable = "target-ltv-below-min-configurable"
	WithdrawExceedsAvailable      = "withdraw-exceeds-available"
	PaybackExceedsDebt            = "payback-exceeds-debt"
	PositionClosed                = "position-closed"
)

// yieldLoopLiquidationMargin is how close, in LTV, an earn position may get to its
// liquidation threshold before a warning is raised.
var yieldLoopLiquidationMargin = decimal.NewFromFloat(0.05)

// Issue is a non-throwing validation finding.
type Issue struct {
	Kind IssueKind         `json:"kind"`
	Name string            `json:"name"`
	Data map[string]string `json:"data,omitempty"`
}

// Issues is an ordered list of findings.
type Issues []Issue

func (is Issues) filter(kind IssueKind) Issues {
	var out Issues
	for _, i := range is {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

func (is Issues) Errors() Issues    { return is.filter(IssueError) }
func (is Issues) Warnings() Issues  { return is.filter(IssueWarning) }
func (is Issues) Successes() Issues { return is.filter(IssueSuccess) }
func (is Issues) HasErrors() bool   { return len(is.Errors()) > 0 }

// Has reports whether an issue with name is present.
func (is Issues) Has(name string) bool {
	for _, i := range is {
		if i.Name == name {
			return true
		}
	}
	return false
}

// ReserveCaps are a reserve's caps and current totals in whole token units. A zero cap is
// unlimited.
type ReserveCaps struct {
	BorrowCap   decimal.Decimal
	SupplyCap   decimal.Decimal
	TotalDebt   decimal.Decimal
	TotalSupply decimal.Decimal
}

// ValidationInput is everything ValidateTransition looks at.
type ValidationInput struct {
	Current           Position
	Target            Position
	MinConfigurable   RiskRatio
	DebtReserve       ReserveCaps
	CollateralReserve ReserveCaps
	IsEarnPosition    bool
	// Requested withdraw and payback before clamping. Zero values mean none was requested.
	Withdraw asset.Amount
	Payback  asset.Amount
}

// ValidateTransition collects the findings for moving from Current to Target.
func ValidateTransition(in ValidationInput) Issues {
	var issues Issues

	if in.Target.IsEmpty() {
		if !in.Current.IsEmpty() {
			issues = append(issues, Issue{Kind: IssueSuccess, Name: PositionClosed})
		}
		return issues
	}

	targetDebt := in.Target.Debt().ToDecimal()
	targetCollateral := in.Target.Collateral().ToDecimal()
	debtIncrease := targetDebt.Sub(in.Current.Debt().ToDecimal())
	collateralIncrease := targetCollateral.Sub(in.Current.Collateral().ToDecimal())
	targetLTV := in.Target.RiskRatio().LoanToValue()
	category := in.Target.Category()

	if caps := in.DebtReserve; caps.BorrowCap.IsPositive() && debtIncrease.IsPositive() {
		if caps.TotalDebt.Add(debtIncrease).GreaterThan(caps.BorrowCap) {
			issues = append(issues, Issue{Kind: IssueError, Name: DebtAmountExceedsBorrowCap, Data: map[string]string{
				"cap": caps.BorrowCap.String(),
			}})
		}
	}

	if caps := in.CollateralReserve; caps.SupplyCap.IsPositive() && collateralIncrease.IsPositive() {
		if caps.TotalSupply.Add(collateralIncrease).GreaterThan(caps.SupplyCap) {
			issues = append(issues, Issue{Kind: IssueError, Name: TargetLTVExceedsSupplyCap, Data: map[string]string{
				"cap": caps.SupplyCap.String(),
			}})
		}
	}

	if category.MaxLoanToValue.IsPositive() && targetLTV.GreaterThan(category.MaxLoanToValue) {
		issues = append(issues, Issue{Kind: IssueError, Name: TargetLTVExceedsMaxLTV, Data: map[string]string{
			"maxLtv": category.MaxLoanToValue.String(),
		}})
	}

	if targetDebt.IsPositive() && targetDebt.LessThan(category.DustLimit) {
		issues = append(issues, Issue{Kind: IssueError, Name: DebtBelowDustLimit, Data: map[string]string{
			"minDebtAmount": category.DustLimit.String(),
		}})
	}

	if targetLTV.LessThan(in.MinConfigurable.LoanToValue()) {
		issues = append(issues, Issue{Kind: IssueError, Name: TargetLTVBelowMinConfigurable, Data: map[string]string{
			"minRiskRatio": in.MinConfigurable.LoanToValue().String(),
		}})
	}

	if in.IsEarnPosition && category.LiquidationThreshold.IsPositive() &&
		category.LiquidationThreshold.Sub(targetLTV).LessThan(yieldLoopLiquidationMargin) {
		issues = append(issues, Issue{Kind: IssueWarning, Name: YieldLoopCloseToLiquidation, Data: map[string]string{
			"liquidationThreshold": category.LiquidationThreshold.String(),
		}})
	}

	if in.Withdraw.IsPositive() && in.Withdraw.ToDecimal().GreaterThan(in.Current.Collateral().ToDecimal()) {
		issues = append(issues, Issue{Kind: IssueWarning, Name: WithdrawExceedsAvailable, Data: map[string]string{
			"available": in.Current.Collateral().ToDecimal().String(),
		}})
	}

	if in.Payback.IsPositive() && in.Payback.ToDecimal().GreaterThan(in.Current.Debt().ToDecimal()) {
		issues = append(issues, Issue{Kind: IssueWarning, Name: PaybackExceedsDebt, Data: map[string]string{
			"debt": in.Current.Debt().ToDecimal().String(),
		}})
	}

	return issues
}
