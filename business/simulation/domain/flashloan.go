// Package domain solves for the token deltas that move a lending position to a target
// risk ratio, and sizes the flashloan that funds the move.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

var (
	// FlashloanSafetyMargin keeps a collateralised flashloan below the flashloan token's
	// max LTV when prices move between simulation and execution.
	FlashloanSafetyMargin = decimal.RequireFromString("0.2")

	// FeeEstimateInflator pads a post-swap fee estimate so slippage cannot make it too small.
	FeeEstimateInflator = decimal.RequireFromString("0.01")

	// CloseInterestBuffer covers debt interest that accrues between read and execution when
	// a close repays everything.
	CloseInterestBuffer = decimal.RequireFromString("0.001")

	one = decimal.NewFromInt(1)
)

// divPrecision is the decimal places kept on divisions of whole-unit amounts.
const divPrecision = 24

// FlashloanKind is how the borrowed liquidity is used inside the operation.
type FlashloanKind uint8

const (
	// DirectFlashloan borrows the debt token and uses it as is.
	DirectFlashloan FlashloanKind = iota
	// CollateralisedFlashloan borrows the network flashloan token and deposits it as
	// temporary collateral so the protocol lets the position borrow or withdraw.
	CollateralisedFlashloan
)

func (k FlashloanKind) String() string {
	if k == CollateralisedFlashloan {
		return "collateralised"
	}
	return "direct"
}

// FlashloanSpec describes the flashloan source for one transition.
type FlashloanSpec struct {
	Kind  FlashloanKind
	Token *asset.Asset
	// Fee is the lender fee as a fraction.
	Fee decimal.Decimal
	// MaxLTV of Token when deposited as collateral. Collateralised only.
	MaxLTV decimal.Decimal
	// PriceInDebt is one whole Token in debt token units. Collateralised only.
	PriceInDebt decimal.Decimal
}

// SizeFlashloan returns the flashloan for a requirement of value whole debt token units.
// Direct flashloans cover value exactly. Collateralised flashloans convert value into the
// flashloan token and divide by maxLTV·(1 − margin). Both round up.
func SizeFlashloan(spec FlashloanSpec, value decimal.Decimal) (asset.Amount, error) {
	if spec.Token == nil {
		return asset.Amount{}, apperror.New(apperror.CodeSimulationFailed, apperror.WithContext("no flashloan token"))
	}
	if !value.IsPositive() {
		return asset.Zero(spec.Token), nil
	}

	if spec.Kind == DirectFlashloan {
		return asset.FromDecimal(spec.Token, value, asset.PrecisionNormal, asset.RoundUp), nil
	}

	if !spec.PriceInDebt.IsPositive() || !spec.MaxLTV.IsPositive() {
		return asset.Amount{}, apperror.New(apperror.CodeSimulationFailed,
			apperror.WithContext("collateralised flashloan needs a price and max LTV"))
	}
	inToken := value.DivRound(spec.PriceInDebt, divPrecision)
	sized := inToken.DivRound(spec.MaxLTV.Mul(one.Sub(FlashloanSafetyMargin)), divPrecision)

	// Size at normalized precision, then scale down to the token's own precision.
	normalized := asset.RoundToInt(sized.Shift(asset.NormalizedPrecision), asset.RoundUp)
	return asset.NewAmount(spec.Token, ceilDiv(normalized, asset.PrecisionScale(spec.Token))), nil
}

// FlashloanRepayment is what must be returned to the lender for amount.
func FlashloanRepayment(spec FlashloanSpec, amount asset.Amount) asset.Amount {
	if spec.Fee.IsZero() {
		return amount
	}
	return amount.MulDecimal(one.Add(spec.Fee), asset.RoundUp)
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
