package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NormalizedPrecision is the common precision every token is scaled to for cross-token math.
const NormalizedPrecision = 18

// PrecisionMode selects how a raw amount is viewed.
type PrecisionMode uint8

const (
	// PrecisionNormal is whole token units (1.5 ETH).
	PrecisionNormal PrecisionMode = iota
	// PrecisionMax is raw base units at the token's own precision (1.5e18 wei).
	PrecisionMax
	// PrecisionNormalized is base units rescaled to 18 decimals.
	PrecisionNormalized
)

// Shift returns the decimal exponent that maps a raw amount of token to this mode.
func (m PrecisionMode) Shift(token *Asset) int32 {
	switch m {
	case PrecisionNormal:
		return -int32(token.Decimals())
	case PrecisionNormalized:
		return NormalizedPrecision - int32(token.Decimals())
	default:
		return 0
	}
}

func (m PrecisionMode) String() string {
	switch m {
	case PrecisionNormal:
		return "normal"
	case PrecisionMax:
		return "max"
	case PrecisionNormalized:
		return "normalized"
	default:
		return "unknown"
	}
}

// Rounding is an explicit rounding direction for decimal -> integer conversions.
type Rounding uint8

const (
	// RoundDown truncates toward zero. Used for anything the protocol could reject as over-withdrawal.
	RoundDown Rounding = iota
	// RoundUp rounds away from zero. Used for flashloan and payback sizing.
	RoundUp
)

// RoundToInt converts d to an integer in the given direction.
func RoundToInt(d decimal.Decimal, rounding Rounding) *big.Int {
	if rounding == RoundUp {
		return d.RoundUp(0).BigInt()
	}
	return d.RoundDown(0).BigInt()
}

// PrecisionScale returns 10^(18 - decimals), the factor between normalized and native precision.
func PrecisionScale(token *Asset) *big.Int {
	shift := int64(NormalizedPrecision) - int64(token.Decimals())
	if shift <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil)
}
