package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PercentageDecimals is the fixed-point precision of on-chain percentages.
const PercentageDecimals = 6

var (
	percentageScale   = new(big.Int).Exp(big.NewInt(10), big.NewInt(PercentageDecimals), nil)
	hundredPercentRaw = new(big.Int).Mul(big.NewInt(100), percentageScale)
)

// ToSolidityPercentage converts a percentage (0.2 means 0.2%) to its fixed-point form, rounding down.
func ToSolidityPercentage(pct decimal.Decimal) *big.Int {
	return pct.Shift(PercentageDecimals).RoundDown(0).BigInt()
}

// FromSolidityPercentage converts a fixed-point percentage back to percent units.
func FromSolidityPercentage(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -PercentageDecimals)
}

// PercentOf applies a fixed-point percentage to a raw integer amount.
func PercentOf(raw *big.Int, solidityPct *big.Int, rounding Rounding) *big.Int {
	num := new(big.Int).Mul(raw, solidityPct)
	q, r := new(big.Int).QuoRem(num, hundredPercentRaw, new(big.Int))
	if rounding == RoundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// FractionToPercent converts a 0-1 fraction into percent units (0.005 -> 0.5).
func FractionToPercent(fraction decimal.Decimal) decimal.Decimal {
	return fraction.Mul(decimal.NewFromInt(100))
}
