package asset

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PricePrecision is the fixed-point precision of a Price rate.
const PricePrecision = 18

var pricePrecisionMultiplier = new(big.Int).Exp(big.NewInt(10), big.NewInt(PricePrecision), nil)

// Price is the amount of quote token one whole base token is worth,
// stored as a fixed-point integer with PricePrecision decimals.
type Price struct {
	rate  *big.Int
	base  *Asset
	quote *Asset
}

// NewPrice creates a price from a decimal rate (rounded down to PricePrecision).
func NewPrice(base, quote *Asset, rate decimal.Decimal) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}

	return Price{
		rate:  rate.Shift(PricePrecision).RoundDown(0).BigInt(),
		base:  base,
		quote: quote,
	}
}

// Rate returns the price as a decimal.
func (p Price) Rate() decimal.Decimal {
	if p.rate == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.rate, -PricePrecision)
}

func (p Price) Base() *Asset  { return p.base }
func (p Price) Quote() *Asset { return p.quote }

// Pair returns e.g. "WETH/USDC".
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

func (p Price) IsZero() bool {
	return p.rate == nil || p.rate.Sign() == 0
}

// Invert returns quote/base.
func (p Price) Invert() Price {
	if p.IsZero() {
		return Price{rate: big.NewInt(0), base: p.quote, quote: p.base}
	}

	precisionSquared := new(big.Int).Mul(pricePrecisionMultiplier, pricePrecisionMultiplier)
	return Price{
		rate:  new(big.Int).Div(precisionSquared, p.rate),
		base:  p.quote,
		quote: p.base,
	}
}

// CrossRate derives base(p)/base(other) from two prices sharing the same quote,
// e.g. WETH/USD and DAI/USD give WETH/DAI.
func CrossRate(p, other Price) (Price, error) {
	if !p.quote.Equals(other.quote) {
		return Price{}, fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, p.Pair(), other.Pair())
	}
	if other.IsZero() {
		return Price{}, ErrDivisionByZero
	}

	rate := new(big.Int).Mul(p.RateRaw(), pricePrecisionMultiplier)
	rate.Div(rate, other.rate)
	return Price{rate: rate, base: p.base, quote: other.base}, nil
}

// RateRaw returns the raw fixed-point rate.
func (p Price) RateRaw() *big.Int {
	if p.rate == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(p.rate)
}

// Convert converts an amount of base into quote, rounding in the given direction.
//
//	quoteRaw = baseRaw * rate / 10^18 * 10^(quoteDecimals - baseDecimals)
func (p Price) Convert(amount Amount, rounding Rounding) (Amount, error) {
	if amount.Asset() == nil {
		return Amount{}, ErrNilAsset
	}
	if !amount.Asset().ID().Equals(p.base.ID()) {
		return Amount{}, fmt.Errorf("%w: expected %s, got %s",
			ErrAssetMismatch, p.base.Symbol(), amount.Asset().Symbol())
	}

	num := new(big.Int).Mul(amount.Raw(), p.RateRaw())
	den := new(big.Int).Set(pricePrecisionMultiplier)

	shift := int64(p.quote.Decimals()) - int64(p.base.Decimals())
	if shift > 0 {
		num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil))
	} else if shift < 0 {
		den.Mul(den, new(big.Int).Exp(big.NewInt(10), big.NewInt(-shift), nil))
	}

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if rounding == RoundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return NewAmount(p.quote, q), nil
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Rate().String(), p.Pair())
}
