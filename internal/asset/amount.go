package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: amounts are not compatible")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrDivisionByZero  = errors.New("asset: division by zero")
)

// Amount is an immutable quantity of a token in raw base units (wei, 1e-6 USDC, ...).
// Amounts are never negative.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount creates an Amount from raw base units. Panics on nil or negative input.
func NewAmount(asset *Asset, raw *big.Int) Amount {
	if asset == nil {
		panic(ErrNilAsset)
	}
	if raw == nil {
		panic(ErrNilRaw)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}

	return Amount{
		raw:   new(big.Int).Set(raw),
		asset: asset,
	}
}

// Zero creates a zero Amount for the given token.
func Zero(asset *Asset) Amount {
	return NewAmount(asset, big.NewInt(0))
}

// NewAmountFromInt64 creates an Amount from an int64 raw value.
func NewAmountFromInt64(asset *Asset, raw int64) Amount {
	if raw < 0 {
		panic(ErrNegativeAmount)
	}
	return NewAmount(asset, big.NewInt(raw))
}

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// Asset returns the token this amount is denominated in.
func (a Amount) Asset() *Asset {
	return a.asset
}

func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

func (a Amount) IsPositive() bool {
	return a.raw != nil && a.raw.Sign() > 0
}

// -----------------------------------------------------------------------------
// Arithmetic (same token only)
// -----------------------------------------------------------------------------

// Add adds two amounts of the same token.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkCompatible(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

// MustAdd adds two amounts, panics on error.
func (a Amount) MustAdd(b Amount) Amount {
	result, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return result
}

// Sub subtracts b from a and fails when the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkCompatible(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.asset, new(big.Int).Sub(a.raw, b.raw)), nil
}

// SubClamped subtracts b from a flooring the result at zero.
func (a Amount) SubClamped(b Amount) (Amount, error) {
	if err := a.checkCompatible(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) <= 0 {
		return Zero(a.asset), nil
	}
	return NewAmount(a.asset, new(big.Int).Sub(a.raw, b.raw)), nil
}

// AddRaw adds a signed raw delta, flooring the result at zero.
func (a Amount) AddRaw(delta *big.Int) Amount {
	sum := new(big.Int).Add(a.Raw(), delta)
	if sum.Sign() < 0 {
		sum.SetInt64(0)
	}
	return NewAmount(a.asset, sum)
}

// MulDecimal multiplies by a non-negative decimal factor with explicit rounding.
func (a Amount) MulDecimal(factor decimal.Decimal, rounding Rounding) Amount {
	if factor.IsNegative() {
		panic(ErrNegativeAmount)
	}
	product := decimal.NewFromBigInt(a.Raw(), 0).Mul(factor)
	return NewAmount(a.asset, RoundToInt(product, rounding))
}

// DivBig divides by a positive integer (floor).
func (a Amount) DivBig(divisor *big.Int) (Amount, error) {
	if divisor.Sign() == 0 {
		return Amount{}, ErrDivisionByZero
	}
	if divisor.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return NewAmount(a.asset, new(big.Int).Div(a.raw, divisor)), nil
}

// Min returns the smaller of two amounts of the same token.
func (a Amount) Min(b Amount) (Amount, error) {
	cmp, err := a.Cmp(b)
	if err != nil {
		return Amount{}, err
	}
	if cmp <= 0 {
		return a, nil
	}
	return b, nil
}

// -----------------------------------------------------------------------------
// Comparison
// -----------------------------------------------------------------------------

// Cmp compares two amounts of the same token.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkCompatible(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// Equals reports same token and value.
func (a Amount) Equals(b Amount) bool {
	if a.asset == nil || b.asset == nil {
		return false
	}
	if !a.asset.ID().Equals(b.asset.ID()) {
		return false
	}
	return a.Raw().Cmp(b.Raw()) == 0
}

func (a Amount) GreaterThan(b Amount) (bool, error) {
	cmp, err := a.Cmp(b)
	return cmp > 0, err
}

func (a Amount) LessThan(b Amount) (bool, error) {
	cmp, err := a.Cmp(b)
	return cmp < 0, err
}

// -----------------------------------------------------------------------------
// Precision views
// -----------------------------------------------------------------------------

// ToDecimal returns the amount in whole token units (PrecisionNormal).
func (a Amount) ToDecimal() decimal.Decimal {
	return a.In(PrecisionNormal)
}

// In returns the amount expressed at the given precision mode.
func (a Amount) In(mode PrecisionMode) decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, mode.Shift(a.asset))
}

// Normalized returns the amount at 18-decimal precision as an integer.
func (a Amount) Normalized() *big.Int {
	return RoundToInt(a.In(PrecisionNormalized), RoundDown)
}

// FromDecimal converts a value given at mode precision into an Amount of asset,
// rounding the sub-unit remainder in the given direction. Negative values clamp to zero.
func FromDecimal(asset *Asset, d decimal.Decimal, mode PrecisionMode, rounding Rounding) Amount {
	if asset == nil {
		panic(ErrNilAsset)
	}
	raw := d.Shift(-mode.Shift(asset))
	if raw.IsNegative() {
		return Zero(asset)
	}
	return NewAmount(asset, RoundToInt(raw, rounding))
}

// ParseDecimal creates an Amount from whole token units, rejecting sub-unit precision.
func ParseDecimal(asset *Asset, d decimal.Decimal) (Amount, error) {
	if asset == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}

	scaled := d.Shift(int32(asset.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}

	return NewAmount(asset, scaled.BigInt()), nil
}

// ParseString creates an Amount from a decimal string in whole token units.
func ParseString(asset *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(asset, d)
}

// -----------------------------------------------------------------------------
// Display
// -----------------------------------------------------------------------------

// String returns e.g. "1.5 WETH".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}

// StringFixed returns a string with fixed decimal places.
func (a Amount) StringFixed(places int32) string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().StringFixed(places), a.asset.Symbol())
}

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

// checkCompatible requires both amounts to share the same token and precision.
func (a Amount) checkCompatible(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.ID().Equals(b.asset.ID()) || a.asset.Decimals() != b.asset.Decimals() {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}
