// Package domain contains the lending position model and the risk ratio it is measured in.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/apperror"
)

// ratioPrecision is the number of decimal places kept on ratio divisions.
const ratioPrecision = 18

var one = decimal.NewFromInt(1)

// RiskRatioType tags how a risk ratio value is expressed.
type RiskRatioType uint8

const (
	// LTV is debt value over collateral value, in [0, 1).
	LTV RiskRatioType = iota
	// Multiple is leverage, 1/(1-ltv), at least 1.
	Multiple
	// CollateralizationRatio is collateral value over debt value, 1/ltv, above 1.
	CollateralizationRatio
)

func (t RiskRatioType) String() string {
	switch t {
	case LTV:
		return "LTV"
	case Multiple:
		return "MULTIPLE"
	case CollateralizationRatio:
		return "COL_RATIO"
	default:
		return fmt.Sprintf("RiskRatioType(%d)", uint8(t))
	}
}

// ParseRiskRatioType accepts LTV, MULTIPLE or COL_RATIO in any case.
func ParseRiskRatioType(s string) (RiskRatioType, error) {
	switch strings.ToUpper(s) {
	case "LTV":
		return LTV, nil
	case "MULTIPLE":
		return Multiple, nil
	case "COL_RATIO", "COLLATERALIZATION_RATIO":
		return CollateralizationRatio, nil
	default:
		return 0, apperror.Validation(apperror.CodeInvalidRiskRatio, fmt.Sprintf("unknown risk ratio type %q", s))
	}
}

// RiskRatio is a decimal tagged with its representation. It converts freely between LTV,
// multiple and collateralization ratio.
type RiskRatio struct {
	value decimal.Decimal
	typ   RiskRatioType
}

// NewRiskRatio validates the value against its representation.
func NewRiskRatio(value decimal.Decimal, typ RiskRatioType) (RiskRatio, error) {
	switch typ {
	case LTV:
		if value.IsNegative() || value.GreaterThanOrEqual(one) {
			return RiskRatio{}, apperror.Validation(apperror.CodeInvalidRiskRatio,
				fmt.Sprintf("ltv %s outside [0, 1)", value))
		}
	case Multiple:
		if value.LessThan(one) {
			return RiskRatio{}, apperror.Validation(apperror.CodeInvalidRiskRatio,
				fmt.Sprintf("multiple %s below 1", value))
		}
	case CollateralizationRatio:
		if value.LessThanOrEqual(one) {
			return RiskRatio{}, apperror.Validation(apperror.CodeInvalidRiskRatio,
				fmt.Sprintf("collateralization ratio %s not above 1", value))
		}
	default:
		return RiskRatio{}, apperror.Validation(apperror.CodeInvalidRiskRatio, typ.String())
	}
	return RiskRatio{value: value, typ: typ}, nil
}

// MustRiskRatio panics on an invalid value. Intended for constants and tests.
func MustRiskRatio(value decimal.Decimal, typ RiskRatioType) RiskRatio {
	r, err := NewRiskRatio(value, typ)
	if err != nil {
		panic(err)
	}
	return r
}

// NewLTV is shorthand for an LTV risk ratio.
func NewLTV(ltv decimal.Decimal) (RiskRatio, error) {
	return NewRiskRatio(ltv, LTV)
}

// NewMultiple is shorthand for a multiple risk ratio.
func NewMultiple(multiple decimal.Decimal) (RiskRatio, error) {
	return NewRiskRatio(multiple, Multiple)
}

// ZeroRisk is an LTV of zero.
func ZeroRisk() RiskRatio {
	return RiskRatio{value: decimal.Zero, typ: LTV}
}

func (r RiskRatio) Type() RiskRatioType    { return r.typ }
func (r RiskRatio) Value() decimal.Decimal { return r.value }

// LoanToValue returns the ratio as LTV.
func (r RiskRatio) LoanToValue() decimal.Decimal {
	switch r.typ {
	case Multiple:
		return one.Sub(one.DivRound(r.value, ratioPrecision))
	case CollateralizationRatio:
		return one.DivRound(r.value, ratioPrecision)
	default:
		return r.value
	}
}

// Multiple returns the ratio as leverage multiple.
func (r RiskRatio) Multiple() decimal.Decimal {
	if r.typ == Multiple {
		return r.value
	}
	return one.DivRound(one.Sub(r.LoanToValue()), ratioPrecision)
}

// CollateralizationRatio returns collateral over debt. Zero LTV has no finite ratio and
// returns zero.
func (r RiskRatio) CollateralizationRatio() decimal.Decimal {
	if r.typ == CollateralizationRatio {
		return r.value
	}
	ltv := r.LoanToValue()
	if ltv.IsZero() {
		return decimal.Zero
	}
	return one.DivRound(ltv, ratioPrecision)
}

// Cmp compares two ratios by LTV.
func (r RiskRatio) Cmp(other RiskRatio) int {
	return r.LoanToValue().Cmp(other.LoanToValue())
}

// EqualWithin reports whether both ratios are within tolerance in LTV terms.
func (r RiskRatio) EqualWithin(other RiskRatio, tolerance decimal.Decimal) bool {
	return r.LoanToValue().Sub(other.LoanToValue()).Abs().LessThanOrEqual(tolerance)
}

func (r RiskRatio) String() string {
	return fmt.Sprintf("%s %s", r.typ, r.value.StringFixed(4))
}

type riskRatioJSON struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

func (r RiskRatio) MarshalJSON() ([]byte, error) {
	return json.Marshal(riskRatioJSON{Value: r.value.String(), Type: r.typ.String()})
}

func (r *RiskRatio) UnmarshalJSON(data []byte) error {
	var raw riskRatioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := decimal.NewFromString(raw.Value)
	if err != nil {
		return apperror.Validation(apperror.CodeInvalidRiskRatio, err.Error())
	}
	typ, err := ParseRiskRatioType(raw.Type)
	if err != nil {
		return err
	}
	parsed, err := NewRiskRatio(value, typ)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
