// Package domain contains swap fee rules and the quote returned by swap providers.
package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/asset"
)

// FeeBase is the basis point denominator.
const FeeBase = 10000

// Fee tiers in basis points.
const (
	DefaultFeeBps        int64 = 20
	CorrelatedFeeBps     int64 = 7
	EarnIncreaseFeeBps   int64 = 7
	EarnDecreaseFeeBps   int64 = 0
	NoFeeBps             int64 = 0
	feePercentPerBpsUnit       = 100
)

// FeeFlags describe the transition the fee is charged on.
type FeeFlags struct {
	IsIncreasingRisk bool
	IsEarnPosition   bool
}

// correlation groups tokens that track the same underlying.
var correlation = map[string]string{
	"ETH": "eth", "WETH": "eth", "STETH": "eth", "WSTETH": "eth", "RETH": "eth",
	"CBETH": "eth", "WEETH": "eth",
	"USDC": "usd", "USDC.E": "usd", "USDT": "usd", "DAI": "usd", "SDAI": "usd",
	"GHO": "usd", "LUSD": "usd",
	"WBTC": "btc", "TBTC": "btc", "CBBTC": "btc",
}

// IsCorrelatedPair reports whether both symbols belong to the same correlation group.
func IsCorrelatedPair(a, b string) bool {
	ga, ok := correlation[strings.ToUpper(a)]
	if !ok {
		return false
	}
	return ga == correlation[strings.ToUpper(b)]
}

// ResolveFee returns the fee in basis points for a collateral/debt pair.
func ResolveFee(collateralSymbol, debtSymbol string, flags FeeFlags) int64 {
	if flags.IsEarnPosition {
		if flags.IsIncreasingRisk {
			return EarnIncreaseFeeBps
		}
		return EarnDecreaseFeeBps
	}
	if IsCorrelatedPair(collateralSymbol, debtSymbol) {
		return CorrelatedFeeBps
	}
	return DefaultFeeBps
}

// FeePercent converts basis points into percent units, 20 bps being 0.2.
func FeePercent(feeBps int64) decimal.Decimal {
	return decimal.NewFromInt(feeBps).Div(decimal.NewFromInt(feePercentPerBpsUnit))
}

// FeeFraction converts basis points into a fraction, 20 bps being 0.002.
func FeeFraction(feeBps int64) decimal.Decimal {
	return decimal.NewFromInt(feeBps).Div(decimal.NewFromInt(FeeBase))
}

// CalculateFee charges feeBps on amount using the on-chain percentage precision.
func CalculateFee(amount asset.Amount, feeBps int64, rounding asset.Rounding) asset.Amount {
	pct := asset.ToSolidityPercentage(FeePercent(feeBps))
	return asset.NewAmount(amount.Asset(), asset.PercentOf(amount.Raw(), pct, rounding))
}

// FeeSide is the token the protocol fee is taken from.
type FeeSide string

const (
	SourceToken FeeSide = "sourceToken"
	TargetToken FeeSide = "targetToken"
)

// CollectFeeFrom picks the fee side for a transition. Increasing risk taxes the debt token
// before it enters the swap. Decreasing risk and close tax the debt token the swap returns.
func CollectFeeFrom(isIncreasingRisk bool) FeeSide {
	if isIncreasingRisk {
		return SourceToken
	}
	return TargetToken
}
