package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/asset"
)

func TestResolveFee(t *testing.T) {
	tests := []struct {
		name       string
		collateral string
		debt       string
		flags      FeeFlags
		want       int64
	}{
		{"standard_pair", "WETH", "USDC", FeeFlags{IsIncreasingRisk: true}, DefaultFeeBps},
		{"correlated_eth", "WSTETH", "ETH", FeeFlags{IsIncreasingRisk: true}, CorrelatedFeeBps},
		{"correlated_usd", "sDAI", "usdc", FeeFlags{}, CorrelatedFeeBps},
		{"earn_increase", "WSTETH", "WETH", FeeFlags{IsIncreasingRisk: true, IsEarnPosition: true}, EarnIncreaseFeeBps},
		{"earn_decrease", "WSTETH", "WETH", FeeFlags{IsEarnPosition: true}, EarnDecreaseFeeBps},
		{"unknown_symbol", "PEPE", "USDC", FeeFlags{}, DefaultFeeBps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFee(tt.collateral, tt.debt, tt.flags); got != tt.want {
				t.Errorf("ResolveFee() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		name     string
		raw      int64
		feeBps   int64
		rounding asset.Rounding
		want     int64
	}{
		{"twenty_bps", 1_000_000_000, 20, asset.RoundDown, 2_000_000},
		{"seven_bps", 1_000_000_000, 7, asset.RoundDown, 700_000},
		{"dust_rounds_down", 1, 20, asset.RoundDown, 0},
		{"dust_rounds_up", 1, 20, asset.RoundUp, 1},
		{"zero_fee", 1_000_000, 0, asset.RoundUp, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateFee(asset.NewAmountFromInt64(asset.USDC, tt.raw), tt.feeBps, tt.rounding)
			if got.Raw().Int64() != tt.want {
				t.Errorf("CalculateFee() = %s, want %d", got.Raw(), tt.want)
			}
		})
	}
}

func TestCollectFeeFrom(t *testing.T) {
	if CollectFeeFrom(true) != SourceToken {
		t.Error("increasing risk should tax the source token")
	}
	if CollectFeeFrom(false) != TargetToken {
		t.Error("decreasing risk should tax the target token")
	}
}

func TestQuote_MarketPriceAndValidate(t *testing.T) {
	q := &Quote{
		FromTokenAmount:  big.NewInt(2_000_000_000), // 2000 USDC
		ToTokenAmount:    new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18)),
		MinToTokenAmount: MinToTokenAmountFor(big.NewInt(1e18), decimal.RequireFromString("0.01")),
	}

	if err := q.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := q.MarketPrice(asset.USDC, asset.WETH); !got.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("MarketPrice() = %s, want 0.0005", got)
	}
	if q.MinToTokenAmount.Cmp(big.NewInt(990_000_000_000_000_000)) != 0 {
		t.Errorf("MinToTokenAmount = %s", q.MinToTokenAmount)
	}

	q.MinToTokenAmount = new(big.Int).Add(q.ToTokenAmount, big.NewInt(1))
	if err := q.Validate(); err == nil {
		t.Error("Validate() accepted min above quoted output")
	}
	var missing *Quote
	if err := missing.Validate(); err == nil {
		t.Error("Validate() accepted nil quote")
	}
}
