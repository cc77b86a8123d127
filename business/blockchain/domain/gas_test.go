package domain

import (
	"math/big"
	"testing"
)

func TestCalculateGasEstimate(t *testing.T) {
	price := NewGasPrice(big.NewInt(20_000_000_000)) // 20 gwei
	if price.Gwei != 20 {
		t.Fatalf("Gwei = %v, want 20", price.Gwei)
	}

	est := CalculateGasEstimate(1_500_000, price)
	if want := big.NewInt(30_000_000_000_000_000); est.TotalWei.Cmp(want) != 0 {
		t.Errorf("TotalWei = %s, want %s", est.TotalWei, want)
	}
	if got := est.TotalETH().String(); got != "0.03" {
		t.Errorf("TotalETH = %s, want 0.03", got)
	}
}

func TestWithMargin(t *testing.T) {
	tests := []struct {
		gas, pct, want uint64
	}{
		{1000, 10, 1100},
		{1001, 10, 1102},
		{0, 10, 0},
		{1000, 0, 1000},
	}
	for _, tt := range tests {
		if got := WithMargin(tt.gas, tt.pct); got != tt.want {
			t.Errorf("WithMargin(%d, %d) = %d, want %d", tt.gas, tt.pct, got, tt.want)
		}
	}
}
