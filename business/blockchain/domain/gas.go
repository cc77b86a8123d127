// Package domain contains the gas types returned alongside built transactions.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasPrice represents gas price information.
type GasPrice struct {
	Wei       *big.Int
	Gwei      float64
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	gwei, _ := decimal.NewFromBigInt(wei, -9).Float64()
	return &GasPrice{
		Wei:       wei,
		Gwei:      gwei,
		Timestamp: time.Now(),
	}
}

// GasEstimate is the expected cost of running a transaction.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
	// Defaulted is set when the node could not estimate and the configured default was used.
	Defaulted bool
}

// CalculateGasEstimate computes the total gas cost.
func CalculateGasEstimate(gasLimit uint64, gasPrice *GasPrice) *GasEstimate {
	totalWei := new(big.Int).Mul(gasPrice.Wei, new(big.Int).SetUint64(gasLimit))
	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		TotalWei: totalWei,
	}
}

// TotalETH is the cost in whole ETH.
func (e *GasEstimate) TotalETH() decimal.Decimal {
	return decimal.NewFromBigInt(e.TotalWei, -18)
}

// WithMargin adds pct percent to a gas limit, rounding up.
func WithMargin(gas uint64, pct uint64) uint64 {
	return gas + (gas*pct+99)/100
}
