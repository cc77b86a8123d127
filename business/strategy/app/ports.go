// Package app runs the strategy pipeline: read the position, simulate the move, build the
// executor operation and encode the transaction.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/dma-strategies/business/blockchain/domain"
	simApp "github.com/fd1az/dma-strategies/business/simulation/app"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
)

// Simulator prices position transitions.
type Simulator interface {
	SimulateAdjust(ctx context.Context, args simApp.AdjustArgs) (*simDomain.Transition, error)
	SimulateClose(ctx context.Context, args simApp.CloseArgs) (*simDomain.Transition, error)
	SimulateLegs(ctx context.Context, args simApp.LegsArgs) (*simDomain.Transition, error)
}

// GasEstimator prices a built transaction.
type GasEstimator interface {
	Estimate(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (*blockchainDomain.GasEstimate, error)
}
