// Package domain holds the request and result shapes of the strategy entry points.
package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/dma-strategies/business/blockchain/domain"
	opDomain "github.com/fd1az/dma-strategies/business/operation/domain"
	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// Position types recorded by PositionCreated.
const (
	PositionTypeMultiply = "Multiply"
	PositionTypeEarn     = "Earn"
	PositionTypeBorrow   = "Borrow"
)

// PositionRef locates a position and names the tokens the user pays and receives in.
// Either token may be the native coin; the position itself holds the wrapped token.
type PositionRef struct {
	Protocol      protocolDomain.Protocol
	Collateral    *asset.Asset
	Debt          *asset.Asset
	Proxy         common.Address
	User          common.Address
	EModeCategory uint8
	// MarketID selects the MorphoBlue market.
	MarketID     common.Hash
	PositionType string
}

// IsEarn reports whether the position is a yield loop.
func (r PositionRef) IsEarn() bool {
	return strings.EqualFold(r.PositionType, PositionTypeEarn)
}

// OpenRequest opens a position at Target from a deposit.
type OpenRequest struct {
	Position          PositionRef
	Target            positionDomain.RiskRatio
	DepositCollateral asset.Amount
	DepositDebt       asset.Amount
	// Slippage falls back to the configured default when zero.
	Slippage decimal.Decimal
}

// AdjustRequest moves an open position to Target.
type AdjustRequest struct {
	Position          PositionRef
	Target            positionDomain.RiskRatio
	DepositCollateral asset.Amount
	DepositDebt       asset.Amount
	Slippage          decimal.Decimal
}

// CloseRequest repays all debt and withdraws all collateral.
type CloseRequest struct {
	Position PositionRef
	To       simDomain.CloseTo
	Slippage decimal.Decimal
}

// DepositBorrowRequest adds collateral and draws debt without a swap.
type DepositBorrowRequest struct {
	Position          PositionRef
	DepositCollateral asset.Amount
	Borrow            asset.Amount
	// BorrowToTarget replaces Borrow with the debt that lands the position on the ratio.
	BorrowToTarget *positionDomain.RiskRatio
}

// PaybackWithdrawRequest repays debt and removes collateral without a swap.
type PaybackWithdrawRequest struct {
	Position PositionRef
	Payback  asset.Amount
	Withdraw asset.Amount
}

// View is the current state of a position.
type View struct {
	Position   positionDomain.Position
	Collateral *asset.Asset
	Debt       *asset.Asset
	// CollateralPrice and DebtPrice are in the protocol oracle's base currency.
	CollateralPrice decimal.Decimal
	DebtPrice       decimal.Decimal
	EMode           *protocolDomain.EModeCategory
	Market          *protocolDomain.MarketParams
}

// Transaction is the signable payload of a strategy plus the calls it encodes.
type Transaction struct {
	OperationName string
	Calls         []opDomain.ActionCall
	To            common.Address
	Data          []byte
	Value         *big.Int
	// Gas is nil unless estimation was requested and succeeded.
	Gas *blockchainDomain.GasEstimate
}

// Result is what every strategy returns.
type Result struct {
	Transaction Transaction
	Simulation  *simDomain.Transition
}
