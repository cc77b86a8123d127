// Package domain contains the lending protocol identifiers and the reserve and user data
// read from protocol view contracts.
package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/internal/apperror"
)

// Protocol is a supported lending protocol.
type Protocol uint8

const (
	AaveV2 Protocol = iota + 1
	AaveV3
	Spark
	MorphoBlue
)

// Protocols lists every supported protocol.
var Protocols = []Protocol{AaveV2, AaveV3, Spark, MorphoBlue}

func (p Protocol) String() string {
	switch p {
	case AaveV2:
		return "aave-v2"
	case AaveV3:
		return "aave-v3"
	case Spark:
		return "spark"
	case MorphoBlue:
		return "morpho-blue"
	default:
		return fmt.Sprintf("protocol(%d)", uint8(p))
	}
}

// OperationTag is the protocol segment of operation names.
func (p Protocol) OperationTag() string {
	switch p {
	case AaveV2:
		return "AAVE"
	case AaveV3:
		return "AAVEV3"
	case Spark:
		return "Spark"
	case MorphoBlue:
		return "MorphoBlue"
	default:
		return ""
	}
}

// HasEMode reports whether the protocol groups assets into efficiency mode categories.
func (p Protocol) HasEMode() bool {
	return p == AaveV3 || p == Spark
}

// ParseProtocol accepts the String form and a few common spellings.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "aave-v2", "aavev2":
		return AaveV2, nil
	case "aave-v3", "aavev3", "aave":
		return AaveV3, nil
	case "spark":
		return Spark, nil
	case "morpho-blue", "morphoblue", "morpho":
		return MorphoBlue, nil
	}
	return 0, apperror.Validation(apperror.CodeUnsupportedProtocolVersion,
		fmt.Sprintf("No operation found for Aave protocol version %q", s))
}

// ReserveData are a reserve's risk parameters as fractions plus caps and totals in whole
// token units. A zero cap is unlimited.
type ReserveData struct {
	LTV                  decimal.Decimal
	LiquidationThreshold decimal.Decimal
	LiquidationBonus     decimal.Decimal
	BorrowCap            decimal.Decimal
	SupplyCap            decimal.Decimal
	TotalDebt            decimal.Decimal
	TotalSupply          decimal.Decimal
}

// UserReserveData are a user's raw balances in one reserve.
type UserReserveData struct {
	CurrentATokenBalance *big.Int
	CurrentVariableDebt  *big.Int
}

// EModeCategory are the risk parameters of an efficiency mode category.
type EModeCategory struct {
	ID                   uint8
	LTV                  decimal.Decimal
	LiquidationThreshold decimal.Decimal
	LiquidationBonus     decimal.Decimal
	Label                string
}

// MarketParams identify a MorphoBlue market.
type MarketParams struct {
	LoanToken       common.Address
	CollateralToken common.Address
	Oracle          common.Address
	IRM             common.Address
	LLTV            *big.Int
}
