package console

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/dma-strategies/business/blockchain/domain"
	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/business/strategy/domain"
	"github.com/fd1az/dma-strategies/internal/asset"
)

var category = positionDomain.Category{
	MaxLoanToValue:       decimal.RequireFromString("0.8"),
	LiquidationThreshold: decimal.RequireFromString("0.825"),
}

func position(coll, debt int64) positionDomain.Position {
	return positionDomain.NewPosition(
		asset.NewAmountFromInt64(asset.USDC, debt*1e6),
		asset.NewAmountFromInt64(asset.WETH, coll*1e18),
		decimal.NewFromInt(2000),
		category,
	)
}

func TestReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	res := &domain.Result{
		Transaction: domain.Transaction{
			OperationName: "OpenAAVEV3Position",
			To:            common.HexToAddress("0x00000000000000000000000000000000000000e1"),
			Data:          make([]byte, 68),
			Value:         big.NewInt(1e18),
			Gas:           blockchainDomain.CalculateGasEstimate(1_000_000, blockchainDomain.NewGasPrice(big.NewInt(20e9))),
		},
		Simulation: &simDomain.Transition{
			Current: position(0, 0),
			Target:  position(2, 2000),
			Deposit: asset.NewAmountFromInt64(asset.WETH, 1e18),
			Borrow:  asset.NewAmountFromInt64(asset.USDC, 2000e6),
			Issues: positionDomain.Issues{
				{Kind: positionDomain.IssueWarning, Name: positionDomain.YieldLoopCloseToLiquidation},
			},
		},
	}

	NewReporter(&buf).Report(res)
	out := buf.String()

	require.Contains(t, out, "OpenAAVEV3Position")
	require.Contains(t, out, "0.000000 USDC -> 2000.000000 USDC")
	require.Contains(t, out, "0.5000")
	require.Contains(t, out, "Borrow")
	require.NotContains(t, out, "Flashloan")
	require.Contains(t, out, "! "+positionDomain.YieldLoopCloseToLiquidation)
	require.Contains(t, out, "68 bytes")
	require.Contains(t, out, "1.000000 ETH")
	require.Contains(t, out, "1000000 (0.020000 ETH)")
}

func TestReporter_ReportWithoutSimulation(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).Report(&domain.Result{Transaction: domain.Transaction{OperationName: "CloseSparkPosition"}})

	out := buf.String()
	require.Contains(t, out, "CloseSparkPosition")
	require.NotContains(t, out, "POSITION")
	require.False(t, strings.Contains(out, "Value"))
}

func TestReporter_ReportView(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).ReportView(&domain.View{
		Position:   position(1, 1500),
		Collateral: asset.WETH,
		Debt:       asset.USDC,
		EMode:      &protocolDomain.EModeCategory{ID: 1},
	})

	out := buf.String()
	require.Contains(t, out, "WETH/USDC")
	require.Contains(t, out, "0.7500")
	require.Contains(t, out, "1.1000")
	require.Contains(t, out, "E-Mode")
}

func TestReporter_ViewWithoutDebt(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).ReportView(&domain.View{Position: position(1, 0), Collateral: asset.WETH, Debt: asset.USDC})

	require.Contains(t, buf.String(), "no debt")
}
