package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	position "github.com/fd1az/dma-strategies/business/position/domain"
	swapDomain "github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// Delta is the signed change in raw units applied to the position, plus the flashloan.
type Delta struct {
	Collateral *big.Int `json:"collateral"`
	Debt       *big.Int `json:"debt"`
	Flashloan  *big.Int `json:"flashloanAmount"`
}

// Swap is the swap leg of a transition after the accurate quote.
type Swap struct {
	SourceToken      *asset.Asset
	TargetToken      *asset.Asset
	FromTokenAmount  asset.Amount
	ToTokenAmount    asset.Amount
	MinToTokenAmount asset.Amount
	ExchangeCalldata []byte
	ExchangeAddress  common.Address
	FeeBps           int64
	CollectFeeFrom   swapDomain.FeeSide
	// TokenFee is whichever of PreSwapFee and PostSwapFee applies.
	TokenFee    asset.Amount
	PreSwapFee  asset.Amount
	PostSwapFee asset.Amount
}

// Flags summarise the shape of the transition for the operation builder.
type Flags struct {
	IsIncreasingRisk  bool `json:"isIncreasingRisk"`
	RequiresFlashloan bool `json:"requiresFlashloan"`
	UsesSwap          bool `json:"usesSwap"`
}

// Transition is a simulated move from one position to another.
type Transition struct {
	Delta Delta
	// Swap is nil when the transition does not trade.
	Swap      *Swap
	Flags     Flags
	Flashloan asset.Amount
	// Borrow, Payback, Deposit and Withdraw are the amounts the operation moves, which can
	// differ from Delta when a flashloan is deposited or repaid inside the operation.
	Deposit  asset.Amount
	Borrow   asset.Amount
	Payback  asset.Amount
	Withdraw asset.Amount

	Current                  position.Position
	Target                   position.Position
	MinConfigurableRiskRatio position.RiskRatio
	Issues                   position.Issues
}

// NewDelta computes the raw change between two positions.
func NewDelta(from, to position.Position, flashloan asset.Amount) Delta {
	flRaw := big.NewInt(0)
	if flashloan.Asset() != nil {
		flRaw = flashloan.Raw()
	}
	return Delta{
		Collateral: new(big.Int).Sub(to.Collateral().Raw(), from.Collateral().Raw()),
		Debt:       new(big.Int).Sub(to.Debt().Raw(), from.Debt().Raw()),
		Flashloan:  flRaw,
	}
}

// PostSwapFeeEstimate charges feeBps on an expected output inflated by FeeEstimateInflator,
// so slippage on execution cannot leave the collected fee short.
func PostSwapFeeEstimate(expectedOut asset.Amount, feeBps int64) asset.Amount {
	inflated := expectedOut.MulDecimal(one.Add(FeeEstimateInflator), asset.RoundUp)
	return swapDomain.CalculateFee(inflated, feeBps, asset.RoundDown)
}
