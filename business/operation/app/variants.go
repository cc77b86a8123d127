package app

import (
	"math/big"

	"github.com/fd1az/dma-strategies/business/operation/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
)

var (
	_ ProtocolAdapter = (*AaveV2Adapter)(nil)
	_ ProtocolAdapter = (*AaveV3Adapter)(nil)
	_ ProtocolAdapter = (*SparkAdapter)(nil)
	_ ProtocolAdapter = (*MorphoBlueAdapter)(nil)
)

func aave(Args) (lendingEncoder, error) { return aaveEncoder{}, nil }

// AaveV2Adapter flashloans the network flashloan token and deposits it as temporary
// collateral, since v2 cannot flashloan into a position directly.
type AaveV2Adapter struct{ builder }

func NewAaveV2Adapter(defs *domain.Definitions) *AaveV2Adapter {
	return &AaveV2Adapter{newBuilder(protocolDomain.AaveV2, defs, aave)}
}

// AaveV3Adapter flashloans the debt token.
type AaveV3Adapter struct{ builder }

func NewAaveV3Adapter(defs *domain.Definitions) *AaveV3Adapter {
	return &AaveV3Adapter{newBuilder(protocolDomain.AaveV3, defs, aave)}
}

// SparkAdapter is the Aave v3 shape against Spark's pool.
type SparkAdapter struct{ builder }

func NewSparkAdapter(defs *domain.Definitions) *SparkAdapter {
	return &SparkAdapter{newBuilder(protocolDomain.Spark, defs, aave)}
}

// MorphoBlueAdapter addresses a single market instead of a reserve.
type MorphoBlueAdapter struct{ builder }

func NewMorphoBlueAdapter(defs *domain.Definitions) *MorphoBlueAdapter {
	return &MorphoBlueAdapter{newBuilder(protocolDomain.MorphoBlue, defs, morpho)}
}

func morpho(args Args) (lendingEncoder, error) {
	if args.Market == nil {
		return nil, apperror.Validation(apperror.CodeRequiredField, "MorphoBlue operations need market params")
	}
	m := args.Market
	lltv := m.LLTV
	if lltv == nil {
		lltv = new(big.Int)
	}
	return morphoEncoder{market: domain.MarketParams{
		LoanToken:       m.LoanToken,
		CollateralToken: m.CollateralToken,
		Oracle:          m.Oracle,
		Irm:             m.IRM,
		Lltv:            lltv,
	}}, nil
}
