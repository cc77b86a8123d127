package aave

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
)

var (
	dataProvider = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	oracle       = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	pool         = common.HexToAddress("0x00000000000000000000000000000000000000d3")
	proxy        = common.HexToAddress("0x00000000000000000000000000000000000000f2")
)

// fakeChain answers eth_call by contract and method, packing the configured outputs.
type fakeChain struct {
	t       *testing.T
	abis    map[common.Address]abi.ABI
	results map[string][]any
	fail    error
	calls   int
}

func newFakeChain(t *testing.T) *fakeChain {
	parse := func(s string) abi.ABI {
		a, err := abi.JSON(strings.NewReader(s))
		require.NoError(t, err)
		return a
	}
	return &fakeChain{
		t: t,
		abis: map[common.Address]abi.ABI{
			dataProvider: parse(DataProviderABI),
			oracle:       parse(OracleABI),
			pool:         parse(PoolABI),
		},
		results: map[string][]any{},
	}
}

func (c *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	contract, ok := c.abis[*msg.To]
	require.True(c.t, ok, "unexpected contract %s", msg.To.Hex())
	method, err := contract.MethodById(msg.Data[:4])
	require.NoError(c.t, err)

	out, ok := c.results[method.Name]
	require.True(c.t, ok, "no result for %s", method.Name)
	return method.Outputs.Pack(out...)
}

func (c *fakeChain) reserveConfig(ltv, threshold, bonus int64) {
	c.results["getReserveConfigurationData"] = []any{
		big.NewInt(18), big.NewInt(ltv), big.NewInt(threshold), big.NewInt(bonus), big.NewInt(1000),
		true, true, false, true, false,
	}
}

func newFetcher(t *testing.T, p domain.Protocol, chain *fakeChain) *Fetcher {
	f, err := NewFetcher(chain, Config{Protocol: p, DataProvider: dataProvider, Oracle: oracle, Pool: pool}, logger.NewDiscard())
	require.NoError(t, err)
	return f
}

func TestFetchReserveData_V3(t *testing.T) {
	chain := newFakeChain(t)
	chain.reserveConfig(8050, 8300, 10500)
	chain.results["getReserveCaps"] = []any{big.NewInt(1_400_000), big.NewInt(1_800_000)}
	chain.results["getATokenTotalSupply"] = []any{new(big.Int).Mul(big.NewInt(1_000_000), asset.WETH.OneUnit().Raw())}
	chain.results["getTotalDebt"] = []any{new(big.Int).Mul(big.NewInt(900_000), asset.WETH.OneUnit().Raw())}

	data, err := newFetcher(t, domain.AaveV3, chain).FetchReserveData(context.Background(), asset.WETH)
	require.NoError(t, err)

	require.Equal(t, "0.805", data.LTV.String())
	require.Equal(t, "0.83", data.LiquidationThreshold.String())
	require.Equal(t, "0.05", data.LiquidationBonus.String())
	require.Equal(t, "1400000", data.BorrowCap.String())
	require.Equal(t, "1800000", data.SupplyCap.String())
	require.Equal(t, "1000000", data.TotalSupply.String())
	require.Equal(t, "900000", data.TotalDebt.String())
}

func TestFetchReserveData_V2HasNoCaps(t *testing.T) {
	chain := newFakeChain(t)
	chain.reserveConfig(8000, 8250, 10500)
	unit := asset.USDC.OneUnit().Raw()
	chain.results["getReserveData"] = []any{
		new(big.Int).Mul(big.NewInt(100), unit), // available
		new(big.Int).Mul(big.NewInt(10), unit),  // stable debt
		new(big.Int).Mul(big.NewInt(40), unit),  // variable debt
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
		big.NewInt(0),
	}

	data, err := newFetcher(t, domain.AaveV2, chain).FetchReserveData(context.Background(), asset.USDC)
	require.NoError(t, err)

	require.True(t, data.BorrowCap.IsZero())
	require.True(t, data.SupplyCap.IsZero())
	require.Equal(t, "50", data.TotalDebt.String())
	require.Equal(t, "150", data.TotalSupply.String())
}

func TestFetchUserReserveData(t *testing.T) {
	chain := newFakeChain(t)
	chain.results["getUserReserveData"] = []any{
		big.NewInt(2e18), big.NewInt(0), big.NewInt(1500e6), big.NewInt(0), big.NewInt(0),
		big.NewInt(0), big.NewInt(0), big.NewInt(0), true,
	}

	data, err := newFetcher(t, domain.Spark, chain).FetchUserReserveData(context.Background(), asset.WETH, proxy)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2e18), data.CurrentATokenBalance)
	require.Equal(t, big.NewInt(1500e6), data.CurrentVariableDebt)
}

func TestFetchAssetPrice_Decimals(t *testing.T) {
	tests := []struct {
		name     string
		protocol domain.Protocol
		raw      *big.Int
		want     string
	}{
		{"v3 usd 8 decimals", domain.AaveV3, big.NewInt(200_000_000_000), "2000"},
		{"v2 eth 18 decimals", domain.AaveV2, big.NewInt(500_000_000_000_000), "0.0005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain(t)
			chain.results["getAssetPrice"] = []any{tt.raw}

			price, err := newFetcher(t, tt.protocol, chain).FetchAssetPrice(context.Background(), asset.WETH)
			require.NoError(t, err)
			require.Equal(t, tt.want, price.String())
		})
	}
}

func TestFetchEModeCategoryData(t *testing.T) {
	chain := newFakeChain(t)
	chain.results["getEModeCategoryData"] = []any{struct {
		Ltv                  uint16
		LiquidationThreshold uint16
		LiquidationBonus     uint16
		PriceSource          common.Address
		Label                string
	}{9300, 9500, 10100, common.Address{}, "ETH correlated"}}

	cat, err := newFetcher(t, domain.AaveV3, chain).FetchEModeCategoryData(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint8(1), cat.ID)
	require.Equal(t, "0.93", cat.LTV.String())
	require.Equal(t, "0.95", cat.LiquidationThreshold.String())
	require.Equal(t, "ETH correlated", cat.Label)
}

func TestFetchEModeCategoryData_V2Unsupported(t *testing.T) {
	chain := newFakeChain(t)
	_, err := newFetcher(t, domain.AaveV2, chain).FetchEModeCategoryData(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, apperror.CodeEModeUnsupported, apperror.GetCode(err))
	require.Zero(t, chain.calls)
}

func TestFetcher_CallFailureIsExternal(t *testing.T) {
	chain := newFakeChain(t)
	chain.fail = errors.New("connection refused")

	_, err := newFetcher(t, domain.AaveV3, chain).FetchAssetPrice(context.Background(), asset.WETH)
	require.Error(t, err)
	require.Equal(t, apperror.CodeContractCallFailed, apperror.GetCode(err))
}

func TestNewFetcher_RejectsMorpho(t *testing.T) {
	_, err := NewFetcher(newFakeChain(t), Config{Protocol: domain.MorphoBlue}, logger.NewDiscard())
	require.Error(t, err)
}
