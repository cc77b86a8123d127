package mockexchange

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/internal/asset"
)

func TestExchange_Quotes(t *testing.T) {
	ex, err := New(common.HexToAddress("0x0000000000000000000000000000000000000abc"))
	require.NoError(t, err)
	ex.SetPrice(asset.WETH, decimal.NewFromInt(2000))
	ex.SetPrice(asset.USDC, decimal.NewFromInt(1))

	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	q, err := ex.GetSwapData(context.Background(), asset.AddrWETHEthereum, asset.AddrUSDCEthereum,
		oneEth, decimal.RequireFromString("0.005"))
	require.NoError(t, err)
	require.Equal(t, "2000000000", q.ToTokenAmount.String())
	require.Equal(t, "1990000000", q.MinToTokenAmount.String())
	require.Len(t, q.ExchangeCalldata, 4+4*32)

	// selector of swap(address,address,uint256,uint256) is deterministic
	again, err := ex.GetSwapData(context.Background(), asset.AddrWETHEthereum, asset.AddrUSDCEthereum,
		oneEth, decimal.RequireFromString("0.005"))
	require.NoError(t, err)
	require.Equal(t, q.ExchangeCalldata, again.ExchangeCalldata)

	ex.SetSpread(decimal.RequireFromString("0.01"))
	q, err = ex.GetSwapData(context.Background(), asset.AddrUSDCEthereum, asset.AddrWETHEthereum,
		big.NewInt(2_000_000_000), decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, "990000000000000000", q.ToTokenAmount.String())
}

func TestExchange_UnknownToken(t *testing.T) {
	ex, err := New(common.Address{})
	require.NoError(t, err)
	ex.SetPrice(asset.WETH, decimal.NewFromInt(2000))

	_, err = ex.GetSwapData(context.Background(), asset.AddrWETHEthereum, asset.AddrDAIEthereum,
		big.NewInt(1), decimal.Zero)
	require.Error(t, err)
}
