package oneinch

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
)

const swapBody = `{
  "fromToken": {"address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "decimals": 6},
  "toToken": {"address": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "decimals": 18},
  "fromTokenAmount": "2000000000",
  "toTokenAmount": "1000000000000000000",
  "tx": {"to": "0x1111111254eeb25477b68fb85ed929f73a960582", "data": "0x12aa3caf00", "value": "0"}
}`

func TestClient_GetSwapData(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(swapBody))
	}))
	defer srv.Close()

	swapContract := common.HexToAddress("0x826E9f2E79cEEA850dF4d4757e0D12115A720D74")
	c, err := NewClient(Config{
		BaseURL:     srv.URL,
		APIKey:      "key",
		ChainID:     1,
		SwapAddress: swapContract,
		Protocols:   []string{"UNISWAP_V3", "CURVE"},
	}, logger.NewDiscard())
	require.NoError(t, err)

	q, err := c.GetSwapData(context.Background(), asset.AddrUSDCEthereum, asset.AddrWETHEthereum,
		big.NewInt(2_000_000_000), decimal.RequireFromString("0.01"))
	require.NoError(t, err)

	require.Equal(t, "/v5.2/1/swap", got.URL.Path)
	require.Equal(t, "Bearer key", got.Header.Get("Authorization"))
	require.Equal(t, "1", got.URL.Query().Get("slippage"))
	require.Equal(t, swapContract.Hex(), got.URL.Query().Get("fromAddress"))
	require.Equal(t, "UNISWAP_V3,CURVE", got.URL.Query().Get("protocols"))

	require.Equal(t, "1000000000000000000", q.ToTokenAmount.String())
	require.Equal(t, "990000000000000000", q.MinToTokenAmount.String())
	require.Equal(t, []byte{0x12, 0xaa, 0x3c, 0xaf, 0x00}, q.ExchangeCalldata)
	require.Equal(t, common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582"), q.ExchangeAddress)
	require.Equal(t, asset.AddrWETHEthereum, q.ToTokenAddress)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode":400,"error":"Bad Request","description":"insufficient liquidity"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, ChainID: 10}, logger.NewDiscard())
	require.NoError(t, err)

	_, err = c.GetSwapData(context.Background(), asset.AddrUSDCEthereum, asset.AddrWETHEthereum,
		big.NewInt(1), decimal.Zero)
	require.Error(t, err)
	require.Equal(t, apperror.CodeSwapQuoteFailed, apperror.GetCode(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "insufficient liquidity", apiErr.Description)
}
