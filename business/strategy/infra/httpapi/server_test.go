package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/business/strategy/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/network"
)

var executor = common.HexToAddress("0x00000000000000000000000000000000000000e1")

type fakeStrategies struct {
	calls   []string
	open    domain.OpenRequest
	adjust  domain.AdjustRequest
	close   domain.CloseRequest
	borrow  domain.DepositBorrowRequest
	payback domain.PaybackWithdrawRequest
	view    domain.PositionRef
	err     error
}

func (f *fakeStrategies) result(name string) (*domain.Result, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Result{Transaction: domain.Transaction{
		OperationName: name,
		To:            executor,
		Data:          []byte{0xde, 0xad},
		Value:         big.NewInt(0),
	}}, nil
}

func (f *fakeStrategies) View(_ context.Context, ref domain.PositionRef) (*domain.View, error) {
	f.view = ref
	if f.err != nil {
		return nil, f.err
	}
	pos := positionDomain.NewPosition(
		asset.NewAmountFromInt64(ref.Debt, 1000e6),
		asset.NewAmountFromInt64(ref.Collateral, 1e18),
		decimal.NewFromInt(2000),
		positionDomain.Category{MaxLoanToValue: decimal.RequireFromString("0.8"), LiquidationThreshold: decimal.RequireFromString("0.825")},
	)
	return &domain.View{Position: pos, Collateral: ref.Collateral, Debt: ref.Debt, CollateralPrice: decimal.NewFromInt(2000), DebtPrice: decimal.NewFromInt(1)}, nil
}

func (f *fakeStrategies) Open(_ context.Context, req domain.OpenRequest) (*domain.Result, error) {
	f.open = req
	return f.result("open")
}

func (f *fakeStrategies) Adjust(_ context.Context, req domain.AdjustRequest) (*domain.Result, error) {
	f.adjust = req
	return f.result("adjust")
}

func (f *fakeStrategies) AdjustUp(_ context.Context, req domain.AdjustRequest) (*domain.Result, error) {
	f.adjust = req
	return f.result("adjust-up")
}

func (f *fakeStrategies) AdjustDown(_ context.Context, req domain.AdjustRequest) (*domain.Result, error) {
	f.adjust = req
	return f.result("adjust-down")
}

func (f *fakeStrategies) Close(_ context.Context, req domain.CloseRequest) (*domain.Result, error) {
	f.close = req
	return f.result("close")
}

func (f *fakeStrategies) DepositBorrow(_ context.Context, req domain.DepositBorrowRequest) (*domain.Result, error) {
	f.borrow = req
	return f.result("deposit-borrow")
}

func (f *fakeStrategies) PaybackWithdraw(_ context.Context, req domain.PaybackWithdrawRequest) (*domain.Result, error) {
	f.payback = req
	return f.result("payback-withdraw")
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStrategies) {
	t.Helper()
	table, err := network.Load()
	require.NoError(t, err)
	mainnet, err := table.Get(network.Mainnet)
	require.NoError(t, err)

	fake := &fakeStrategies{}
	srv := NewServer(0, NewDispatcher(fake, mainnet), logger.NewDiscard())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, fake
}

func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Open(t *testing.T) {
	ts, fake := newTestServer(t)

	resp := post(t, ts, "/v1/strategies/aave-v3/open", map[string]any{
		"collateralToken":   "WETH",
		"debtToken":         "USDC",
		"proxy":             "0x00000000000000000000000000000000000000f2",
		"riskRatio":         map[string]string{"value": "2", "type": "MULTIPLE"},
		"depositCollateral": "1.5",
		"slippage":          "0.005",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "open", out.Transaction.OperationName)
	require.Equal(t, executor.Hex(), out.Transaction.To)
	require.Equal(t, "0xdead", out.Transaction.Data)

	require.Equal(t, protocolDomain.AaveV3, fake.open.Position.Protocol)
	require.Equal(t, "WETH", fake.open.Position.Collateral.Symbol())
	require.Equal(t, "1.5", fake.open.DepositCollateral.ToDecimal().String())
	require.True(t, fake.open.DepositDebt.IsZero())
	require.Equal(t, positionDomain.Multiple, fake.open.Target.Type())
	require.Equal(t, "0.005", fake.open.Slippage.String())
}

func TestServer_Actions(t *testing.T) {
	tests := []struct {
		action string
		body   map[string]any
	}{
		{ActionAdjust, map[string]any{"riskRatio": map[string]string{"value": "0.6", "type": "LTV"}}},
		{ActionAdjustUp, map[string]any{"riskRatio": map[string]string{"value": "0.7", "type": "LTV"}}},
		{ActionAdjustDown, map[string]any{"riskRatio": map[string]string{"value": "0.3", "type": "LTV"}}},
		{ActionClose, map[string]any{"closeTo": "collateral"}},
		{ActionDepositBorrow, map[string]any{"depositCollateral": "1", "borrow": "100"}},
		{ActionPaybackWithdraw, map[string]any{"payback": "100", "withdraw": "0.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			ts, fake := newTestServer(t)
			tt.body["collateralToken"] = "WETH"
			tt.body["debtToken"] = "DAI"

			resp := post(t, ts, "/v1/strategies/spark/"+tt.action, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, []string{tt.action}, fake.calls)
		})
	}
}

func TestServer_CloseParsesTarget(t *testing.T) {
	ts, fake := newTestServer(t)

	resp := post(t, ts, "/v1/strategies/aave-v2/close", map[string]any{
		"collateralToken": "WETH", "debtToken": "USDC", "closeTo": "debt",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, simDomain.CloseToDebt, fake.close.To)
	require.Equal(t, protocolDomain.AaveV2, fake.close.Position.Protocol)
}

func TestServer_TokenByAddress(t *testing.T) {
	ts, fake := newTestServer(t)
	table, err := network.Load()
	require.NoError(t, err)
	mainnet, err := table.Get(network.Mainnet)
	require.NoError(t, err)
	usdc, err := mainnet.Token("USDC")
	require.NoError(t, err)

	resp := post(t, ts, "/v1/strategies/aave-v3/deposit-borrow", map[string]any{
		"collateralToken": "WETH", "debtToken": usdc.Address().Hex(), "borrow": "250",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "USDC", fake.borrow.Borrow.Asset().Symbol())
	require.Equal(t, "250", fake.borrow.Borrow.ToDecimal().String())
}

func TestServer_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body map[string]any
		code apperror.Code
	}{
		{
			name: "unknown protocol",
			path: "/v1/strategies/compound/open",
			body: map[string]any{"collateralToken": "WETH", "debtToken": "USDC"},
			code: apperror.CodeUnsupportedProtocolVersion,
		},
		{
			name: "missing risk ratio",
			path: "/v1/strategies/aave-v3/open",
			body: map[string]any{"collateralToken": "WETH", "debtToken": "USDC", "depositCollateral": "1"},
			code: apperror.CodeRequiredField,
		},
		{
			name: "bad amount",
			path: "/v1/strategies/aave-v3/deposit-borrow",
			body: map[string]any{"collateralToken": "WETH", "debtToken": "USDC", "borrow": "lots"},
			code: apperror.CodeInvalidAmount,
		},
		{
			name: "morpho without market",
			path: "/v1/strategies/morpho-blue/close",
			body: map[string]any{"collateralToken": "WSTETH", "debtToken": "WETH"},
			code: apperror.CodeRequiredField,
		},
		{
			name: "unknown action",
			path: "/v1/strategies/aave-v3/migrate",
			body: map[string]any{"collateralToken": "WETH", "debtToken": "USDC"},
			code: apperror.CodeInvalidInput,
		},
		{
			name: "unknown field",
			path: "/v1/strategies/aave-v3/open",
			body: map[string]any{"collateralToken": "WETH", "debtToken": "USDC", "leverage": 3},
			code: apperror.CodeInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, fake := newTestServer(t)

			resp := post(t, ts, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out struct {
				Error struct {
					Code apperror.Code `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			require.Equal(t, tt.code, out.Error.Code)
			require.Empty(t, fake.calls)
		})
	}
}

func TestServer_ServiceErrorStatus(t *testing.T) {
	ts, fake := newTestServer(t)
	fake.err = apperror.New(apperror.CodeEthereumRPCError)

	resp := post(t, ts, "/v1/strategies/aave-v3/close", map[string]any{"collateralToken": "WETH", "debtToken": "USDC"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_Position(t *testing.T) {
	ts, fake := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/positions/spark?collateral=WETH&debt=DAI&proxy=0x00000000000000000000000000000000000000f2&eModeCategory=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ViewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "1", out.Position.Collateral.Amount)
	require.Equal(t, "WETH", out.Position.Collateral.Token)
	require.Equal(t, "2000", out.CollateralPrice)

	require.Equal(t, uint8(1), fake.view.EModeCategory)
	require.Equal(t, protocolDomain.Spark, fake.view.Protocol)
}

func TestServer_PositionRejectsBadEMode(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/positions/aave-v3?collateral=WETH&debt=USDC&eModeCategory=high")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
