// Package morpho reads Morpho Blue market state for one market id.
package morpho

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dma-strategies/business/protocol/app"
	"github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/circuitbreaker"
	"github.com/fd1az/dma-strategies/internal/logger"
)

const (
	tracerName = "morpho"
	meterName  = "morpho"

	// oraclePriceScale is the fixed part of the oracle price exponent.
	oraclePriceScale = 36
	// wadDecimals is the precision of LLTV.
	wadDecimals = 18
)

var (
	_ app.DataFetcher  = (*Fetcher)(nil)
	_ app.MarketReader = (*Fetcher)(nil)
)

var (
	virtualShares = big.NewInt(1_000_000)
	virtualAssets = big.NewInt(1)

	maxLiquidationIncentive = decimal.RequireFromString("1.15")
	liquidationCursor       = decimal.RequireFromString("0.3")
)

// Config selects one market.
type Config struct {
	Morpho   common.Address
	MarketID common.Hash
	// Loan is the market's loan token. Oracle prices are scaled by its decimals.
	Loan *asset.Asset
}

type fetcherMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// Fetcher implements DataFetcher for a single Morpho Blue market. Token arguments must be
// the market's loan or collateral token.
type Fetcher struct {
	caller   ethereum.ContractCaller
	morpho   common.Address
	marketID common.Hash
	loan     *asset.Asset

	morphoABI abi.ABI
	oracleABI abi.ABI

	mu     sync.Mutex
	params *domain.MarketParams

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *fetcherMetrics
}

// NewFetcher creates a fetcher for cfg.MarketID on the Morpho contract.
func NewFetcher(caller ethereum.ContractCaller, cfg Config, log logger.LoggerInterface) (*Fetcher, error) {
	if cfg.MarketID == (common.Hash{}) {
		return nil, apperror.Validation(apperror.CodeRequiredField, "morpho market id is required")
	}
	if cfg.Loan == nil {
		return nil, apperror.Validation(apperror.CodeRequiredField, "morpho loan token is required")
	}

	f := &Fetcher{
		caller:   caller,
		morpho:   cfg.Morpho,
		marketID: cfg.MarketID,
		loan:     cfg.Loan,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("morpho-blue")),
	}

	var err error
	if f.morphoABI, err = abi.JSON(strings.NewReader(MorphoABI)); err != nil {
		return nil, fmt.Errorf("failed to parse morpho ABI: %w", err)
	}
	if f.oracleABI, err = abi.JSON(strings.NewReader(OracleABI)); err != nil {
		return nil, fmt.Errorf("failed to parse oracle ABI: %w", err)
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return f, nil
}

func (f *Fetcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &fetcherMetrics{}

	f.metrics.callsTotal, err = meter.Int64Counter(
		"morpho_calls_total",
		metric.WithDescription("Total Morpho view calls"),
	)
	if err != nil {
		return err
	}

	f.metrics.callLatency, err = meter.Float64Histogram(
		"morpho_call_latency_ms",
		metric.WithDescription("Morpho view call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	f.metrics.callErrors, err = meter.Int64Counter(
		"morpho_call_errors_total",
		metric.WithDescription("Total failed Morpho view calls"),
	)
	return err
}

func (f *Fetcher) Protocol() domain.Protocol { return domain.MorphoBlue }

// FetchMarketParams reads the market once per fetcher.
func (f *Fetcher) FetchMarketParams(ctx context.Context) (domain.MarketParams, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.params != nil {
		return *f.params, nil
	}

	out, err := f.call(ctx, f.morpho, f.morphoABI, "idToMarketParams", f.marketID)
	if err != nil {
		return domain.MarketParams{}, err
	}
	params := domain.MarketParams{
		LoanToken:       out[0].(common.Address),
		CollateralToken: out[1].(common.Address),
		Oracle:          out[2].(common.Address),
		IRM:             out[3].(common.Address),
		LLTV:            bigOut(out[4]),
	}
	if params.LoanToken == (common.Address{}) {
		return domain.MarketParams{}, apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("morpho market %s does not exist", f.marketID.Hex()))
	}
	f.params = &params
	return params, nil
}

// FetchReserveData maps LLTV onto both LTV and liquidation threshold. Morpho has no caps
// and tracks no collateral totals, so those stay zero for the collateral token.
func (f *Fetcher) FetchReserveData(ctx context.Context, token *asset.Asset) (domain.ReserveData, error) {
	ctx, span := f.start(ctx, "fetch_reserve_data", token)
	defer span.End()

	params, isLoan, err := f.side(ctx, token)
	if err != nil {
		return fail[domain.ReserveData](span, err)
	}

	lltv := decimal.NewFromBigInt(params.LLTV, -wadDecimals)
	data := domain.ReserveData{
		LTV:                  lltv,
		LiquidationThreshold: lltv,
		LiquidationBonus:     liquidationIncentive(lltv).Sub(decimal.NewFromInt(1)),
	}

	if isLoan {
		out, err := f.call(ctx, f.morpho, f.morphoABI, "market", f.marketID)
		if err != nil {
			return fail[domain.ReserveData](span, err)
		}
		data.TotalSupply = units(token, bigOut(out[0]))
		data.TotalDebt = units(token, bigOut(out[2]))
	}

	span.SetStatus(codes.Ok, "market read")
	return data, nil
}

// FetchUserReserveData converts the proxy's shares to assets. Debt rounds up, supply down.
func (f *Fetcher) FetchUserReserveData(ctx context.Context, token *asset.Asset, proxy common.Address) (domain.UserReserveData, error) {
	ctx, span := f.start(ctx, "fetch_user_reserve_data", token)
	defer span.End()
	span.SetAttributes(attribute.String("proxy", proxy.Hex()))

	_, isLoan, err := f.side(ctx, token)
	if err != nil {
		return fail[domain.UserReserveData](span, err)
	}

	pos, err := f.call(ctx, f.morpho, f.morphoABI, "position", f.marketID, proxy)
	if err != nil {
		return fail[domain.UserReserveData](span, err)
	}
	if !isLoan {
		span.SetStatus(codes.Ok, "collateral read")
		return domain.UserReserveData{CurrentATokenBalance: bigOut(pos[2]), CurrentVariableDebt: new(big.Int)}, nil
	}

	mkt, err := f.call(ctx, f.morpho, f.morphoABI, "market", f.marketID)
	if err != nil {
		return fail[domain.UserReserveData](span, err)
	}
	data := domain.UserReserveData{
		CurrentATokenBalance: toAssetsDown(bigOut(pos[0]), bigOut(mkt[0]), bigOut(mkt[1])),
		CurrentVariableDebt:  toAssetsUp(bigOut(pos[1]), bigOut(mkt[2]), bigOut(mkt[3])),
	}

	span.SetStatus(codes.Ok, "debt read")
	return data, nil
}

// FetchAssetPrice quotes in the loan token: the loan token is 1 and the collateral is the
// market oracle price.
func (f *Fetcher) FetchAssetPrice(ctx context.Context, token *asset.Asset) (decimal.Decimal, error) {
	ctx, span := f.start(ctx, "fetch_asset_price", token)
	defer span.End()

	params, isLoan, err := f.side(ctx, token)
	if err != nil {
		return fail[decimal.Decimal](span, err)
	}
	if isLoan {
		span.SetStatus(codes.Ok, "loan token")
		return decimal.NewFromInt(1), nil
	}

	out, err := f.call(ctx, params.Oracle, f.oracleABI, "price")
	if err != nil {
		return fail[decimal.Decimal](span, err)
	}
	loanDecimals, err := f.loanDecimals(token, params)
	if err != nil {
		return fail[decimal.Decimal](span, err)
	}
	exp := oraclePriceScale + int32(loanDecimals) - int32(token.Decimals())
	price := decimal.NewFromBigInt(bigOut(out[0]), -exp)

	f.logger.Debug(ctx, "morpho oracle price",
		"market", f.marketID.Hex(),
		"token", token.Symbol(),
		"price", price.String(),
	)
	span.SetStatus(codes.Ok, "price read")
	return price, nil
}

func (f *Fetcher) FetchEModeCategoryData(context.Context, uint8) (domain.EModeCategory, error) {
	return domain.EModeCategory{}, apperror.New(apperror.CodeEModeUnsupported,
		apperror.WithContext(domain.MorphoBlue.String()))
}

func (f *Fetcher) loanDecimals(collateral *asset.Asset, params domain.MarketParams) (uint8, error) {
	if f.loan.Address() != params.LoanToken {
		return 0, apperror.Validation(apperror.CodeConfigurationError,
			fmt.Sprintf("%s is not the loan token of market %s, cannot price %s",
				f.loan.Symbol(), f.marketID.Hex(), collateral.Symbol()))
	}
	return f.loan.Decimals(), nil
}

// side reports whether token is the loan token, failing for tokens outside the market.
func (f *Fetcher) side(ctx context.Context, token *asset.Asset) (domain.MarketParams, bool, error) {
	params, err := f.FetchMarketParams(ctx)
	if err != nil {
		return domain.MarketParams{}, false, err
	}
	switch token.Address() {
	case params.LoanToken:
		return params, true, nil
	case params.CollateralToken:
		return params, false, nil
	}
	return domain.MarketParams{}, false, apperror.Validation(apperror.CodeInvalidInput,
		fmt.Sprintf("%s is not part of morpho market %s", token.Symbol(), f.marketID.Hex()))
}

func (f *Fetcher) start(ctx context.Context, op string, token *asset.Asset) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "morpho."+op,
		trace.WithAttributes(
			attribute.String("market_id", f.marketID.Hex()),
			attribute.String("token", token.Symbol()),
		),
	)
}

func (f *Fetcher) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err), apperror.WithContext(method))
	}

	start := time.Now()
	f.metrics.callsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))

	result, err := f.cb.Execute(func() ([]byte, error) {
		return f.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	f.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		f.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.External(apperror.CodeContractCallFailed,
			fmt.Sprintf("morpho %s on %s", method, to.Hex()), err)
	}

	out, err := contract.Unpack(method, result)
	if err != nil {
		f.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		return nil, apperror.External(apperror.CodeContractCallFailed, "decode morpho "+method, err)
	}
	return out, nil
}

// liquidationIncentive is min(1.15, 1 / (0.3·lltv + 0.7)).
func liquidationIncentive(lltv decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	denom := liquidationCursor.Mul(lltv).Add(one.Sub(liquidationCursor))
	lif := one.DivRound(denom, wadDecimals)
	if lif.GreaterThan(maxLiquidationIncentive) {
		return maxLiquidationIncentive
	}
	return lif
}

func toAssetsDown(shares, totalAssets, totalShares *big.Int) *big.Int {
	num := new(big.Int).Mul(shares, new(big.Int).Add(totalAssets, virtualAssets))
	return num.Quo(num, new(big.Int).Add(totalShares, virtualShares))
}

func toAssetsUp(shares, totalAssets, totalShares *big.Int) *big.Int {
	num := new(big.Int).Mul(shares, new(big.Int).Add(totalAssets, virtualAssets))
	den := new(big.Int).Add(totalShares, virtualShares)
	num.Add(num, den).Sub(num, big.NewInt(1))
	return num.Quo(num, den)
}

func fail[T any](span trace.Span, err error) (T, error) {
	var zero T
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return zero, err
}

func bigOut(v any) *big.Int {
	if b, ok := v.(*big.Int); ok && b != nil {
		return b
	}
	return new(big.Int)
}

func units(token *asset.Asset, raw *big.Int) decimal.Decimal {
	return asset.NewAmount(token, raw).ToDecimal()
}
