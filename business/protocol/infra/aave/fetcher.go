// Package aave reads reserve and account state from Aave v2, Aave v3 and Spark view contracts.
package aave

import (
	"context"
	"fmt"
	"math/big"
	"strings"
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
	"github.com/fd1az/dma-strategies/internal/network"
)

const (
	tracerName = "aave"
	meterName  = "aave"
)

var _ app.DataFetcher = (*Fetcher)(nil)

// percentBase is the denominator of LTV, threshold and bonus values (10000 = 100%).
var percentBase = decimal.NewFromInt(10000)

// Config locates one protocol deployment.
type Config struct {
	Protocol     domain.Protocol
	DataProvider common.Address
	Oracle       common.Address
	// Pool is only read for e-mode categories.
	Pool common.Address
}

// priceDecimals is 18 for the v2 ETH denominated oracle and 8 for the v3 USD oracles.
func (c Config) priceDecimals() int32 {
	if c.Protocol == domain.AaveV2 {
		return 18
	}
	return 8
}

// ConfigFor resolves the deployment addresses of p from the network table.
func ConfigFor(p domain.Protocol, n *network.Network) (Config, error) {
	var contracts [3]network.Contract
	switch p {
	case domain.AaveV2:
		contracts = [3]network.Contract{network.AaveV2ProtocolDataProvider, network.AaveV2PriceOracle, network.AaveV2LendingPool}
	case domain.AaveV3:
		contracts = [3]network.Contract{network.AaveV3PoolDataProvider, network.AaveV3Oracle, network.AaveV3Pool}
	case domain.Spark:
		contracts = [3]network.Contract{network.SparkPoolDataProvider, network.SparkOracle, network.SparkPool}
	default:
		return Config{}, apperror.Validation(apperror.CodeUnsupportedProtocolVersion, p.String())
	}

	var addrs [3]common.Address
	for i, c := range contracts {
		addr, err := n.Address(c)
		if err != nil {
			return Config{}, err
		}
		addrs[i] = addr
	}
	return Config{Protocol: p, DataProvider: addrs[0], Oracle: addrs[1], Pool: addrs[2]}, nil
}

type fetcherMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// Fetcher implements DataFetcher over eth_call.
type Fetcher struct {
	caller ethereum.ContractCaller
	cfg    Config

	dataProviderABI abi.ABI
	oracleABI       abi.ABI
	poolABI         abi.ABI

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *fetcherMetrics
}

// NewFetcher creates a fetcher for an Aave family deployment.
func NewFetcher(caller ethereum.ContractCaller, cfg Config, log logger.LoggerInterface) (*Fetcher, error) {
	if cfg.Protocol == domain.MorphoBlue {
		return nil, apperror.Validation(apperror.CodeUnsupportedProtocolVersion, "morpho-blue is not an Aave deployment")
	}

	f := &Fetcher{
		caller: caller,
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig(cfg.Protocol.String() + "-data")),
	}

	var err error
	if f.dataProviderABI, err = abi.JSON(strings.NewReader(DataProviderABI)); err != nil {
		return nil, fmt.Errorf("failed to parse data provider ABI: %w", err)
	}
	if f.oracleABI, err = abi.JSON(strings.NewReader(OracleABI)); err != nil {
		return nil, fmt.Errorf("failed to parse oracle ABI: %w", err)
	}
	if f.poolABI, err = abi.JSON(strings.NewReader(PoolABI)); err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
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
		"aave_calls_total",
		metric.WithDescription("Total view contract calls"),
	)
	if err != nil {
		return err
	}

	f.metrics.callLatency, err = meter.Float64Histogram(
		"aave_call_latency_ms",
		metric.WithDescription("View contract call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	f.metrics.callErrors, err = meter.Int64Counter(
		"aave_call_errors_total",
		metric.WithDescription("Total failed view contract calls"),
	)
	return err
}

func (f *Fetcher) Protocol() domain.Protocol { return f.cfg.Protocol }

// FetchReserveData reads risk parameters and, on v3 deployments, caps and totals.
func (f *Fetcher) FetchReserveData(ctx context.Context, token *asset.Asset) (domain.ReserveData, error) {
	ctx, span := f.start(ctx, "fetch_reserve_data", token)
	defer span.End()

	cfgOut, err := f.call(ctx, f.cfg.DataProvider, f.dataProviderABI, "getReserveConfigurationData", token.Address())
	if err != nil {
		return fail[domain.ReserveData](span, err)
	}
	data := domain.ReserveData{
		LTV:                  fraction(cfgOut[1]),
		LiquidationThreshold: fraction(cfgOut[2]),
		LiquidationBonus:     bonus(cfgOut[3]),
	}

	if f.cfg.Protocol == domain.AaveV2 {
		out, err := f.call(ctx, f.cfg.DataProvider, f.dataProviderABI, "getReserveData", token.Address())
		if err != nil {
			return fail[domain.ReserveData](span, err)
		}
		available, stable, variable := bigOut(out[0]), bigOut(out[1]), bigOut(out[2])
		debt := new(big.Int).Add(stable, variable)
		data.TotalDebt = units(token, debt)
		data.TotalSupply = units(token, new(big.Int).Add(available, debt))
	} else {
		caps, err := f.call(ctx, f.cfg.DataProvider, f.dataProviderABI, "getReserveCaps", token.Address())
		if err != nil {
			return fail[domain.ReserveData](span, err)
		}
		data.BorrowCap = decimal.NewFromBigInt(bigOut(caps[0]), 0)
		data.SupplyCap = decimal.NewFromBigInt(bigOut(caps[1]), 0)

		supply, err := f.call(ctx, f.cfg.DataProvider, f.dataProviderABI, "getATokenTotalSupply", token.Address())
		if err != nil {
			return fail[domain.ReserveData](span, err)
		}
		debt, err := f.call(ctx, f.cfg.DataProvider, f.dataProviderABI, "getTotalDebt", token.Address())
		if err != nil {
			return fail[domain.ReserveData](span, err)
		}
		data.TotalSupply = units(token, bigOut(supply[0]))
		data.TotalDebt = units(token, bigOut(debt[0]))
	}

	span.SetAttributes(
		attribute.String("ltv", data.LTV.String()),
		attribute.String("liquidation_threshold", data.LiquidationThreshold.String()),
	)
	span.SetStatus(codes.Ok, "reserve data read")
	return data, nil
}

// FetchUserReserveData reads the proxy's aToken balance and variable debt.
func (f *Fetcher) FetchUserReserveData(ctx context.Context, token *asset.Asset, proxy common.Address) (domain.UserReserveData, error) {
	ctx, span := f.start(ctx, "fetch_user_reserve_data", token)
	defer span.End()
	span.SetAttributes(attribute.String("proxy", proxy.Hex()))

	out, err := f.call(ctx, f.cfg.DataProvider, f.dataProviderABI, "getUserReserveData", token.Address(), proxy)
	if err != nil {
		return fail[domain.UserReserveData](span, err)
	}

	span.SetStatus(codes.Ok, "user reserve data read")
	return domain.UserReserveData{
		CurrentATokenBalance: bigOut(out[0]),
		CurrentVariableDebt:  bigOut(out[2]),
	}, nil
}

// FetchAssetPrice returns the oracle price in ETH on v2 and in USD on v3 deployments.
func (f *Fetcher) FetchAssetPrice(ctx context.Context, token *asset.Asset) (decimal.Decimal, error) {
	ctx, span := f.start(ctx, "fetch_asset_price", token)
	defer span.End()

	out, err := f.call(ctx, f.cfg.Oracle, f.oracleABI, "getAssetPrice", token.Address())
	if err != nil {
		return fail[decimal.Decimal](span, err)
	}
	price := decimal.NewFromBigInt(bigOut(out[0]), -f.cfg.priceDecimals())

	f.logger.Debug(ctx, "oracle price",
		"protocol", f.cfg.Protocol.String(),
		"token", token.Symbol(),
		"price", price.String(),
	)
	span.SetStatus(codes.Ok, "price read")
	return price, nil
}

// FetchEModeCategoryData reads an e-mode category from the pool.
func (f *Fetcher) FetchEModeCategoryData(ctx context.Context, categoryID uint8) (domain.EModeCategory, error) {
	if !f.cfg.Protocol.HasEMode() {
		return domain.EModeCategory{}, apperror.New(apperror.CodeEModeUnsupported,
			apperror.WithContext(f.cfg.Protocol.String()))
	}

	ctx, span := f.tracer.Start(ctx, "aave.fetch_emode_category",
		trace.WithAttributes(
			attribute.String("protocol", f.cfg.Protocol.String()),
			attribute.Int("category", int(categoryID)),
		),
	)
	defer span.End()

	out, err := f.call(ctx, f.cfg.Pool, f.poolABI, "getEModeCategoryData", categoryID)
	if err != nil {
		return fail[domain.EModeCategory](span, err)
	}
	res := *abi.ConvertType(out[0], new(eModeCategoryResult)).(*eModeCategoryResult)

	span.SetStatus(codes.Ok, "e-mode category read")
	return domain.EModeCategory{
		ID:                   categoryID,
		LTV:                  decimal.NewFromInt(int64(res.Ltv)).Div(percentBase),
		LiquidationThreshold: decimal.NewFromInt(int64(res.LiquidationThreshold)).Div(percentBase),
		LiquidationBonus:     bonus(big.NewInt(int64(res.LiquidationBonus))),
		Label:                res.Label,
	}, nil
}

func (f *Fetcher) start(ctx context.Context, op string, token *asset.Asset) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "aave."+op,
		trace.WithAttributes(
			attribute.String("protocol", f.cfg.Protocol.String()),
			attribute.String("token", token.Symbol()),
			attribute.String("token_address", token.Address().Hex()),
		),
	)
}

// call packs, executes through the circuit breaker and unpacks one view call.
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
			fmt.Sprintf("%s.%s on %s", f.cfg.Protocol, method, to.Hex()), err)
	}

	out, err := contract.Unpack(method, result)
	if err != nil {
		f.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		return nil, apperror.External(apperror.CodeContractCallFailed,
			fmt.Sprintf("decode %s.%s", f.cfg.Protocol, method), err)
	}
	return out, nil
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

func fraction(v any) decimal.Decimal {
	return decimal.NewFromBigInt(bigOut(v), 0).Div(percentBase)
}

// bonus turns 10500 into 0.05. Reserves that are not collateral report 0.
func bonus(v any) decimal.Decimal {
	b := fraction(v).Sub(decimal.NewFromInt(1))
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

func units(token *asset.Asset, raw *big.Int) decimal.Decimal {
	return asset.NewAmount(token, raw).ToDecimal()
}
