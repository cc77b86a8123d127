// Package ethereum implements the gas oracle over a JSON-RPC node.
package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dma-strategies/business/blockchain/app"
	"github.com/fd1az/dma-strategies/business/blockchain/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/circuitbreaker"
	"github.com/fd1az/dma-strategies/internal/logger"
)

const (
	tracerName = "blockchain"
	meterName  = "blockchain"
)

var _ app.GasOracle = (*GasOracle)(nil)

// Client is the part of ethclient.Client the oracle uses.
type Client interface {
	ethereum.GasPricer
	ethereum.GasEstimator
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	MaxGasPrice *big.Int // prices above this are clamped
	// MarginPercent is added to node estimates.
	MarginPercent uint64
	DefaultGas    uint64
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	maxGas := new(big.Int)
	maxGas.SetString("500000000000", 10) // 500 gwei max

	return GasOracleConfig{
		MaxGasPrice:   maxGas,
		MarginPercent: 10,
		DefaultGas:    1_500_000,
	}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	estimateGas     metric.Int64Counter
	estimateErrors  metric.Int64Counter
}

// GasOracle implements the GasOracle interface using go-ethereum.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	client Client

	priceCB    *circuitbreaker.CircuitBreaker[*big.Int]
	estimateCB *circuitbreaker.CircuitBreaker[uint64]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(client Client, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		logger:     log,
		client:     client,
		priceCB:    circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-price")),
		estimateCB: circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("gas-estimate")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateErrors, err = meter.Int64Counter(
		"gas_estimate_errors_total",
		metric.WithDescription("Gas estimations the node rejected"),
		metric.WithUnit("{estimate}"),
	)
	return err
}

// GetGasPrice retrieves the current gas price.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.priceCB.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	// Safety check
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max", "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei)

	span.SetAttributes(attribute.Float64("gwei", price.Gwei))
	span.SetStatus(codes.Ok, "fetched")
	return price, nil
}

// EstimateGas estimates the gas needed for a transaction and adds the configured margin.
func (g *GasOracle) EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("from", from.Hex()),
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	msg := ethereum.CallMsg{
		From:  from,
		To:    &to,
		Data:  data,
		Value: value,
	}
	gas, err := g.estimateCB.Execute(func() (uint64, error) {
		return g.client.EstimateGas(ctx, msg)
	})
	if err != nil {
		g.metrics.estimateErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to estimate gas for %s", to.Hex())))
	}

	gas = domain.WithMargin(gas, g.config.MarginPercent)

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")
	return gas, nil
}
