// Package oneinch quotes swaps through the 1inch aggregation API.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dma-strategies/business/swap/app"
	"github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/circuitbreaker"
	"github.com/fd1az/dma-strategies/internal/httpclient"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/ratelimit"
)

const (
	tracerName = "oneinch"
	meterName  = "oneinch"

	DefaultBaseURL = "https://api.1inch.dev/swap"
	DefaultVersion = "v5.2"

	defaultTimeout = 10 * time.Second
	defaultRPM     = 60
)

// Ensure Client implements SwapDataProvider.
var _ app.SwapDataProvider = (*Client)(nil)

// Config holds 1inch client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	Version           string
	ChainID           uint64
	SwapAddress       common.Address // the contract that will execute the calldata
	Protocols         []string
	RequestsPerMinute int
	Timeout           time.Duration
}

type clientMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteErrors  metric.Int64Counter
	quoteLatency metric.Float64Histogram
}

// Client implements SwapDataProvider against the 1inch swap endpoint.
type Client struct {
	client  httpclient.Client
	cfg     Config
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*swapResponse]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a 1inch client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRPM
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("oneinch"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer, true),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		cb:      circuitbreaker.New[*swapResponse](circuitbreaker.DefaultConfig("oneinch-swap")),
		logger:  log,
		tracer:  tracer,
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.quotesTotal, err = meter.Int64Counter(
		"oneinch_quotes_total",
		metric.WithDescription("Total swap quote requests"),
	)
	if err != nil {
		return err
	}

	c.metrics.quoteErrors, err = meter.Int64Counter(
		"oneinch_quote_errors_total",
		metric.WithDescription("Total swap quote errors"),
	)
	if err != nil {
		return err
	}

	c.metrics.quoteLatency, err = meter.Float64Histogram(
		"oneinch_quote_latency_ms",
		metric.WithDescription("Swap quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

type tokenInfo struct {
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

type txInfo struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// swapResponse covers both the v5.0 and v5.2 field names.
type swapResponse struct {
	FromToken       tokenInfo `json:"fromToken"`
	ToToken         tokenInfo `json:"toToken"`
	FromTokenAmount string    `json:"fromTokenAmount"`
	ToTokenAmount   string    `json:"toTokenAmount"`
	ToAmount        string    `json:"toAmount"`
	Tx              txInfo    `json:"tx"`
}

// APIError is an error payload returned by 1inch.
type APIError struct {
	StatusCode  int    `json:"statusCode"`
	ErrorName   string `json:"error"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("1inch API error %d: %s", e.StatusCode, e.Description)
}

func errorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Description != "" {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = statusCode
		}
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}

// GetSwapData quotes amount of from into to and returns calldata for the swap contract.
func (c *Client) GetSwapData(ctx context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "oneinch.get_swap_data",
		trace.WithAttributes(
			attribute.String("from", from.Hex()),
			attribute.String("to", to.Hex()),
			attribute.String("amount", amount.String()),
			attribute.String("slippage", slippage.String()),
		),
	)
	defer span.End()

	start := time.Now()
	c.metrics.quotesTotal.Add(ctx, 1)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	resp, err := c.cb.Execute(func() (*swapResponse, error) {
		return c.swap(ctx, from, to, amount, slippage)
	})
	c.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		c.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap quote failed")
		return nil, apperror.External(apperror.CodeSwapQuoteFailed, "1inch swap", err)
	}

	quote, err := toQuote(resp, amount, slippage)
	if err != nil {
		c.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("to_amount", quote.ToTokenAmount.String()))
	span.SetStatus(codes.Ok, "quote received")

	c.logger.Debug(ctx, "1inch quote",
		"from", from.Hex(),
		"to", to.Hex(),
		"amount", amount.String(),
		"to_amount", quote.ToTokenAmount.String(),
		"min_to_amount", quote.MinToTokenAmount.String(),
	)

	return quote, nil
}

func (c *Client) swap(ctx context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*swapResponse, error) {
	var result swapResponse
	path := fmt.Sprintf("/%s/%d/swap", c.cfg.Version, c.cfg.ChainID)

	req := c.client.NewRequest(
		httpclient.WithLabels(
			attribute.String("endpoint", "swap"),
			attribute.String("chain_id", strconv.FormatUint(c.cfg.ChainID, 10)),
		),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetBearerToken(c.cfg.APIKey).
		SetQueryParam("fromTokenAddress", from.Hex()).
		SetQueryParam("toTokenAddress", to.Hex()).
		SetQueryParam("amount", amount.String()).
		SetQueryParam("fromAddress", c.cfg.SwapAddress.Hex()).
		SetQueryParam("slippage", slippage.Shift(2).String()).
		SetQueryParam("disableEstimate", "true").
		SetQueryParam("allowPartialFill", "false").
		SetResult(&result)
	if len(c.cfg.Protocols) > 0 {
		req = req.SetQueryParam("protocols", strings.Join(c.cfg.Protocols, ","))
	}

	resp, err := req.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.String())
	}
	return &result, nil
}

func toQuote(resp *swapResponse, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error) {
	toAmountStr := resp.ToTokenAmount
	if toAmountStr == "" {
		toAmountStr = resp.ToAmount
	}
	toAmount, ok := new(big.Int).SetString(toAmountStr, 10)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("bad toAmount %q", toAmountStr)))
	}

	fromAmount := new(big.Int).Set(amount)
	if resp.FromTokenAmount != "" {
		if v, ok := new(big.Int).SetString(resp.FromTokenAmount, 10); ok {
			fromAmount = v
		}
	}

	calldata, err := hexutil.Decode(resp.Tx.Data)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithCause(err),
			apperror.WithContext("bad tx.data"))
	}

	return &domain.Quote{
		FromTokenAddress: common.HexToAddress(resp.FromToken.Address),
		ToTokenAddress:   common.HexToAddress(resp.ToToken.Address),
		FromTokenAmount:  fromAmount,
		ToTokenAmount:    toAmount,
		MinToTokenAmount: domain.MinToTokenAmountFor(toAmount, slippage),
		ExchangeCalldata: calldata,
		ExchangeAddress:  common.HexToAddress(resp.Tx.To),
		Source:           "1inch",
	}, nil
}
