// Package httpclient provides an otel instrumented HTTP client for JSON APIs.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	instrumentationName  = "instrumented_http_client"
	metricRequestCounter = "http_client_requests_total"
)

// Client builds instrumented requests against one upstream.
type Client interface {
	NewRequest(opts ...RequestOption) Request
}

// InstrumentedClient wraps http.Client with otel transport tracing and a request counter.
type InstrumentedClient struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	defaultHeaders map[string]string
	logResponse    bool
}

type clientOptions struct {
	providerName string
	baseURL      string
	timeout      time.Duration
	headers      map[string]string
	transport    http.RoundTripper
	tracer       trace.Tracer
	logResponse  bool
}

// ClientOption configures an InstrumentedClient.
type ClientOption func(*clientOptions)

// WithProviderName names the upstream in metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) { o.providerName = name }
}

// WithBaseURL sets the URL relative request paths are joined to.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithRequestTimeout bounds every request, body read included.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) { o.headers = headers }
}

// WithTransport replaces the pooled default transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) { o.transport = rt }
}

// WithTracer records request spans on tracer. With logResponse the response body is
// attached to the span as an event.
func WithTracer(tracer trace.Tracer, logResponse bool) ClientOption {
	return func(o *clientOptions) {
		o.tracer = tracer
		o.logResponse = logResponse
	}
}

// NewInstrumentedClient creates an InstrumentedClient.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	o := clientOptions{providerName: "default", timeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			DialContext:     (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}

	httpClient := &http.Client{
		Timeout: o.timeout,
		Transport: otelhttp.NewTransport(transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}

	meter := otel.GetMeterProvider().Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", o.providerName)))
	counter, err := meter.Int64Counter(metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, err
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &InstrumentedClient{
		client:         httpClient,
		requestCounter: counter,
		providerName:   o.providerName,
		tracer:         tracer,
		baseURL:        o.baseURL,
		defaultHeaders: o.headers,
		logResponse:    o.logResponse,
	}, nil
}

// NewRequest starts a request carrying the client's default headers.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	r := &requestBuilder{client: c, headers: make(map[string]string, len(c.defaultHeaders))}
	for k, v := range c.defaultHeaders {
		r.headers[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
