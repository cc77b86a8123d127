package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)

	SetHeader(key, value string) Request
	SetBearerToken(token string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// RequestOption configures a single request.
type RequestOption func(*requestBuilder)

// ResponseErrorHandler turns a response into an error, or nil when it is acceptable.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithResponseErrorHandler checks every response with handler.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(r *requestBuilder) { r.errorHandler = handler }
}

// WithLabels adds attributes to the request counter.
func WithLabels(labels ...attribute.KeyValue) RequestOption {
	return func(r *requestBuilder) { r.labels = append(r.labels, labels...) }
}

// Response is a fully read HTTP response.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body.
func (r *Response) Body() []byte { return r.body }

// String returns the response body as a string.
func (r *Response) String() string { return string(r.body) }

// IsError reports a status of 400 or above.
func (r *Response) IsError() bool { return r.StatusCode >= http.StatusBadRequest }

type requestBuilder struct {
	client       *InstrumentedClient
	headers      map[string]string
	query        url.Values
	result       any
	errorHandler ResponseErrorHandler
	labels       []attribute.KeyValue
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetBearerToken sets the Authorization header. Empty tokens are ignored.
func (r *requestBuilder) SetBearerToken(token string) Request {
	if token == "" {
		return r
	}
	return r.SetHeader("Authorization", "Bearer "+token)
}

// SetQueryParam sets a query parameter. Values are escaped when the URL is built.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

// SetResult decodes a JSON body into result.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) url(path string) (string, error) {
	full := path
	if base := r.client.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return full, nil
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", full, err)
	}
	q := u.Query()
	for k, vs := range r.query {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("provider", c.providerName),
		),
	)
	defer span.End()

	fullURL, err := r.url(path)
	if err != nil {
		return nil, r.fail(ctx, span, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, r.fail(ctx, span, fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			span.SetAttributes(attribute.Bool("request.timeout", true))
		}
		return nil, r.fail(ctx, span, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, r.fail(ctx, span, fmt.Errorf("failed to read response body: %w", err))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if c.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(body))))
	}

	response := &Response{Response: resp, body: body}

	if r.errorHandler != nil {
		if err := r.errorHandler(resp.StatusCode, body); err != nil {
			return response, r.fail(ctx, span, err)
		}
	}

	if r.result != nil && len(body) > 0 && !response.IsError() {
		if err := json.Unmarshal(body, r.result); err != nil {
			return response, r.fail(ctx, span, fmt.Errorf("failed to decode response: %w", err))
		}
	}

	r.record(ctx, !response.IsError())
	if response.IsError() {
		span.SetStatus(codes.Error, resp.Status)
	}
	return response, nil
}

func (r *requestBuilder) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.record(ctx, false)
	return err
}

func (r *requestBuilder) record(ctx context.Context, success bool) {
	attrs := append([]attribute.KeyValue{
		attribute.String("provider", r.client.providerName),
		attribute.Bool("success", success),
	}, r.labels...)
	r.client.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
