// Package metrics configures the otel meter provider and the prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/dma-strategies/internal/logger"
)

// Config selects the metric readers.
type Config struct {
	ServiceName string
	// Prometheus exposes metrics for scraping through Provider.Handler.
	Prometheus bool
	// OTLPEndpoint, when set, pushes metrics to an OTLP gRPC collector.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	Insecure     bool
}

// Provider is the installed meter provider plus its prometheus registry.
type Provider struct {
	*sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// NewMetricProvider builds the readers cfg asks for and installs the provider globally.
func NewMetricProvider(ctx context.Context, cfg Config) (*Provider, error) {
	var opts []sdkmetric.Option
	p := &Provider{}

	if cfg.Prometheus {
		p.registry = prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exp))
	}

	if cfg.OTLPEndpoint != "" {
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders),
		}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	if len(opts) == 0 {
		return nil, errors.New("no metric reader configured")
	}

	opts = append(opts, sdkmetric.WithResource(
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	))

	p.MeterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.MeterProvider)
	return p, nil
}

// Handler serves the prometheus registry. It responds 404 when prometheus is off.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics.
type Server struct {
	port     int
	provider *Provider
	log      logger.LoggerInterface
	server   *http.Server
}

// NewServer creates a metrics Server.
func NewServer(port int, p *Provider, log logger.LoggerInterface) *Server {
	return &Server{port: port, provider: p, log: log}
}

// Router returns the metrics routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", s.provider.Handler())
	return r
}

// Start serves in the background.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	s.log.Info(context.Background(), "prometheus metrics server started", "port", s.port)
}

// Stop shuts the server down and flushes the meter provider.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	return errors.Join(err, s.provider.Shutdown(ctx))
}
