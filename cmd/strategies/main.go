// Package main is the entry point for the DMA strategy builder.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/dma-strategies/business/blockchain"
	"github.com/fd1az/dma-strategies/business/protocol"
	"github.com/fd1az/dma-strategies/business/strategy"
	strategyDI "github.com/fd1az/dma-strategies/business/strategy/di"
	"github.com/fd1az/dma-strategies/business/strategy/infra/console"
	"github.com/fd1az/dma-strategies/business/strategy/infra/httpapi"
	"github.com/fd1az/dma-strategies/business/swap"
	"github.com/fd1az/dma-strategies/internal/apm"
	"github.com/fd1az/dma-strategies/internal/config"
	"github.com/fd1az/dma-strategies/internal/health"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/metrics"
	"github.com/fd1az/dma-strategies/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type options struct {
	configPath  string
	serve       bool
	requestPath string
	protocol    string
	action      string
	jsonOutput  bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the strategy HTTP API")
	flag.StringVar(&opts.requestPath, "request", "-", "One-shot request body (JSON file, - for stdin)")
	flag.StringVar(&opts.protocol, "protocol", "aave-v3", "Lending protocol: aave-v2, aave-v3, spark or morpho-blue")
	flag.StringVar(&opts.action, "action", httpapi.ActionOpen, "Strategy action, or view to read the position")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Print the full JSON response after the summary")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dma-strategies %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, logger.OtelTraceID)
	log.Info(ctx, "starting dma strategies",
		"version", version,
		"environment", cfg.App.Environment,
		"network", cfg.Network.Name,
	)

	// Initialize observability if enabled
	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // gas pricing
		&protocol.Module{},   // protocol readers
		&swap.Module{},       // swap quotes
		&strategy.Module{},   // depends on all of the above
	}

	if err := mono.Boot(ctx, modules...); err != nil {
		return fmt.Errorf("failed to boot modules: %w", err)
	}

	dispatcher := httpapi.NewDispatcher(strategyDI.GetService(mono.Services()), mono.Network())

	if opts.serve {
		return serve(ctx, cfg, mono, dispatcher, log)
	}
	return oneShot(ctx, opts, dispatcher, os.Stdout)
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	tel := cfg.Telemetry
	traceProvider, err := apm.NewTraceProvider(ctx, apm.Config{
		Provider:    apm.Provider(tel.TraceProvider),
		ServiceName: tel.ServiceName,
		Endpoint:    tel.OTLPEndpoint,
		Headers:     tel.OTLPHeaders,
		Console:     os.Stderr,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	metricCfg := metrics.Config{ServiceName: tel.ServiceName, Prometheus: true, Insecure: tel.OTLPInsecure}
	if tel.OTLPMetrics {
		metricCfg.OTLPEndpoint = tel.OTLPEndpoint
		metricCfg.OTLPHeaders = apm.ParseHeaders(tel.OTLPHeaders)
	}
	meterProvider, err := metrics.NewMetricProvider(ctx, metricCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	port := tel.PrometheusPort
	if port == 0 {
		port = 9090
	}
	metricsServer := metrics.NewServer(port, meterProvider, log)
	metricsServer.Start()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "error stopping metrics", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(shutdownCtx, "error stopping tracing", "error", err)
		}
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, mono monolith.Monolith, d *httpapi.Dispatcher, log logger.LoggerInterface) error {
	healthServer := health.NewServer(cfg.HTTP.HealthPort, version, log)
	healthServer.RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		id, err := mono.EthClient().ChainID(ctx)
		if err != nil {
			return false, err.Error()
		}
		if id.Uint64() != mono.Network().ChainID() {
			return false, fmt.Sprintf("rpc chain %d, want %d", id.Uint64(), mono.Network().ChainID())
		}
		return true, ""
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}

	api := httpapi.NewServer(cfg.HTTP.Port, d, log)
	if err := api.Start(); err != nil {
		return fmt.Errorf("failed to start strategy api: %w", err)
	}

	<-ctx.Done()
	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "error stopping strategy api", "error", err)
	}
	return healthServer.Stop(shutdownCtx)
}

func oneShot(ctx context.Context, opts options, d *httpapi.Dispatcher, out io.Writer) error {
	in := os.Stdin
	if opts.requestPath != "-" {
		f, err := os.Open(opts.requestPath)
		if err != nil {
			return fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		in = f
	}

	var req httpapi.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}

	reporter := console.NewReporter(out)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if opts.action == "view" {
		view, err := d.View(ctx, opts.protocol, req)
		if err != nil {
			return err
		}
		reporter.ReportView(view)
		if opts.jsonOutput {
			return enc.Encode(httpapi.NewViewResponse(view))
		}
		return nil
	}

	res, err := d.Dispatch(ctx, opts.protocol, opts.action, req)
	if err != nil {
		return err
	}
	reporter.Report(res)
	if opts.jsonOutput {
		return enc.Encode(httpapi.NewResponse(res))
	}
	return nil
}
