// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Network   NetworkConfig   `mapstructure:"network"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	OneInch   OneInchConfig   `mapstructure:"oneinch"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds the JSON-RPC endpoint used for protocol reads and gas estimates.
type EthereumConfig struct {
	HTTPURL     string        `mapstructure:"http_url"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// NetworkConfig selects the network table entry and overrides deployment specific addresses.
type NetworkConfig struct {
	Name      string            `mapstructure:"name"`
	Addresses map[string]string `mapstructure:"addresses"`
}

// StrategyConfig holds defaults applied when a request leaves them out.
type StrategyConfig struct {
	Slippage     float64 `mapstructure:"slippage"`
	SwapProvider string  `mapstructure:"swap_provider"` // oneinch or mock
	EstimateGas  bool    `mapstructure:"estimate_gas"`
	// MockPrices lists USD prices by token symbol for the mock swap provider.
	MockPrices map[string]float64 `mapstructure:"mock_prices"`
}

// SlippageDecimal returns the default slippage as a fraction (0.005 = 0.5%).
func (c *StrategyConfig) SlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Slippage)
}

// OneInchConfig holds the swap aggregator API settings.
type OneInchConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Version           string        `mapstructure:"version"`
	Protocols         []string      `mapstructure:"protocols"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// HTTPConfig holds the strategy API server settings.
type HTTPConfig struct {
	Port       int `mapstructure:"port"`
	HealthPort int `mapstructure:"health_port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // zipkin, otlp-grpc, otlp-http, console or none
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	OTLPMetrics    bool   `mapstructure:"otlp_metrics"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "DMA_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DMA_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DMA_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.http_url", "DMA_ETH_HTTP_URL", "ETH_HTTP_URL", "RPC_URL")

	// Network
	v.BindEnv("network.name", "DMA_NETWORK", "NETWORK")
	v.BindEnv("network.addresses.operation_executor", "DMA_OPERATION_EXECUTOR", "OPERATION_EXECUTOR")
	v.BindEnv("network.addresses.swap", "DMA_SWAP_ADDRESS", "SWAP_ADDRESS")

	// Strategy
	v.BindEnv("strategy.slippage", "DMA_SLIPPAGE")
	v.BindEnv("strategy.swap_provider", "DMA_SWAP_PROVIDER")

	// 1inch
	v.BindEnv("oneinch.base_url", "DMA_ONE_INCH_API_URL", "ONE_INCH_API_URL")
	v.BindEnv("oneinch.api_key", "DMA_ONE_INCH_API_KEY", "ONE_INCH_API_KEY")
	v.BindEnv("oneinch.protocols", "DMA_ONE_INCH_PROTOCOLS")

	// HTTP
	v.BindEnv("http.port", "DMA_HTTP_PORT", "PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "DMA_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DMA_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_provider", "DMA_OTEL_TRACE_PROVIDER")
	v.BindEnv("telemetry.otlp_endpoint", "DMA_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "DMA_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dma-strategies")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.call_timeout", "15s")

	// Network defaults
	v.SetDefault("network.name", "mainnet")

	// Strategy defaults
	v.SetDefault("strategy.slippage", 0.005)
	v.SetDefault("strategy.swap_provider", "oneinch")
	v.SetDefault("strategy.estimate_gas", false)
	v.SetDefault("strategy.mock_prices", map[string]float64{
		"WETH": 2000, "ETH": 2000, "WSTETH": 2300, "WBTC": 60000,
		"USDC": 1, "USDT": 1, "DAI": 1, "SDAI": 1.05,
	})

	// 1inch defaults
	v.SetDefault("oneinch.base_url", "https://api.1inch.dev/swap")
	v.SetDefault("oneinch.version", "v5.2")
	v.SetDefault("oneinch.requests_per_minute", 60)
	v.SetDefault("oneinch.timeout", "10s")

	// HTTP defaults
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.health_port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dma-strategies")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Network.Name == "" {
		return fmt.Errorf("network.name is required")
	}
	for key, addr := range c.Network.Addresses {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid network.addresses.%s: %s", key, addr)
		}
	}
	if c.Strategy.Slippage < 0 || c.Strategy.Slippage >= 1 {
		return fmt.Errorf("strategy.slippage must be in [0, 1): %v", c.Strategy.Slippage)
	}
	switch c.Strategy.SwapProvider {
	case "oneinch":
		if c.OneInch.BaseURL == "" {
			return fmt.Errorf("oneinch.base_url is required")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown strategy.swap_provider: %s", c.Strategy.SwapProvider)
	}
	if c.OneInch.RequestsPerMinute <= 0 {
		return fmt.Errorf("oneinch.requests_per_minute must be positive")
	}
	return nil
}
