// Package monolith wires the shared infrastructure and boots the bounded context modules.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dma-strategies/internal/config"
	"github.com/fd1az/dma-strategies/internal/di"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/network"
)

// Monolith is what modules see of the application at startup.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	Network() *network.Network
	Services() di.ServiceRegistry
}

// Module is a bounded context. RegisterServices runs for every module before any
// Startup, so factories may depend on services of later modules.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App owns the shared clients and the DI container.
type App struct {
	config    *config.Config
	logger    logger.LoggerInterface
	ethClient *ethclient.Client
	network   *network.Network
	container di.Container
}

// New resolves the configured network and dials the RPC endpoint. The globals
// "config", "logger", "ethClient" and "network" are registered for module factories.
func New(cfg *config.Config, log logger.LoggerInterface) (*App, error) {
	table, err := network.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load network table: %w", err)
	}
	base, err := table.Get(network.Name(cfg.Network.Name))
	if err != nil {
		return nil, err
	}
	net, err := base.WithOverrides(cfg.Network.Addresses)
	if err != nil {
		return nil, err
	}

	ethClient, err := ethclient.Dial(cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum: %w", err)
	}

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("network", net)

	return &App{
		config:    cfg,
		logger:    log,
		ethClient: ethClient,
		network:   net,
		container: container,
	}, nil
}

func (a *App) Config() *config.Config         { return a.config }
func (a *App) Logger() logger.LoggerInterface { return a.logger }
func (a *App) EthClient() *ethclient.Client   { return a.ethClient }
func (a *App) Network() *network.Network      { return a.network }
func (a *App) Services() di.ServiceRegistry   { return a.container }

// Boot registers every module's services, then starts the modules in order.
func (a *App) Boot(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %T: %w", m, err)
		}
	}
	a.logger.Info(ctx, "modules started", "count", len(modules), "network", a.network.Name(), "chain_id", a.network.ChainID())
	return nil
}

// Close releases the RPC client.
func (a *App) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
