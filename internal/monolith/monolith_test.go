package monolith

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/internal/config"
	"github.com/fd1az/dma-strategies/internal/di"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/network"
)

type recordingModule struct {
	name     string
	events   *[]string
	startErr error
}

func (m *recordingModule) RegisterServices(c di.Container) error {
	*m.events = append(*m.events, "register "+m.name)
	c.Register(m.name, m.name)
	return nil
}

func (m *recordingModule) Startup(_ context.Context, mono Monolith) error {
	*m.events = append(*m.events, "start "+m.name)
	if m.startErr != nil {
		return m.startErr
	}
	if mono.Services().Get(m.name) != m.name {
		return errors.New("service not registered")
	}
	return nil
}

func newApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Ethereum: config.EthereumConfig{HTTPURL: "http://127.0.0.1:8545"},
		Network: config.NetworkConfig{
			Name:      "mainnet",
			Addresses: map[string]string{"operation_executor": "0x00000000000000000000000000000000000000e1"},
		},
	}
	app, err := New(cfg, logger.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNew_ResolvesNetwork(t *testing.T) {
	app := newApp(t)

	require.Equal(t, network.Mainnet, app.Network().Name())
	exec, err := app.Network().Address(network.OperationExecutor)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xe1"), exec)
	require.Same(t, app.Network(), app.Services().Get("network"))
}

func TestNew_UnknownNetwork(t *testing.T) {
	_, err := New(&config.Config{
		Ethereum: config.EthereumConfig{HTTPURL: "http://127.0.0.1:8545"},
		Network:  config.NetworkConfig{Name: "solana"},
	}, logger.NewDiscard())
	require.Error(t, err)
}

func TestBoot_RegistersBeforeStarting(t *testing.T) {
	app := newApp(t)
	var events []string

	err := app.Boot(context.Background(),
		&recordingModule{name: "a", events: &events},
		&recordingModule{name: "b", events: &events},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"register a", "register b", "start a", "start b"}, events)
}

func TestBoot_StopsOnStartupError(t *testing.T) {
	app := newApp(t)
	var events []string
	boom := errors.New("boom")

	err := app.Boot(context.Background(),
		&recordingModule{name: "a", events: &events, startErr: boom},
		&recordingModule{name: "b", events: &events},
	)
	require.ErrorIs(t, err, boom)
	require.NotContains(t, events, "start b")
}
