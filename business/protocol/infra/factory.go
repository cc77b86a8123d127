// Package infra wires the on-chain protocol readers to the network table.
package infra

import (
	"sync"

	"github.com/ethereum/go-ethereum"

	"github.com/fd1az/dma-strategies/business/protocol/app"
	"github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/business/protocol/infra/aave"
	"github.com/fd1az/dma-strategies/business/protocol/infra/morpho"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/network"
)

var _ app.FetcherFactory = (*Factory)(nil)

// Factory builds fetchers against one network. Aave family fetchers hold no position
// state and are shared so their circuit breakers see every call. Morpho fetchers are
// bound to a market and built per request.
type Factory struct {
	caller  ethereum.ContractCaller
	network *network.Network
	logger  logger.LoggerInterface

	mu   sync.Mutex
	aave map[domain.Protocol]*aave.Fetcher
}

// NewFactory creates a Factory.
func NewFactory(caller ethereum.ContractCaller, n *network.Network, log logger.LoggerInterface) *Factory {
	return &Factory{
		caller:  caller,
		network: n,
		logger:  log,
		aave:    make(map[domain.Protocol]*aave.Fetcher),
	}
}

// Fetcher returns the reader for p. MorphoBlue requires market.
func (f *Factory) Fetcher(p domain.Protocol, market app.MarketRef) (app.DataFetcher, error) {
	if p == domain.MorphoBlue {
		return f.morpho(market)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if fetcher, ok := f.aave[p]; ok {
		return fetcher, nil
	}
	cfg, err := aave.ConfigFor(p, f.network)
	if err != nil {
		return nil, err
	}
	fetcher, err := aave.NewFetcher(f.caller, cfg, f.logger)
	if err != nil {
		return nil, err
	}
	f.aave[p] = fetcher
	return fetcher, nil
}

func (f *Factory) morpho(market app.MarketRef) (app.DataFetcher, error) {
	if market.Loan == nil {
		return nil, apperror.Validation(apperror.CodeRequiredField, "morpho-blue needs the market loan token")
	}
	addr, err := f.network.Address(network.MorphoBlue)
	if err != nil {
		return nil, err
	}
	return morpho.NewFetcher(f.caller, morpho.Config{Morpho: addr, MarketID: market.ID, Loan: market.Loan}, f.logger)
}
