package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type symbolKey struct {
	chainID uint64
	symbol  string
}

func keyOf(chainID uint64, symbol string) symbolKey {
	return symbolKey{chainID: chainID, symbol: strings.ToUpper(symbol)}
}

// Registry indexes a token list by id and by case-insensitive symbol per chain.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AssetID]*Asset
	bySymbol map[symbolKey]*Asset
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[symbolKey]*Asset),
	}
}

// Register adds a. Ids and symbols must be unique per chain.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		return fmt.Errorf("asset: %s already registered", a.ID())
	}
	key := keyOf(a.ChainID(), a.Symbol())
	if prev, exists := r.bySymbol[key]; exists {
		return fmt.Errorf("asset: symbol %s on chain %d already used by %s", a.Symbol(), a.ChainID(), prev.ID())
	}

	r.byID[a.ID()] = a
	r.bySymbol[key] = a
	return nil
}

// Get looks an asset up by id.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetNative returns the native coin of a chain.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// GetToken looks a token up by address. The zero address resolves the native coin.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	if address == (common.Address{}) {
		return r.GetNative(chainID)
	}
	return r.Get(NewTokenAssetID(chainID, address))
}

// GetBySymbolFold looks a token up by symbol ignoring case ("wstETH" == "WSTETH").
func (r *Registry) GetBySymbolFold(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[keyOf(chainID, symbol)]
	return a, ok
}
