package asset

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// maxDecimals bounds token precision; nothing listed on the supported markets goes past 18.
const maxDecimals = 30

// Asset is a token on one chain: its identity, ticker and precision. Assets are shared
// by pointer and never mutated.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
	unit     *big.Int
}

// New validates and creates an Asset. An empty name falls back to the symbol.
func New(id AssetID, symbol, name string, decimals uint8) (*Asset, error) {
	if symbol == "" {
		return nil, fmt.Errorf("asset %s: empty symbol", id)
	}
	if decimals > maxDecimals {
		return nil, fmt.Errorf("asset %s: %d decimals", symbol, decimals)
	}
	if name == "" {
		name = symbol
	}
	return &Asset{
		id:       id,
		symbol:   symbol,
		name:     name,
		decimals: decimals,
		unit:     new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil),
	}, nil
}

// MustNew is New for static token tables.
func MustNew(id AssetID, symbol, name string, decimals uint8) *Asset {
	a, err := New(id, symbol, name, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Asset) ID() AssetID             { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Name() string            { return a.name }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) ChainID() uint64         { return a.id.ChainID() }
func (a *Asset) IsNative() bool          { return a.id.IsNative() }
func (a *Asset) Address() common.Address { return a.id.Address() }
func (a *Asset) String() string          { return a.symbol }

// OneUnit is one whole token in base units.
func (a *Asset) OneUnit() Amount {
	return NewAmount(a, a.unit)
}

// Equals compares by id. Two nil assets are equal.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
