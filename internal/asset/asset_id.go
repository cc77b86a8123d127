// Package asset models tokens, raw on-chain amounts, prices and fixed-point percentages.
// Amounts are big.Int in base units; decimal.Decimal is used for ratios and at boundaries.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies a token by chain and contract address.
// Native coins use the zero address. The symbol is never identity.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NewNativeAssetID creates an AssetID for a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for an ERC20 token.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("token address cannot be zero - use NewNativeAssetID for native coins")
	}
	return AssetID{chainID: chainID, address: addr}
}

func (id AssetID) ChainID() uint64 {
	return id.chainID
}

func (id AssetID) Address() common.Address {
	return id.address
}

// IsNative reports a native coin (ETH) rather than an ERC20.
func (id AssetID) IsNative() bool {
	return id.address == (common.Address{})
}

func (id AssetID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

func (id AssetID) Equals(other AssetID) bool {
	return id.chainID == other.chainID && id.address == other.address
}
