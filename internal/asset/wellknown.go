package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs of the supported networks.
const (
	ChainIDEthereum = 1
	ChainIDGoerli   = 5
	ChainIDOptimism = 10
	ChainIDBase     = 8453
	ChainIDArbitrum = 42161
)

// Mainnet token addresses.
var (
	AddrWETHEthereum   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrUSDCEthereum   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrDAIEthereum    = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWBTCEthereum   = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	AddrWSTETHEthereum = common.HexToAddress("0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0")
)

// Mainnet tokens, used as defaults and in tests.
var (
	ETH    = MustNewNative(ChainIDEthereum, "ETH", "Ether", 18)
	WETH   = MustNewToken(ChainIDEthereum, AddrWETHEthereum, "WETH", "Wrapped Ether", 18)
	USDC   = MustNewToken(ChainIDEthereum, AddrUSDCEthereum, "USDC", "USD Coin", 6)
	DAI    = MustNewToken(ChainIDEthereum, AddrDAIEthereum, "DAI", "Dai Stablecoin", 18)
	WBTC   = MustNewToken(ChainIDEthereum, AddrWBTCEthereum, "WBTC", "Wrapped BTC", 8)
	WSTETH = MustNewToken(ChainIDEthereum, AddrWSTETHEthereum, "WSTETH", "Wrapped liquid staked Ether", 18)
)

// DefaultRegistry returns a registry holding the mainnet tokens above.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{ETH, WETH, USDC, DAI, WBTC, WSTETH} {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

// MustNewToken creates an ERC20 token asset.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	return MustNew(NewTokenAssetID(chainID, address), symbol, name, decimals)
}

// MustNewNative creates a native coin asset.
func MustNewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	return MustNew(NewNativeAssetID(chainID), symbol, name, decimals)
}
