// Package network holds the per-chain token and contract address table used to
// resolve protocol view contracts, flashloan sources and executor addresses.
package network

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

//go:embed networks.yaml
var networksYAML []byte

// Name identifies a supported network.
type Name string

const (
	Mainnet  Name = "mainnet"
	Optimism Name = "optimism"
	Arbitrum Name = "arbitrum"
	Base     Name = "base"
	Goerli   Name = "goerli"
)

// Contract is a key into a network's contract table.
type Contract string

const (
	OperationExecutor          Contract = "operation_executor"
	Swap                       Contract = "swap"
	BalancerVault              Contract = "balancer_vault"
	DssFlash                   Contract = "dss_flash"
	AaveV2LendingPool          Contract = "aave_v2_lending_pool"
	AaveV2ProtocolDataProvider Contract = "aave_v2_protocol_data_provider"
	AaveV2PriceOracle          Contract = "aave_v2_price_oracle"
	AaveV3Pool                 Contract = "aave_v3_pool"
	AaveV3PoolDataProvider     Contract = "aave_v3_pool_data_provider"
	AaveV3Oracle               Contract = "aave_v3_oracle"
	SparkPool                  Contract = "spark_pool"
	SparkPoolDataProvider      Contract = "spark_pool_data_provider"
	SparkOracle                Contract = "spark_oracle"
	MorphoBlue                 Contract = "morpho_blue"
)

// FlashloanProvider matches the provider enum understood by the TakeFlashloan action.
type FlashloanProvider uint8

const (
	ProviderDssFlash FlashloanProvider = 0
	ProviderBalancer FlashloanProvider = 1
)

func (p FlashloanProvider) String() string {
	switch p {
	case ProviderDssFlash:
		return "dssflash"
	case ProviderBalancer:
		return "balancer"
	default:
		return fmt.Sprintf("provider(%d)", uint8(p))
	}
}

func parseProvider(s string) (FlashloanProvider, error) {
	switch strings.ToLower(s) {
	case "dssflash":
		return ProviderDssFlash, nil
	case "balancer":
		return ProviderBalancer, nil
	default:
		return 0, fmt.Errorf("unknown flashloan provider %q", s)
	}
}

// Flashloan is a resolved flashloan source.
type Flashloan struct {
	Provider FlashloanProvider
	Token    *asset.Asset
	Lender   common.Address
}

type tokenEntry struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Name     string `yaml:"name"`
}

type networkEntry struct {
	ChainID   uint64 `yaml:"chain_id"`
	Flashloan struct {
		Provider string `yaml:"provider"`
		Token    string `yaml:"token"`
	} `yaml:"flashloan"`
	Tokens    map[string]tokenEntry `yaml:"tokens"`
	Contracts map[string]string     `yaml:"contracts"`
}

type tableFile struct {
	Networks map[string]networkEntry `yaml:"networks"`
}

// Network is one chain's resolved address table.
type Network struct {
	name      Name
	chainID   uint64
	provider  FlashloanProvider
	flToken   string
	registry  *asset.Registry
	contracts map[Contract]common.Address
}

// Table is the set of known networks.
type Table struct {
	networks map[Name]*Network
}

// Load parses the embedded network table.
func Load() (*Table, error) {
	return Parse(networksYAML)
}

// Parse builds a Table from YAML bytes.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse network table: %w", err)
	}

	t := &Table{networks: make(map[Name]*Network, len(f.Networks))}
	for key, entry := range f.Networks {
		n, err := buildNetwork(Name(key), entry)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", key, err)
		}
		t.networks[n.name] = n
	}
	return t, nil
}

func buildNetwork(name Name, e networkEntry) (*Network, error) {
	if e.ChainID == 0 {
		return nil, fmt.Errorf("missing chain_id")
	}
	provider, err := parseProvider(e.Flashloan.Provider)
	if err != nil {
		return nil, err
	}

	reg := asset.NewRegistry()
	for symbol, tok := range e.Tokens {
		if !common.IsHexAddress(tok.Address) {
			return nil, fmt.Errorf("token %s: invalid address %q", symbol, tok.Address)
		}
		addr := common.HexToAddress(tok.Address)
		id := asset.NewNativeAssetID(e.ChainID)
		if addr != (common.Address{}) {
			id = asset.NewTokenAssetID(e.ChainID, addr)
		}
		a, err := asset.New(id, symbol, tok.Name, tok.Decimals)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(a); err != nil {
			return nil, err
		}
	}
	if _, ok := reg.GetBySymbolFold(e.Flashloan.Token, e.ChainID); !ok {
		return nil, fmt.Errorf("flashloan token %s not in token list", e.Flashloan.Token)
	}

	contracts := make(map[Contract]common.Address, len(e.Contracts))
	for key, hex := range e.Contracts {
		if hex == "" {
			continue
		}
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("contract %s: invalid address %q", key, hex)
		}
		contracts[Contract(key)] = common.HexToAddress(hex)
	}

	return &Network{
		name:      name,
		chainID:   e.ChainID,
		provider:  provider,
		flToken:   e.Flashloan.Token,
		registry:  reg,
		contracts: contracts,
	}, nil
}

// Get returns the named network.
func (t *Table) Get(name Name) (*Network, error) {
	n, ok := t.networks[Name(strings.ToLower(string(name)))]
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithContext(fmt.Sprintf("network %q", name)))
	}
	return n, nil
}

// ByChainID returns the network for a chain id.
func (t *Table) ByChainID(chainID uint64) (*Network, error) {
	for _, n := range t.networks {
		if n.chainID == chainID {
			return n, nil
		}
	}
	return nil, apperror.New(apperror.CodeUnsupportedNetwork,
		apperror.WithContext(fmt.Sprintf("chain id %d", chainID)))
}

// Names lists the known networks in sorted order.
func (t *Table) Names() []Name {
	names := make([]Name, 0, len(t.networks))
	for n := range t.networks {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (n *Network) Name() Name                { return n.name }
func (n *Network) ChainID() uint64           { return n.chainID }
func (n *Network) Registry() *asset.Registry { return n.registry }
func (n *Network) IsMainnet() bool           { return n.name == Mainnet }

// Token looks up a token by symbol, case-insensitively.
func (n *Network) Token(symbol string) (*asset.Asset, error) {
	a, ok := n.registry.GetBySymbolFold(symbol, n.chainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownToken,
			apperror.WithContext(fmt.Sprintf("%s on %s", symbol, n.name)))
	}
	return a, nil
}

// TokenByAddress looks up a token by contract address. The zero address is the native coin.
func (n *Network) TokenByAddress(addr common.Address) (*asset.Asset, error) {
	a, ok := n.registry.GetToken(n.chainID, addr)
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownToken,
			apperror.WithContext(fmt.Sprintf("%s on %s", addr.Hex(), n.name)))
	}
	return a, nil
}

// WrappedNative returns WETH for the network.
func (n *Network) WrappedNative() (*asset.Asset, error) {
	return n.Token("WETH")
}

// SwapAddress returns the ERC20 address used when quoting a token. Native ETH quotes as WETH.
func (n *Network) SwapAddress(token *asset.Asset) (common.Address, error) {
	if !token.IsNative() {
		return token.Address(), nil
	}
	weth, err := n.WrappedNative()
	if err != nil {
		return common.Address{}, err
	}
	return weth.Address(), nil
}

// Address returns a contract address or CodeAddressNotConfigured when it is unset.
func (n *Network) Address(c Contract) (common.Address, error) {
	addr, ok := n.contracts[c]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, apperror.New(apperror.CodeAddressNotConfigured,
			apperror.WithContext(fmt.Sprintf("%s on %s", c, n.name)))
	}
	return addr, nil
}

// WithOverrides returns a copy of the network with the given contract addresses replaced.
func (n *Network) WithOverrides(overrides map[string]string) (*Network, error) {
	cp := *n
	cp.contracts = make(map[Contract]common.Address, len(n.contracts)+len(overrides))
	for k, v := range n.contracts {
		cp.contracts[k] = v
	}
	for key, hex := range overrides {
		if hex == "" {
			continue
		}
		if !common.IsHexAddress(hex) {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext(fmt.Sprintf("override %s: invalid address %q", key, hex)))
		}
		cp.contracts[Contract(strings.ToLower(key))] = common.HexToAddress(hex)
	}
	return &cp, nil
}

// CollateralisedFlashloan returns the network's default flashloan source, used when the
// borrowed funds are deposited as collateral rather than swapped directly.
func (n *Network) CollateralisedFlashloan() (Flashloan, error) {
	token, err := n.Token(n.flToken)
	if err != nil {
		return Flashloan{}, err
	}
	return n.flashloanFrom(n.provider, token)
}

// DirectFlashloan returns the source for flashloaning the debt token itself. DAI on a
// DssFlash network is minted by DssFlash. Everything else comes from the Balancer vault.
func (n *Network) DirectFlashloan(debt *asset.Asset) (Flashloan, error) {
	token := debt
	if debt.IsNative() {
		weth, err := n.WrappedNative()
		if err != nil {
			return Flashloan{}, err
		}
		token = weth
	}
	if n.provider == ProviderDssFlash && strings.EqualFold(token.Symbol(), "DAI") {
		return n.flashloanFrom(ProviderDssFlash, token)
	}
	return n.flashloanFrom(ProviderBalancer, token)
}

func (n *Network) flashloanFrom(p FlashloanProvider, token *asset.Asset) (Flashloan, error) {
	contract := BalancerVault
	if p == ProviderDssFlash {
		contract = DssFlash
	}
	lender, err := n.Address(contract)
	if err != nil {
		return Flashloan{}, err
	}
	return Flashloan{Provider: p, Token: token, Lender: lender}, nil
}
