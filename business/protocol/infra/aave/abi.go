package aave

import "github.com/ethereum/go-ethereum/common"

// DataProviderABI covers the view functions shared by the v2 ProtocolDataProvider and the
// v3 PoolDataProvider, plus the v3 only cap and total reads.
const DataProviderABI = `[
	{"name":"getReserveConfigurationData","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],
	 "outputs":[
		{"name":"decimals","type":"uint256"},
		{"name":"ltv","type":"uint256"},
		{"name":"liquidationThreshold","type":"uint256"},
		{"name":"liquidationBonus","type":"uint256"},
		{"name":"reserveFactor","type":"uint256"},
		{"name":"usageAsCollateralEnabled","type":"bool"},
		{"name":"borrowingEnabled","type":"bool"},
		{"name":"stableBorrowRateEnabled","type":"bool"},
		{"name":"isActive","type":"bool"},
		{"name":"isFrozen","type":"bool"}]},
	{"name":"getUserReserveData","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"},{"name":"user","type":"address"}],
	 "outputs":[
		{"name":"currentATokenBalance","type":"uint256"},
		{"name":"currentStableDebt","type":"uint256"},
		{"name":"currentVariableDebt","type":"uint256"},
		{"name":"principalStableDebt","type":"uint256"},
		{"name":"scaledVariableDebt","type":"uint256"},
		{"name":"stableBorrowRate","type":"uint256"},
		{"name":"liquidityRate","type":"uint256"},
		{"name":"stableRateLastUpdated","type":"uint40"},
		{"name":"usageAsCollateralEnabled","type":"bool"}]},
	{"name":"getReserveData","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],
	 "outputs":[
		{"name":"availableLiquidity","type":"uint256"},
		{"name":"totalStableDebt","type":"uint256"},
		{"name":"totalVariableDebt","type":"uint256"},
		{"name":"liquidityRate","type":"uint256"},
		{"name":"variableBorrowRate","type":"uint256"},
		{"name":"stableBorrowRate","type":"uint256"},
		{"name":"averageStableBorrowRate","type":"uint256"},
		{"name":"liquidityIndex","type":"uint256"},
		{"name":"variableBorrowIndex","type":"uint256"},
		{"name":"lastUpdateTimestamp","type":"uint40"}]},
	{"name":"getReserveCaps","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],
	 "outputs":[{"name":"borrowCap","type":"uint256"},{"name":"supplyCap","type":"uint256"}]},
	{"name":"getATokenTotalSupply","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"getTotalDebt","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

// OracleABI is getAssetPrice on the v2 PriceOracle and the v3 AaveOracle.
const OracleABI = `[
	{"name":"getAssetPrice","type":"function","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

// PoolABI is the v3 Pool e-mode read.
const PoolABI = `[
	{"name":"getEModeCategoryData","type":"function","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint8"}],
	 "outputs":[{"name":"","type":"tuple","components":[
		{"name":"ltv","type":"uint16"},
		{"name":"liquidationThreshold","type":"uint16"},
		{"name":"liquidationBonus","type":"uint16"},
		{"name":"priceSource","type":"address"},
		{"name":"label","type":"string"}]}]}
]`

// eModeCategoryResult mirrors the getEModeCategoryData tuple.
type eModeCategoryResult struct {
	Ltv                  uint16
	LiquidationThreshold uint16
	LiquidationBonus     uint16
	PriceSource          common.Address
	Label                string
}
