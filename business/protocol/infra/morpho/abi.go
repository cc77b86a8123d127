package morpho

// MorphoABI holds the Morpho Blue market reads.
const MorphoABI = `[
	{"name":"idToMarketParams","type":"function","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"}],
	 "outputs":[
		{"name":"loanToken","type":"address"},
		{"name":"collateralToken","type":"address"},
		{"name":"oracle","type":"address"},
		{"name":"irm","type":"address"},
		{"name":"lltv","type":"uint256"}]},
	{"name":"market","type":"function","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"}],
	 "outputs":[
		{"name":"totalSupplyAssets","type":"uint128"},
		{"name":"totalSupplyShares","type":"uint128"},
		{"name":"totalBorrowAssets","type":"uint128"},
		{"name":"totalBorrowShares","type":"uint128"},
		{"name":"lastUpdate","type":"uint128"},
		{"name":"fee","type":"uint128"}]},
	{"name":"position","type":"function","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"},{"name":"user","type":"address"}],
	 "outputs":[
		{"name":"supplyShares","type":"uint256"},
		{"name":"borrowShares","type":"uint128"},
		{"name":"collateral","type":"uint128"}]}
]`

// OracleABI is the market oracle price, collateral quoted in loan token scaled by 1e36.
const OracleABI = `[
	{"name":"price","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`
