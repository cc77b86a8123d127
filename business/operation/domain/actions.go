package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Service names registered in the executor's service registry.
const (
	ServicePullToken       = "PullToken"
	ServiceSendToken       = "SendToken"
	ServiceSetApproval     = "SetApproval"
	ServiceSwap            = "SwapAction"
	ServiceWrapEth         = "WrapEth"
	ServiceUnwrapEth       = "UnwrapEth"
	ServiceReturnFunds     = "ReturnFunds"
	ServiceTakeFlashloan   = "TakeFlashloan"
	ServicePositionCreated = "PositionCreated"

	ServiceAaveV2Deposit  = "AaveDeposit"
	ServiceAaveV2Borrow   = "AaveBorrow"
	ServiceAaveV2Withdraw = "AaveWithdraw"
	ServiceAaveV2Payback  = "AavePayback"

	ServiceAaveV3Deposit  = "AaveV3Deposit"
	ServiceAaveV3Borrow   = "AaveV3Borrow"
	ServiceAaveV3Withdraw = "AaveV3Withdraw"
	ServiceAaveV3Payback  = "AaveV3Payback"
	ServiceAaveV3SetEMode = "AaveV3SetEMode"

	ServiceSparkDeposit  = "SparkDeposit"
	ServiceSparkBorrow   = "SparkBorrow"
	ServiceSparkWithdraw = "SparkWithdraw"
	ServiceSparkPayback  = "SparkPayback"
	ServiceSparkSetEMode = "SparkSetEMode"

	ServiceMorphoBlueDeposit  = "MorphoBlueDeposit"
	ServiceMorphoBlueBorrow   = "MorphoBlueBorrow"
	ServiceMorphoBlueWithdraw = "MorphoBlueWithdraw"
	ServiceMorphoBluePayback  = "MorphoBluePayback"
)

// Action binds a service name to the tuple its execute() data decodes into.
type Action struct {
	Service string
	args    abi.Arguments
	params  int
	// writes marks actions that store their effective amount for later param mapping.
	writes bool
}

func component(name, typ string) abi.ArgumentMarshaling {
	return abi.ArgumentMarshaling{Name: name, Type: typ}
}

func newAction(service string, writes bool, components ...abi.ArgumentMarshaling) Action {
	t, err := abi.NewType("tuple", "", components)
	if err != nil {
		panic(err)
	}
	return Action{Service: service, args: abi.Arguments{{Type: t}}, params: len(components), writes: writes}
}

var callComponents = []abi.ArgumentMarshaling{
	component("targetHash", "bytes32"),
	component("callData", "bytes"),
	component("skipped", "bool"),
}

var marketParamsComponent = abi.ArgumentMarshaling{
	Name: "marketParams",
	Type: "tuple",
	Components: []abi.ArgumentMarshaling{
		component("loanToken", "address"),
		component("collateralToken", "address"),
		component("oracle", "address"),
		component("irm", "address"),
		component("lltv", "uint256"),
	},
}

func depositAction(service string) Action {
	return newAction(service, true,
		component("asset", "address"), component("amount", "uint256"),
		component("sumAmounts", "bool"), component("setAsCollateral", "bool"))
}

func borrowAction(service string) Action {
	return newAction(service, true,
		component("asset", "address"), component("amount", "uint256"), component("to", "address"))
}

func withdrawAction(service string) Action {
	return newAction(service, true,
		component("asset", "address"), component("amount", "uint256"), component("to", "address"))
}

func paybackAction(service string) Action {
	return newAction(service, true,
		component("asset", "address"), component("amount", "uint256"),
		component("paybackAll", "bool"), component("onBehalf", "address"))
}

var (
	PullTokenAction = newAction(ServicePullToken, false,
		component("asset", "address"), component("from", "address"), component("amount", "uint256"))
	SendTokenAction = newAction(ServiceSendToken, false,
		component("asset", "address"), component("to", "address"), component("amount", "uint256"))
	SetApprovalAction = newAction(ServiceSetApproval, false,
		component("asset", "address"), component("delegate", "address"),
		component("amount", "uint256"), component("sumAmounts", "bool"))
	SwapAction = newAction(ServiceSwap, true,
		component("fromAsset", "address"), component("toAsset", "address"),
		component("amount", "uint256"), component("receiveAtLeast", "uint256"),
		component("fee", "uint256"), component("withData", "bytes"),
		component("collectFeeInFromToken", "bool"))
	WrapEthAction       = newAction(ServiceWrapEth, false, component("amount", "uint256"))
	UnwrapEthAction     = newAction(ServiceUnwrapEth, false, component("amount", "uint256"))
	ReturnFundsAction   = newAction(ServiceReturnFunds, false, component("asset", "address"))
	TakeFlashloanAction = newAction(ServiceTakeFlashloan, false,
		component("amount", "uint256"), component("asset", "address"),
		component("isProxyFlashloan", "bool"), component("isDPMProxy", "bool"),
		component("provider", "uint8"),
		abi.ArgumentMarshaling{Name: "calls", Type: "tuple[]", Components: callComponents})
	PositionCreatedAction = newAction(ServicePositionCreated, false,
		component("protocol", "string"), component("positionType", "string"),
		component("collateralToken", "address"), component("debtToken", "address"))

	AaveV2DepositAction  = depositAction(ServiceAaveV2Deposit)
	AaveV2BorrowAction   = borrowAction(ServiceAaveV2Borrow)
	AaveV2WithdrawAction = withdrawAction(ServiceAaveV2Withdraw)
	AaveV2PaybackAction  = paybackAction(ServiceAaveV2Payback)

	AaveV3DepositAction  = depositAction(ServiceAaveV3Deposit)
	AaveV3BorrowAction   = borrowAction(ServiceAaveV3Borrow)
	AaveV3WithdrawAction = withdrawAction(ServiceAaveV3Withdraw)
	AaveV3PaybackAction  = paybackAction(ServiceAaveV3Payback)
	AaveV3SetEModeAction = newAction(ServiceAaveV3SetEMode, false, component("categoryId", "uint8"))

	SparkDepositAction  = depositAction(ServiceSparkDeposit)
	SparkBorrowAction   = borrowAction(ServiceSparkBorrow)
	SparkWithdrawAction = withdrawAction(ServiceSparkWithdraw)
	SparkPaybackAction  = paybackAction(ServiceSparkPayback)
	SparkSetEModeAction = newAction(ServiceSparkSetEMode, false, component("categoryId", "uint8"))

	MorphoBlueDepositAction = newAction(ServiceMorphoBlueDeposit, true,
		marketParamsComponent, component("amount", "uint256"), component("sumAmounts", "bool"))
	MorphoBlueBorrowAction = newAction(ServiceMorphoBlueBorrow, true,
		marketParamsComponent, component("amount", "uint256"))
	MorphoBlueWithdrawAction = newAction(ServiceMorphoBlueWithdraw, true,
		marketParamsComponent, component("amount", "uint256"), component("to", "address"))
	MorphoBluePaybackAction = newAction(ServiceMorphoBluePayback, true,
		marketParamsComponent, component("amount", "uint256"),
		component("onBehalf", "address"), component("paybackAll", "bool"))
)

// Argument tuples. Field names follow the tuple component names.

type PullTokenData struct {
	Asset  common.Address
	From   common.Address
	Amount *big.Int
}

type SendTokenData struct {
	Asset  common.Address
	To     common.Address
	Amount *big.Int
}

type SetApprovalData struct {
	Asset      common.Address
	Delegate   common.Address
	Amount     *big.Int
	SumAmounts bool
}

type SwapData struct {
	FromAsset             common.Address
	ToAsset               common.Address
	Amount                *big.Int
	ReceiveAtLeast        *big.Int
	Fee                   *big.Int
	WithData              []byte
	CollectFeeInFromToken bool
}

type AmountData struct {
	Amount *big.Int
}

type ReturnFundsData struct {
	Asset common.Address
}

type PositionCreatedData struct {
	Protocol        string
	PositionType    string
	CollateralToken common.Address
	DebtToken       common.Address
}

type DepositData struct {
	Asset           common.Address
	Amount          *big.Int
	SumAmounts      bool
	SetAsCollateral bool
}

// BorrowData is also the withdraw tuple.
type BorrowData struct {
	Asset  common.Address
	Amount *big.Int
	To     common.Address
}

type PaybackData struct {
	Asset      common.Address
	Amount     *big.Int
	PaybackAll bool
	OnBehalf   common.Address
}

type SetEModeData struct {
	CategoryId uint8
}

// MarketParams identifies a MorphoBlue market.
type MarketParams struct {
	LoanToken       common.Address
	CollateralToken common.Address
	Oracle          common.Address
	Irm             common.Address
	Lltv            *big.Int
}

type MorphoDepositData struct {
	MarketParams MarketParams
	Amount       *big.Int
	SumAmounts   bool
}

type MorphoBorrowData struct {
	MarketParams MarketParams
	Amount       *big.Int
}

type MorphoWithdrawData struct {
	MarketParams MarketParams
	Amount       *big.Int
	To           common.Address
}

type MorphoPaybackData struct {
	MarketParams MarketParams
	Amount       *big.Int
	OnBehalf     common.Address
	PaybackAll   bool
}

// callTuple is the executor's Call struct.
type callTuple struct {
	TargetHash [32]byte
	CallData   []byte
	Skipped    bool
}

type flashloanData struct {
	Amount           *big.Int
	Asset            common.Address
	IsProxyFlashloan bool
	IsDPMProxy       bool
	Provider         uint8
	Calls            []callTuple
}

func toTuples(calls []ActionCall) []callTuple {
	out := make([]callTuple, len(calls))
	for i, c := range calls {
		out[i] = callTuple{TargetHash: c.TargetHash, CallData: c.CallData, Skipped: c.Skipped}
	}
	return out
}
