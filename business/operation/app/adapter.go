// Package app turns simulated transitions into executor operations for each lending protocol.
package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dma-strategies/business/operation/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	swapDomain "github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// Addresses are the accounts an operation touches.
type Addresses struct {
	Executor common.Address
	// Proxy is the account proxy that owns the position.
	Proxy common.Address
	// User funds deposits and receives returned funds.
	User common.Address
	// Pool is the lending pool, or Morpho, that approvals are granted to.
	Pool common.Address
}

// Args carry a simulated transition and everything needed to encode it.
type Args struct {
	Addresses
	Transition *simDomain.Transition
	Collateral *asset.Asset
	Debt       *asset.Asset
	// The position holds the wrapped token; these mark the user side as native.
	CollateralIsNative bool
	DebtIsNative       bool
	DepositDebt        asset.Amount
	FlashloanProvider  uint8
	// FlashloanRepayment is owed to the lender, fee included.
	FlashloanRepayment asset.Amount
	EModeCategory      uint8
	// Market is required by MorphoBlue.
	Market       *protocolDomain.MarketParams
	PositionType string
}

// ProtocolAdapter builds the operations of one lending protocol.
type ProtocolAdapter interface {
	Protocol() protocolDomain.Protocol
	Open(args Args) (domain.Operation, error)
	AdjustUp(args Args) (domain.Operation, error)
	AdjustDown(args Args) (domain.Operation, error)
	Close(args Args) (domain.Operation, error)
	DepositBorrow(args Args) (domain.Operation, error)
	PaybackWithdraw(args Args) (domain.Operation, error)
}

// ResolveAdapter returns the adapter for p.
func ResolveAdapter(p protocolDomain.Protocol, defs *domain.Definitions) (ProtocolAdapter, error) {
	switch p {
	case protocolDomain.AaveV2:
		return NewAaveV2Adapter(defs), nil
	case protocolDomain.AaveV3:
		return NewAaveV3Adapter(defs), nil
	case protocolDomain.Spark:
		return NewSparkAdapter(defs), nil
	case protocolDomain.MorphoBlue:
		return NewMorphoBlueAdapter(defs), nil
	}
	_, err := domain.ActionsFor(p)
	return nil, err
}

// lendingEncoder produces the argument tuples of the protocol's lending actions.
type lendingEncoder interface {
	deposit(token common.Address, amount *big.Int, sumAmounts bool) any
	borrow(token common.Address, amount *big.Int, to common.Address) any
	withdraw(token common.Address, amount *big.Int, to common.Address) any
	payback(token common.Address, amount *big.Int, all bool, onBehalf common.Address) any
}

type aaveEncoder struct{}

func (aaveEncoder) deposit(token common.Address, amount *big.Int, sumAmounts bool) any {
	return domain.DepositData{Asset: token, Amount: amount, SumAmounts: sumAmounts, SetAsCollateral: true}
}

func (aaveEncoder) borrow(token common.Address, amount *big.Int, to common.Address) any {
	return domain.BorrowData{Asset: token, Amount: amount, To: to}
}

func (aaveEncoder) withdraw(token common.Address, amount *big.Int, to common.Address) any {
	return domain.BorrowData{Asset: token, Amount: amount, To: to}
}

func (aaveEncoder) payback(token common.Address, amount *big.Int, all bool, onBehalf common.Address) any {
	return domain.PaybackData{Asset: token, Amount: amount, PaybackAll: all, OnBehalf: onBehalf}
}

// builder holds the operation shapes shared by every protocol. Variants differ in their
// actions and in how lending tuples are encoded.
type builder struct {
	protocol protocolDomain.Protocol
	actions  domain.ProtocolActions
	defs     *domain.Definitions
	encoder  func(Args) (lendingEncoder, error)
}

func newBuilder(p protocolDomain.Protocol, defs *domain.Definitions, enc func(Args) (lendingEncoder, error)) builder {
	actions, err := domain.ActionsFor(p)
	if err != nil {
		panic(err)
	}
	if defs == nil {
		defs = domain.DefaultDefinitions()
	}
	return builder{protocol: p, actions: actions, defs: defs, encoder: enc}
}

func (b builder) Protocol() protocolDomain.Protocol { return b.protocol }

func (b builder) Open(args Args) (domain.Operation, error) {
	return b.build(domain.KindOpen, args, b.riskUp)
}

func (b builder) AdjustUp(args Args) (domain.Operation, error) {
	return b.build(domain.KindAdjustRiskUp, args, b.riskUp)
}

func (b builder) AdjustDown(args Args) (domain.Operation, error) {
	return b.build(domain.KindAdjustRiskDown, args, b.riskDown)
}

func (b builder) Close(args Args) (domain.Operation, error) {
	return b.build(domain.KindClose, args, b.riskDown)
}

func (b builder) DepositBorrow(args Args) (domain.Operation, error) {
	return b.build(domain.KindDepositBorrow, args, b.depositBorrow)
}

func (b builder) PaybackWithdraw(args Args) (domain.Operation, error) {
	return b.build(domain.KindPaybackWithdraw, args, b.paybackWithdraw)
}

type shape func(kind domain.Kind, args Args, enc lendingEncoder, seq *domain.Sequence) error

func (b builder) build(kind domain.Kind, args Args, fn shape) (domain.Operation, error) {
	if args.Transition == nil || args.Collateral == nil || args.Debt == nil {
		return domain.Operation{}, apperror.Validation(apperror.CodeNoArguments, "At least one argument needs to be provided")
	}
	enc, err := b.encoder(args)
	if err != nil {
		return domain.Operation{}, err
	}

	seq := domain.NewSequence()
	if err := fn(kind, args, enc, seq); err != nil {
		return domain.Operation{}, err
	}
	calls, err := seq.Calls()
	if err != nil {
		return domain.Operation{}, err
	}
	if len(calls) == 0 {
		return domain.Operation{}, apperror.Validation(apperror.CodeNoOperationBuilt, "No operation built. Check your arguments.")
	}

	op := domain.Operation{Name: domain.OperationName(b.protocol, kind), Calls: calls}
	if err := b.defs.Check(op); err != nil {
		return domain.Operation{}, err
	}
	return op, nil
}

func raw(a asset.Amount) *big.Int {
	return a.Raw()
}

func returnAddress(token *asset.Asset, native bool) common.Address {
	if native {
		return domain.NativeTokenAddress
	}
	return token.Address()
}

// swapData encodes the swap leg. A transition without a swap yields an empty, skipped call.
func swapData(tr *simDomain.Transition, from, to *asset.Asset) (domain.SwapData, bool) {
	s := tr.Swap
	if s == nil {
		return domain.SwapData{
			FromAsset: from.Address(), ToAsset: to.Address(),
			Amount: new(big.Int), ReceiveAtLeast: new(big.Int), Fee: new(big.Int),
		}, true
	}
	return domain.SwapData{
		FromAsset:             s.SourceToken.Address(),
		ToAsset:               s.TargetToken.Address(),
		Amount:                raw(s.FromTokenAmount),
		ReceiveAtLeast:        raw(s.MinToTokenAmount),
		Fee:                   big.NewInt(s.FeeBps),
		WithData:              s.ExchangeCalldata,
		CollectFeeInFromToken: s.CollectFeeFrom == swapDomain.SourceToken,
	}, false
}

// riskUp: flashloan, borrow against the position and buy collateral.
func (b builder) riskUp(kind domain.Kind, args Args, enc lendingEncoder, seq *domain.Sequence) error {
	tr := args.Transition
	coll, debt := args.Collateral.Address(), args.Debt.Address()

	deposit := tr.Deposit
	depositDebt := args.DepositDebt
	if depositDebt.Asset() == nil {
		depositDebt = asset.Zero(args.Debt)
	}
	wrap := new(big.Int)
	if args.CollateralIsNative {
		wrap = raw(deposit)
	} else if args.DebtIsNative {
		wrap = raw(depositDebt)
	}

	seq.Add(domain.PullTokenAction, domain.PullTokenData{Asset: coll, From: args.User, Amount: raw(deposit)},
		nil, deposit.IsZero() || args.CollateralIsNative)
	seq.Add(domain.PullTokenAction, domain.PullTokenData{Asset: debt, From: args.User, Amount: raw(depositDebt)},
		nil, depositDebt.IsZero() || args.DebtIsNative)
	seq.Add(domain.WrapEthAction, domain.AmountData{Amount: wrap}, nil, wrap.Sign() == 0)

	swap, noSwap := swapData(tr, args.Debt, args.Collateral)
	flToken := tr.Flashloan.Asset().Address()
	fl := raw(tr.Flashloan)

	if b.actions.Collateralised {
		seq.Add(domain.SetApprovalAction, domain.SetApprovalData{Asset: flToken, Delegate: args.Pool, Amount: fl}, nil, false)
		seq.Add(b.actions.Deposit, enc.deposit(flToken, fl, false), nil, false)
		seq.Add(b.actions.Borrow, enc.borrow(debt, raw(tr.Borrow), args.Proxy), nil, false)
		slot := seq.Add(domain.SwapAction, swap, nil, noSwap)
		seq.Add(domain.SetApprovalAction,
			domain.SetApprovalData{Asset: coll, Delegate: args.Pool, Amount: raw(deposit), SumAmounts: true},
			[]uint8{0, 0, slot, 0}, false)
		seq.Add(b.actions.Deposit, enc.deposit(coll, raw(deposit), true), []uint8{0, slot, 0, 0}, false)
		seq.Add(b.actions.Withdraw, enc.withdraw(flToken, fl, args.Executor), nil, false)
	} else {
		slot := seq.Add(domain.SwapAction, swap, nil, noSwap)
		seq.Add(domain.SetApprovalAction,
			domain.SetApprovalData{Asset: coll, Delegate: args.Pool, Amount: raw(deposit), SumAmounts: true},
			[]uint8{0, 0, slot, 0}, false)
		seq.Add(b.actions.Deposit, enc.deposit(coll, raw(deposit), true), []uint8{0, slot, 0, 0}, false)
		if b.actions.SetEMode != nil {
			seq.Add(*b.actions.SetEMode, domain.SetEModeData{CategoryId: args.EModeCategory}, nil,
				kind != domain.KindOpen || args.EModeCategory == 0)
		}
		seq.Add(b.actions.Borrow, enc.borrow(debt, raw(tr.Borrow), args.Proxy), nil, false)
		seq.Add(domain.SendTokenAction,
			domain.SendTokenData{Asset: debt, To: args.Executor, Amount: raw(repayment(args))}, nil, false)
	}

	seq.Flashloan(domain.FlashloanArgs{
		Amount:           fl,
		Asset:            flToken,
		IsProxyFlashloan: true,
		IsDPMProxy:       true,
		Provider:         args.FlashloanProvider,
	})

	if kind == domain.KindOpen {
		seq.Add(domain.PositionCreatedAction, domain.PositionCreatedData{
			Protocol:        b.protocol.OperationTag(),
			PositionType:    args.PositionType,
			CollateralToken: coll,
			DebtToken:       debt,
		}, nil, false)
	}
	return nil
}

// riskDown: flashloan, repay, withdraw and sell collateral. Close repays all and withdraws
// the whole balance.
func (b builder) riskDown(kind domain.Kind, args Args, enc lendingEncoder, seq *domain.Sequence) error {
	tr := args.Transition
	coll, debt := args.Collateral.Address(), args.Debt.Address()
	closing := kind == domain.KindClose

	depositDebt := args.DepositDebt
	if depositDebt.Asset() == nil {
		depositDebt = asset.Zero(args.Debt)
	}
	if depositDebt.IsPositive() && args.DebtIsNative {
		return apperror.Validation(apperror.CodeInvalidInput, "native debt deposits are not supported when reducing risk")
	}

	withdraw := raw(tr.Withdraw)
	if closing {
		withdraw = domain.MaxUint256
	}
	payback := raw(tr.Payback)

	swap, noSwap := swapData(tr, args.Collateral, args.Debt)
	flToken := tr.Flashloan.Asset().Address()
	fl := raw(tr.Flashloan)

	unwrap := new(big.Int)
	if args.CollateralIsNative {
		unwrap = new(big.Int).Sub(raw(tr.Withdraw), swap.Amount)
	}
	skipUnwrap := unwrap.Sign() <= 0

	seq.Add(domain.PullTokenAction, domain.PullTokenData{Asset: debt, From: args.User, Amount: raw(depositDebt)},
		nil, depositDebt.IsZero())

	if b.actions.Collateralised {
		seq.Add(domain.SetApprovalAction, domain.SetApprovalData{Asset: flToken, Delegate: args.Pool, Amount: fl}, nil, false)
		seq.Add(b.actions.Deposit, enc.deposit(flToken, fl, false), nil, false)
		seq.Add(b.actions.Withdraw, enc.withdraw(coll, withdraw, args.Proxy), nil, false)
		seq.Add(domain.SwapAction, swap, nil, noSwap)
		seq.Add(domain.SetApprovalAction, domain.SetApprovalData{Asset: debt, Delegate: args.Pool, Amount: payback}, nil, false)
		seq.Add(b.actions.Payback, enc.payback(debt, payback, closing, args.Proxy), nil, false)
		seq.Add(b.actions.Withdraw, enc.withdraw(flToken, fl, args.Executor), nil, false)
	} else {
		seq.Add(domain.SetApprovalAction, domain.SetApprovalData{Asset: debt, Delegate: args.Pool, Amount: payback}, nil, false)
		seq.Add(b.actions.Payback, enc.payback(debt, payback, closing, args.Proxy), nil, false)
		seq.Add(b.actions.Withdraw, enc.withdraw(coll, withdraw, args.Proxy), nil, false)
		seq.Add(domain.SwapAction, swap, nil, noSwap)
		seq.Add(domain.SendTokenAction,
			domain.SendTokenData{Asset: debt, To: args.Executor, Amount: raw(repayment(args))}, nil, false)
	}
	seq.Add(domain.UnwrapEthAction, domain.AmountData{Amount: unwrap}, nil, skipUnwrap)

	seq.Flashloan(domain.FlashloanArgs{
		Amount:           fl,
		Asset:            flToken,
		IsProxyFlashloan: true,
		IsDPMProxy:       true,
		Provider:         args.FlashloanProvider,
	})

	seq.Add(domain.ReturnFundsAction, domain.ReturnFundsData{Asset: returnAddress(args.Debt, args.DebtIsNative)}, nil, false)
	seq.Add(domain.ReturnFundsAction, domain.ReturnFundsData{Asset: returnAddress(args.Collateral, args.CollateralIsNative)}, nil, false)
	return nil
}

func (b builder) depositBorrow(_ domain.Kind, args Args, enc lendingEncoder, seq *domain.Sequence) error {
	tr := args.Transition
	coll, debt := args.Collateral.Address(), args.Debt.Address()
	deposit, borrow := tr.Deposit, tr.Borrow
	hasDeposit, hasBorrow := deposit.IsPositive(), borrow.IsPositive()
	if !hasDeposit && !hasBorrow {
		return apperror.Validation(apperror.CodeNoArguments, "At least one argument needs to be provided")
	}

	seq.Add(domain.PullTokenAction, domain.PullTokenData{Asset: coll, From: args.User, Amount: raw(deposit)},
		nil, !hasDeposit || args.CollateralIsNative)
	seq.Add(domain.WrapEthAction, domain.AmountData{Amount: raw(deposit)}, nil, !hasDeposit || !args.CollateralIsNative)
	seq.Add(domain.SetApprovalAction, domain.SetApprovalData{Asset: coll, Delegate: args.Pool, Amount: raw(deposit)},
		nil, !hasDeposit)
	seq.Add(b.actions.Deposit, enc.deposit(coll, raw(deposit), false), nil, !hasDeposit)
	seq.Add(b.actions.Borrow, enc.borrow(debt, raw(borrow), args.Proxy), nil, !hasBorrow)
	seq.Add(domain.UnwrapEthAction, domain.AmountData{Amount: raw(borrow)}, nil, !hasBorrow || !args.DebtIsNative)
	seq.Add(domain.ReturnFundsAction, domain.ReturnFundsData{Asset: returnAddress(args.Debt, args.DebtIsNative)},
		nil, !hasBorrow)
	return nil
}

func (b builder) paybackWithdraw(_ domain.Kind, args Args, enc lendingEncoder, seq *domain.Sequence) error {
	tr := args.Transition
	coll, debt := args.Collateral.Address(), args.Debt.Address()
	payback, withdraw := tr.Payback, tr.Withdraw
	hasPayback, hasWithdraw := payback.IsPositive(), withdraw.IsPositive()
	if !hasPayback && !hasWithdraw {
		return apperror.Validation(apperror.CodeNoArguments, "At least one argument needs to be provided")
	}
	paybackAll := hasPayback && payback.Equals(tr.Current.Debt())

	seq.Add(domain.PullTokenAction, domain.PullTokenData{Asset: debt, From: args.User, Amount: raw(payback)},
		nil, !hasPayback || args.DebtIsNative)
	seq.Add(domain.WrapEthAction, domain.AmountData{Amount: raw(payback)}, nil, !hasPayback || !args.DebtIsNative)
	seq.Add(domain.SetApprovalAction, domain.SetApprovalData{Asset: debt, Delegate: args.Pool, Amount: raw(payback)},
		nil, !hasPayback)
	seq.Add(b.actions.Payback, enc.payback(debt, raw(payback), paybackAll, args.Proxy), nil, !hasPayback)
	seq.Add(b.actions.Withdraw, enc.withdraw(coll, raw(withdraw), args.Proxy), nil, !hasWithdraw)
	seq.Add(domain.UnwrapEthAction, domain.AmountData{Amount: raw(withdraw)}, nil, !hasWithdraw || !args.CollateralIsNative)
	seq.Add(domain.ReturnFundsAction, domain.ReturnFundsData{Asset: returnAddress(args.Collateral, args.CollateralIsNative)},
		nil, !hasWithdraw)
	return nil
}

// repayment falls back to the flashloan itself when no repayment was given.
func repayment(args Args) asset.Amount {
	if args.FlashloanRepayment.Asset() != nil {
		return args.FlashloanRepayment
	}
	return args.Transition.Flashloan
}
