package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FlashloanArgs configure the TakeFlashloan call that wraps the calls built so far.
type FlashloanArgs struct {
	Amount           *big.Int
	Asset            common.Address
	IsProxyFlashloan bool
	IsDPMProxy       bool
	Provider         uint8
}

// Sequence builds calls in execution order and tracks the executor storage slots that
// writing actions fill, so later calls can map their inputs to earlier outputs. The first
// error sticks and is returned by Calls.
type Sequence struct {
	calls []ActionCall
	slots uint8
	err   error
}

func NewSequence() *Sequence {
	return &Sequence{}
}

// Add encodes a call and returns the storage slot it writes, or 0 when it writes nothing
// or is skipped.
func (s *Sequence) Add(action Action, data any, mapping []uint8, skipped bool) uint8 {
	if s.err != nil {
		return 0
	}
	if err := checkAmounts(data); err != nil {
		s.err = err
		return 0
	}
	call, err := newCall(action, data, mapping, skipped)
	if err != nil {
		s.err = err
		return 0
	}
	s.calls = append(s.calls, call)

	if !action.writes || skipped {
		return 0
	}
	s.slots++
	return s.slots
}

// Flashloan replaces the calls built so far with one TakeFlashloan that runs them in its
// callback. Calls added afterwards run once the flashloan is repaid.
func (s *Sequence) Flashloan(args FlashloanArgs) {
	if s.err != nil {
		return
	}
	amount, err := Uint256(args.Amount)
	if err != nil {
		s.err = err
		return
	}
	inner := s.calls
	data := flashloanData{
		Amount:           amount,
		Asset:            args.Asset,
		IsProxyFlashloan: args.IsProxyFlashloan,
		IsDPMProxy:       args.IsDPMProxy,
		Provider:         args.Provider,
		Calls:            toTuples(inner),
	}
	call, err := newCall(TakeFlashloanAction, data, nil, false)
	if err != nil {
		s.err = err
		return
	}
	call.Inner = inner
	s.calls = []ActionCall{call}
}

// Calls returns the built calls or the first error.
func (s *Sequence) Calls() ([]ActionCall, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.calls, nil
}

func checkAmounts(data any) error {
	var amounts []*big.Int
	switch v := data.(type) {
	case PullTokenData:
		amounts = []*big.Int{v.Amount}
	case SendTokenData:
		amounts = []*big.Int{v.Amount}
	case SetApprovalData:
		amounts = []*big.Int{v.Amount}
	case SwapData:
		amounts = []*big.Int{v.Amount, v.ReceiveAtLeast, v.Fee}
	case AmountData:
		amounts = []*big.Int{v.Amount}
	case DepositData:
		amounts = []*big.Int{v.Amount}
	case BorrowData:
		amounts = []*big.Int{v.Amount}
	case PaybackData:
		amounts = []*big.Int{v.Amount}
	case MorphoDepositData:
		amounts = []*big.Int{v.Amount, v.MarketParams.Lltv}
	case MorphoBorrowData:
		amounts = []*big.Int{v.Amount, v.MarketParams.Lltv}
	case MorphoWithdrawData:
		amounts = []*big.Int{v.Amount, v.MarketParams.Lltv}
	case MorphoPaybackData:
		amounts = []*big.Int{v.Amount, v.MarketParams.Lltv}
	}
	for _, a := range amounts {
		if _, err := Uint256(a); err != nil {
			return err
		}
	}
	return nil
}
