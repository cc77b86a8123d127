// Package domain encodes operation executor actions and checks built operations against
// their registered layouts.
package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/fd1az/dma-strategies/internal/apperror"
)

// ActionCall is one step of an operation. Skipped calls stay in the operation so its
// layout matches the registered definition; the executor steps over them.
type ActionCall struct {
	TargetHash    common.Hash
	CallData      []byte
	ParamsMapping []uint8
	Skipped       bool
	ServiceName   string
	// Inner holds the calls a flashloan runs in its callback.
	Inner []ActionCall
}

// ServiceHash is the registry key of an action contract.
func ServiceHash(serviceName string) common.Hash {
	return crypto.Keccak256Hash([]byte(serviceName))
}

// executableABI is the entry point every action contract exposes.
const executableABI = `[{"name":"execute","type":"function","stateMutability":"payable","inputs":[
 {"name":"data","type":"bytes"},
 {"name":"paramsMap","type":"uint8[]"}],"outputs":[]}]`

var executable = mustParseABI(executableABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// newCall packs data as the action's argument tuple and wraps it in execute(bytes,uint8[]).
// mapping is padded with zeros to the action's parameter count.
func newCall(action Action, data any, mapping []uint8, skipped bool) (ActionCall, error) {
	packed, err := action.args.Pack(data)
	if err != nil {
		return ActionCall{}, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithCause(err), apperror.WithContext(action.Service))
	}

	params := make([]uint8, action.params)
	copy(params, mapping)

	callData, err := executable.Pack("execute", packed, params)
	if err != nil {
		return ActionCall{}, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithCause(err), apperror.WithContext(action.Service))
	}

	return ActionCall{
		TargetHash:    ServiceHash(action.Service),
		CallData:      callData,
		ParamsMapping: params,
		Skipped:       skipped,
		ServiceName:   action.Service,
	}, nil
}

// Uint256 checks that v fits a uint256 and returns it unchanged. nil is zero.
func Uint256(v *big.Int) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	if v.Sign() < 0 {
		return nil, apperror.New(apperror.CodeAmountOverflow, apperror.WithContext(fmt.Sprintf("negative amount %s", v)))
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, apperror.New(apperror.CodeAmountOverflow, apperror.WithContext(fmt.Sprintf("%s exceeds uint256", v)))
	}
	return v, nil
}

// Flatten lists calls in execution order with each flashloan followed by its inner calls.
func Flatten(calls []ActionCall) []ActionCall {
	out := make([]ActionCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, c)
		if len(c.Inner) > 0 {
			out = append(out, Flatten(c.Inner)...)
		}
	}
	return out
}
