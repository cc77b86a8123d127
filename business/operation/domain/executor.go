package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dma-strategies/internal/apperror"
)

const operationExecutorABI = `[{"name":"executeOp","type":"function","stateMutability":"payable","inputs":[
 {"name":"calls","type":"tuple[]","components":[
  {"name":"targetHash","type":"bytes32"},
  {"name":"callData","type":"bytes"},
  {"name":"skipped","type":"bool"}]},
 {"name":"operationName","type":"string"}],"outputs":[]}]`

const accountProxyABI = `[{"name":"execute","type":"function","stateMutability":"payable","inputs":[
 {"name":"_target","type":"address"},
 {"name":"_data","type":"bytes"}],"outputs":[{"name":"","type":"bytes32"}]}]`

var (
	operationExecutor = mustParseABI(operationExecutorABI)
	accountProxy      = mustParseABI(accountProxyABI)
)

// Operation is a named, ordered list of top-level calls.
type Operation struct {
	Name  string
	Calls []ActionCall
}

// Transaction is what a wallet signs to run an operation.
type Transaction struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// EncodeExecuteOp returns executeOp(calls, operationName) calldata.
func EncodeExecuteOp(op Operation) ([]byte, error) {
	if len(op.Calls) == 0 {
		return nil, apperror.Validation(apperror.CodeNoOperationBuilt, "No operation built. Check your arguments.")
	}
	data, err := operationExecutor.Pack("executeOp", toTuples(op.Calls), op.Name)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err), apperror.WithContext(op.Name))
	}
	return data, nil
}

// EncodeProxyExecute wraps calldata for target in an account proxy execute(address,bytes).
func EncodeProxyExecute(target common.Address, data []byte) ([]byte, error) {
	out, err := accountProxy.Pack("execute", target, data)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err), apperror.WithContext("proxy execute"))
	}
	return out, nil
}

// BuildTransaction encodes op for executor. When proxy is non-zero the call goes through
// the account proxy, which delegates to the executor.
func BuildTransaction(op Operation, executor, proxy common.Address, value *big.Int) (Transaction, error) {
	data, err := EncodeExecuteOp(op)
	if err != nil {
		return Transaction{}, err
	}
	if value == nil {
		value = new(big.Int)
	}
	if proxy == (common.Address{}) {
		return Transaction{To: executor, Data: data, Value: value}, nil
	}
	wrapped, err := EncodeProxyExecute(executor, data)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{To: proxy, Data: wrapped, Value: value}, nil
}

// NativeTokenAddress is how actions refer to the chain's native coin.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// MaxUint256 asks withdraw actions for the whole balance.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
