// Package mockexchange is a deterministic swap provider backed by a fixed price table.
// It quotes without I/O and is used for dry runs and tests.
package mockexchange

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dma-strategies/business/swap/app"
	"github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

const exchangeABI = `[{"name":"swap","type":"function","stateMutability":"nonpayable","inputs":[
 {"name":"assetFrom","type":"address"},
 {"name":"assetTo","type":"address"},
 {"name":"amountIn","type":"uint256"},
 {"name":"receiveAtLeast","type":"uint256"}],"outputs":[]}]`

var _ app.SwapDataProvider = (*Exchange)(nil)

type listing struct {
	token *asset.Asset
	usd   decimal.Decimal
}

// Exchange quotes every pair at the ratio of the listed USD prices.
type Exchange struct {
	mu      sync.RWMutex
	address common.Address
	abi     abi.ABI
	tokens  map[common.Address]listing
	// spread is taken off every output, a fraction.
	spread decimal.Decimal
}

// New creates an Exchange whose calldata targets address.
func New(address common.Address) (*Exchange, error) {
	parsed, err := abi.JSON(strings.NewReader(exchangeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange ABI: %w", err)
	}
	return &Exchange{
		address: address,
		abi:     parsed,
		tokens:  make(map[common.Address]listing),
	}, nil
}

// SetPrice lists token at a USD price per whole token.
func (e *Exchange) SetPrice(token *asset.Asset, usd decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokens[token.Address()] = listing{token: token, usd: usd}
}

// SetSpread sets the fraction taken off every output.
func (e *Exchange) SetSpread(spread decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spread = spread
}

// GetSwapData quotes from the price table.
func (e *Exchange) GetSwapData(_ context.Context, from, to common.Address, amount *big.Int, slippage decimal.Decimal) (*domain.Quote, error) {
	e.mu.RLock()
	in, okIn := e.tokens[from]
	out, okOut := e.tokens[to]
	spread := e.spread
	e.mu.RUnlock()

	if !okIn || !okOut {
		return nil, apperror.New(apperror.CodeSwapQuoteFailed,
			apperror.WithContext(fmt.Sprintf("no price for %s -> %s", from.Hex(), to.Hex())))
	}
	if out.usd.IsZero() {
		return nil, apperror.New(apperror.CodeSwapQuoteFailed, apperror.WithContext("zero price"))
	}

	value := decimal.NewFromBigInt(amount, -int32(in.token.Decimals())).Mul(in.usd)
	outWhole := value.Div(out.usd).Mul(decimal.NewFromInt(1).Sub(spread))
	toAmount := asset.FromDecimal(out.token, outWhole, asset.PrecisionNormal, asset.RoundDown).Raw()
	minTo := domain.MinToTokenAmountFor(toAmount, slippage)

	calldata, err := e.abi.Pack("swap", from, to, amount, minTo)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err))
	}

	return &domain.Quote{
		FromTokenAddress: from,
		ToTokenAddress:   to,
		FromTokenAmount:  new(big.Int).Set(amount),
		ToTokenAmount:    toAmount,
		MinToTokenAmount: minTo,
		ExchangeCalldata: calldata,
		ExchangeAddress:  e.address,
		Source:           "mock",
	}, nil
}
