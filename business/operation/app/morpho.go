package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dma-strategies/business/operation/domain"
)

// morphoEncoder ignores the token arguments: a market fixes both tokens.
type morphoEncoder struct {
	market domain.MarketParams
}

func (e morphoEncoder) deposit(_ common.Address, amount *big.Int, sumAmounts bool) any {
	return domain.MorphoDepositData{MarketParams: e.market, Amount: amount, SumAmounts: sumAmounts}
}

func (e morphoEncoder) borrow(_ common.Address, amount *big.Int, _ common.Address) any {
	return domain.MorphoBorrowData{MarketParams: e.market, Amount: amount}
}

func (e morphoEncoder) withdraw(_ common.Address, amount *big.Int, to common.Address) any {
	return domain.MorphoWithdrawData{MarketParams: e.market, Amount: amount, To: to}
}

func (e morphoEncoder) payback(_ common.Address, amount *big.Int, all bool, onBehalf common.Address) any {
	return domain.MorphoPaybackData{MarketParams: e.market, Amount: amount, OnBehalf: onBehalf, PaybackAll: all}
}
