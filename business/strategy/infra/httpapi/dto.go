package httpapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	opDomain "github.com/fd1az/dma-strategies/business/operation/domain"
	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/business/strategy/domain"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// Request is the body of every strategy call. Tokens are symbols or addresses; amounts
// are in whole token units.
type Request struct {
	CollateralToken string `json:"collateralToken"`
	DebtToken       string `json:"debtToken"`
	Proxy           string `json:"proxy,omitempty"`
	User            string `json:"user,omitempty"`
	EModeCategory   uint8  `json:"eModeCategory,omitempty"`
	MarketID        string `json:"marketId,omitempty"`
	PositionType    string `json:"positionType,omitempty"`

	RiskRatio      *positionDomain.RiskRatio `json:"riskRatio,omitempty"`
	BorrowToTarget *positionDomain.RiskRatio `json:"borrowToTarget,omitempty"`

	DepositCollateral string `json:"depositCollateral,omitempty"`
	DepositDebt       string `json:"depositDebt,omitempty"`
	Borrow            string `json:"borrow,omitempty"`
	Payback           string `json:"payback,omitempty"`
	Withdraw          string `json:"withdraw,omitempty"`

	Slippage string `json:"slippage,omitempty"`
	CloseTo  string `json:"closeTo,omitempty"`
}

// Response is what a strategy call returns.
type Response struct {
	Transaction TransactionDTO `json:"tx"`
	Simulation  SimulationDTO  `json:"simulation"`
}

type TransactionDTO struct {
	OperationName string    `json:"operationName"`
	To            string    `json:"to"`
	Data          string    `json:"data"`
	Value         string    `json:"value"`
	Calls         []CallDTO `json:"calls"`
	Gas           *GasDTO   `json:"gas,omitempty"`
}

type CallDTO struct {
	Service       string    `json:"service"`
	TargetHash    string    `json:"targetHash"`
	CallData      string    `json:"callData"`
	ParamsMapping []uint8   `json:"paramsMapping,omitempty"`
	Skipped       bool      `json:"skipped"`
	Inner         []CallDTO `json:"inner,omitempty"`
}

type GasDTO struct {
	Limit     uint64 `json:"limit"`
	PriceGwei string `json:"priceGwei"`
	CostETH   string `json:"costEth"`
	Defaulted bool   `json:"defaulted"`
}

type SimulationDTO struct {
	Flags                    simDomain.Flags          `json:"flags"`
	Delta                    simDomain.Delta          `json:"delta"`
	Flashloan                AmountDTO                `json:"flashloan"`
	Deposit                  AmountDTO                `json:"deposit"`
	Borrow                   AmountDTO                `json:"borrow"`
	Payback                  AmountDTO                `json:"payback"`
	Withdraw                 AmountDTO                `json:"withdraw"`
	Swap                     *SwapDTO                 `json:"swap,omitempty"`
	Current                  PositionDTO              `json:"position"`
	Target                   PositionDTO              `json:"targetPosition"`
	MinConfigurableRiskRatio positionDomain.RiskRatio `json:"minConfigurableRiskRatio"`
	Issues                   positionDomain.Issues    `json:"issues"`
}

type AmountDTO struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
	Raw    string `json:"raw"`
}

type SwapDTO struct {
	From             AmountDTO `json:"from"`
	To               AmountDTO `json:"to"`
	MinTo            AmountDTO `json:"minTo"`
	Fee              AmountDTO `json:"fee"`
	FeeBps           int64     `json:"feeBps"`
	CollectFeeFrom   string    `json:"collectFeeFrom"`
	ExchangeAddress  string    `json:"exchangeAddress"`
	ExchangeCalldata string    `json:"exchangeCalldata"`
}

type PositionDTO struct {
	Collateral           AmountDTO `json:"collateral"`
	Debt                 AmountDTO `json:"debt"`
	OraclePrice          string    `json:"oraclePrice"`
	LoanToValue          string    `json:"ltv"`
	Multiple             string    `json:"multiple"`
	MaxLoanToValue       string    `json:"maxLtv"`
	LiquidationThreshold string    `json:"liquidationThreshold"`
	LiquidationPrice     string    `json:"liquidationPrice"`
	HealthFactor         string    `json:"healthFactor"`
	NetValue             string    `json:"netValue"`
}

type ViewResponse struct {
	Position        PositionDTO `json:"position"`
	CollateralPrice string      `json:"collateralPrice"`
	DebtPrice       string      `json:"debtPrice"`
	EModeCategory   uint8       `json:"eModeCategory,omitempty"`
	Market          *MarketDTO  `json:"market,omitempty"`
}

type MarketDTO struct {
	LoanToken       string `json:"loanToken"`
	CollateralToken string `json:"collateralToken"`
	Oracle          string `json:"oracle"`
	IRM             string `json:"irm"`
	LLTV            string `json:"lltv"`
}

func toAmount(a asset.Amount) AmountDTO {
	if a.Asset() == nil {
		return AmountDTO{Amount: "0", Raw: "0"}
	}
	return AmountDTO{Token: a.Asset().Symbol(), Amount: a.ToDecimal().String(), Raw: a.Raw().String()}
}

func toPosition(p positionDomain.Position) PositionDTO {
	rr := p.RiskRatio()
	return PositionDTO{
		Collateral:           toAmount(p.Collateral()),
		Debt:                 toAmount(p.Debt()),
		OraclePrice:          p.OraclePrice().String(),
		LoanToValue:          rr.LoanToValue().StringFixed(4),
		Multiple:             rr.Multiple().StringFixed(4),
		MaxLoanToValue:       p.Category().MaxLoanToValue.String(),
		LiquidationThreshold: p.Category().LiquidationThreshold.String(),
		LiquidationPrice:     p.LiquidationPrice().StringFixed(6),
		HealthFactor:         p.HealthFactor().StringFixed(4),
		NetValue:             p.NetValue().StringFixed(6),
	}
}

func toCalls(calls []opDomain.ActionCall) []CallDTO {
	out := make([]CallDTO, 0, len(calls))
	for _, c := range calls {
		out = append(out, CallDTO{
			Service:       c.ServiceName,
			TargetHash:    c.TargetHash.Hex(),
			CallData:      hexutil.Encode(c.CallData),
			ParamsMapping: c.ParamsMapping,
			Skipped:       c.Skipped,
			Inner:         toCalls(c.Inner),
		})
	}
	return out
}

func toSwap(s *simDomain.Swap) *SwapDTO {
	if s == nil {
		return nil
	}
	return &SwapDTO{
		From:             toAmount(s.FromTokenAmount),
		To:               toAmount(s.ToTokenAmount),
		MinTo:            toAmount(s.MinToTokenAmount),
		Fee:              toAmount(s.TokenFee),
		FeeBps:           s.FeeBps,
		CollectFeeFrom:   string(s.CollectFeeFrom),
		ExchangeAddress:  s.ExchangeAddress.Hex(),
		ExchangeCalldata: hexutil.Encode(s.ExchangeCalldata),
	}
}

func valueString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewResponse renders a strategy result.
func NewResponse(res *domain.Result) Response {
	tx := res.Transaction
	out := Response{
		Transaction: TransactionDTO{
			OperationName: tx.OperationName,
			To:            tx.To.Hex(),
			Data:          hexutil.Encode(tx.Data),
			Value:         valueString(tx.Value),
			Calls:         toCalls(tx.Calls),
		},
	}
	if tx.Gas != nil {
		out.Transaction.Gas = &GasDTO{
			Limit:     tx.Gas.GasLimit,
			PriceGwei: decimal.NewFromBigInt(tx.Gas.GasPrice.Wei, -9).String(),
			CostETH:   tx.Gas.TotalETH().String(),
			Defaulted: tx.Gas.Defaulted,
		}
	}

	if tr := res.Simulation; tr != nil {
		out.Simulation = SimulationDTO{
			Flags:                    tr.Flags,
			Delta:                    tr.Delta,
			Flashloan:                toAmount(tr.Flashloan),
			Deposit:                  toAmount(tr.Deposit),
			Borrow:                   toAmount(tr.Borrow),
			Payback:                  toAmount(tr.Payback),
			Withdraw:                 toAmount(tr.Withdraw),
			Swap:                     toSwap(tr.Swap),
			Current:                  toPosition(tr.Current),
			Target:                   toPosition(tr.Target),
			MinConfigurableRiskRatio: tr.MinConfigurableRiskRatio,
			Issues:                   tr.Issues,
		}
	}
	return out
}

// NewViewResponse renders a position view.
func NewViewResponse(v *domain.View) ViewResponse {
	out := ViewResponse{
		Position:        toPosition(v.Position),
		CollateralPrice: v.CollateralPrice.String(),
		DebtPrice:       v.DebtPrice.String(),
	}
	if v.EMode != nil {
		out.EModeCategory = v.EMode.ID
	}
	if m := v.Market; m != nil {
		out.Market = toMarket(*m)
	}
	return out
}

func toMarket(m protocolDomain.MarketParams) *MarketDTO {
	lltv := "0"
	if m.LLTV != nil {
		lltv = m.LLTV.String()
	}
	return &MarketDTO{
		LoanToken:       m.LoanToken.Hex(),
		CollateralToken: m.CollateralToken.Hex(),
		Oracle:          m.Oracle.Hex(),
		IRM:             m.IRM.Hex(),
		LLTV:            lltv,
	}
}
