package httpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/business/strategy/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/network"
)

// Strategy actions accepted by Dispatch.
const (
	ActionOpen            = "open"
	ActionAdjust          = "adjust"
	ActionAdjustUp        = "adjust-up"
	ActionAdjustDown      = "adjust-down"
	ActionClose           = "close"
	ActionDepositBorrow   = "deposit-borrow"
	ActionPaybackWithdraw = "payback-withdraw"
)

// Strategies is the strategy service as seen by the transports.
type Strategies interface {
	View(ctx context.Context, ref domain.PositionRef) (*domain.View, error)
	Open(ctx context.Context, req domain.OpenRequest) (*domain.Result, error)
	Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.Result, error)
	AdjustUp(ctx context.Context, req domain.AdjustRequest) (*domain.Result, error)
	AdjustDown(ctx context.Context, req domain.AdjustRequest) (*domain.Result, error)
	Close(ctx context.Context, req domain.CloseRequest) (*domain.Result, error)
	DepositBorrow(ctx context.Context, req domain.DepositBorrowRequest) (*domain.Result, error)
	PaybackWithdraw(ctx context.Context, req domain.PaybackWithdrawRequest) (*domain.Result, error)
}

// Dispatcher turns transport requests into strategy calls. The HTTP handlers and the
// one-shot CLI share it.
type Dispatcher struct {
	strategies Strategies
	network    *network.Network
}

// NewDispatcher creates a Dispatcher resolving tokens against n.
func NewDispatcher(s Strategies, n *network.Network) *Dispatcher {
	return &Dispatcher{strategies: s, network: n}
}

// Dispatch runs action on protocol.
func (d *Dispatcher) Dispatch(ctx context.Context, protocol, action string, req Request) (*domain.Result, error) {
	p, err := protocolDomain.ParseProtocol(protocol)
	if err != nil {
		return nil, err
	}
	ref, err := d.positionRef(p, req)
	if err != nil {
		return nil, err
	}
	slippage, err := parseDecimal("slippage", req.Slippage)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionOpen, ActionAdjust, ActionAdjustUp, ActionAdjustDown:
		if req.RiskRatio == nil {
			return nil, apperror.Validation(apperror.CodeRequiredField, "riskRatio is required")
		}
		depositColl, err := d.amount(ref.Collateral, req.DepositCollateral)
		if err != nil {
			return nil, err
		}
		depositDebt, err := d.amount(ref.Debt, req.DepositDebt)
		if err != nil {
			return nil, err
		}
		if action == ActionOpen {
			return d.strategies.Open(ctx, domain.OpenRequest{
				Position: ref, Target: *req.RiskRatio, DepositCollateral: depositColl, DepositDebt: depositDebt, Slippage: slippage,
			})
		}
		adjust := domain.AdjustRequest{
			Position: ref, Target: *req.RiskRatio, DepositCollateral: depositColl, DepositDebt: depositDebt, Slippage: slippage,
		}
		switch action {
		case ActionAdjustUp:
			return d.strategies.AdjustUp(ctx, adjust)
		case ActionAdjustDown:
			return d.strategies.AdjustDown(ctx, adjust)
		}
		return d.strategies.Adjust(ctx, adjust)

	case ActionClose:
		to, err := simDomain.ParseCloseTo(req.CloseTo)
		if err != nil {
			return nil, err
		}
		return d.strategies.Close(ctx, domain.CloseRequest{Position: ref, To: to, Slippage: slippage})

	case ActionDepositBorrow:
		deposit, err := d.amount(ref.Collateral, req.DepositCollateral)
		if err != nil {
			return nil, err
		}
		borrow, err := d.amount(ref.Debt, req.Borrow)
		if err != nil {
			return nil, err
		}
		return d.strategies.DepositBorrow(ctx, domain.DepositBorrowRequest{
			Position: ref, DepositCollateral: deposit, Borrow: borrow, BorrowToTarget: req.BorrowToTarget,
		})

	case ActionPaybackWithdraw:
		payback, err := d.amount(ref.Debt, req.Payback)
		if err != nil {
			return nil, err
		}
		withdraw, err := d.amount(ref.Collateral, req.Withdraw)
		if err != nil {
			return nil, err
		}
		return d.strategies.PaybackWithdraw(ctx, domain.PaybackWithdrawRequest{Position: ref, Payback: payback, Withdraw: withdraw})
	}

	return nil, apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("unknown action %q", action))
}

// View reads the position req points at.
func (d *Dispatcher) View(ctx context.Context, protocol string, req Request) (*domain.View, error) {
	p, err := protocolDomain.ParseProtocol(protocol)
	if err != nil {
		return nil, err
	}
	ref, err := d.positionRef(p, req)
	if err != nil {
		return nil, err
	}
	return d.strategies.View(ctx, ref)
}

func (d *Dispatcher) positionRef(p protocolDomain.Protocol, req Request) (domain.PositionRef, error) {
	collateral, err := d.token(req.CollateralToken)
	if err != nil {
		return domain.PositionRef{}, err
	}
	debt, err := d.token(req.DebtToken)
	if err != nil {
		return domain.PositionRef{}, err
	}
	proxy, err := parseAddress("proxy", req.Proxy)
	if err != nil {
		return domain.PositionRef{}, err
	}
	user, err := parseAddress("user", req.User)
	if err != nil {
		return domain.PositionRef{}, err
	}

	ref := domain.PositionRef{
		Protocol:      p,
		Collateral:    collateral,
		Debt:          debt,
		Proxy:         proxy,
		User:          user,
		EModeCategory: req.EModeCategory,
		PositionType:  req.PositionType,
	}
	if req.MarketID != "" {
		ref.MarketID = common.HexToHash(req.MarketID)
	}
	if p == protocolDomain.MorphoBlue && ref.MarketID == (common.Hash{}) {
		return domain.PositionRef{}, apperror.Validation(apperror.CodeRequiredField, "marketId is required for morpho-blue")
	}
	return ref, nil
}

// token accepts a symbol or an address.
func (d *Dispatcher) token(s string) (*asset.Asset, error) {
	if s == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "collateralToken and debtToken are required")
	}
	if common.IsHexAddress(s) {
		return d.network.TokenByAddress(common.HexToAddress(s))
	}
	return d.network.Token(s)
}

func (d *Dispatcher) amount(token *asset.Asset, s string) (asset.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return asset.Zero(token), nil
	}
	a, err := asset.ParseString(token, s)
	if err != nil {
		return asset.Amount{}, apperror.Validation(apperror.CodeInvalidAmount, fmt.Sprintf("%s amount %q", token.Symbol(), s))
	}
	return a, nil
}

func parseAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, apperror.Validation(apperror.CodeInvalidFormat, fmt.Sprintf("%s is not an address", field))
	}
	return common.HexToAddress(s), nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidFormat, fmt.Sprintf("%s: %v", field, err))
	}
	return v, nil
}
