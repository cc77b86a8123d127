// Package app runs the quote, simulate and re-quote pipeline that turns a target risk
// ratio into a fully priced position transition.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	"github.com/fd1az/dma-strategies/business/simulation/domain"
	swapApp "github.com/fd1az/dma-strategies/business/swap/app"
	swapDomain "github.com/fd1az/dma-strategies/business/swap/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
)

const (
	tracerName = "simulation"
	meterName  = "simulation"
)

// TokenAddressFunc maps a token to the address the swap provider trades. Native tokens
// resolve to their wrapped form.
type TokenAddressFunc func(*asset.Asset) (common.Address, error)

// TransitionArgs are shared by every simulation.
type TransitionArgs struct {
	Position       positionDomain.Position
	Slippage       decimal.Decimal
	IsEarnPosition bool
	Flashloan      domain.FlashloanSpec
	// Reserve caps feed validation only. Zero caps are unlimited.
	DebtReserve       positionDomain.ReserveCaps
	CollateralReserve positionDomain.ReserveCaps
}

// AdjustArgs move a position to Target, optionally depositing first.
type AdjustArgs struct {
	TransitionArgs
	Target            positionDomain.RiskRatio
	DepositCollateral asset.Amount
	DepositDebt       asset.Amount
}

// CloseArgs repay everything and withdraw everything.
type CloseArgs struct {
	TransitionArgs
	To domain.CloseTo
}

// LegsArgs apply deposit/borrow or payback/withdraw without a swap.
type LegsArgs struct {
	TransitionArgs
	DepositCollateral asset.Amount
	Borrow            asset.Amount
	Payback           asset.Amount
	Withdraw          asset.Amount
	BorrowToTarget    *positionDomain.RiskRatio
}

type simulatorMetrics struct {
	simulations metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
}

// Simulator prices transitions against a swap provider. It holds no per-call state.
type Simulator struct {
	swap    swapApp.SwapDataProvider
	resolve TokenAddressFunc
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *simulatorMetrics
}

// NewSimulator creates a Simulator. A nil resolve uses token addresses as they are.
func NewSimulator(swap swapApp.SwapDataProvider, resolve TokenAddressFunc, log logger.LoggerInterface) (*Simulator, error) {
	if resolve == nil {
		resolve = func(a *asset.Asset) (common.Address, error) { return a.Address(), nil }
	}
	s := &Simulator{
		swap:    swap,
		resolve: resolve,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return s, nil
}

func (s *Simulator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &simulatorMetrics{}

	s.metrics.simulations, err = meter.Int64Counter(
		"simulation_runs_total",
		metric.WithDescription("Total simulations by kind"),
	)
	if err != nil {
		return err
	}

	s.metrics.failures, err = meter.Int64Counter(
		"simulation_failures_total",
		metric.WithDescription("Simulations that returned an error"),
	)
	if err != nil {
		return err
	}

	s.metrics.latency, err = meter.Float64Histogram(
		"simulation_latency_ms",
		metric.WithDescription("Simulation latency including quotes"),
		metric.WithUnit("ms"),
	)
	return err
}

func (s *Simulator) start(ctx context.Context, kind string) (context.Context, trace.Span, func(error)) {
	ctx, span := s.tracer.Start(ctx, "simulation."+kind)
	started := time.Now()
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	s.metrics.simulations.Add(ctx, 1, attrs)

	return ctx, span, func(err error) {
		s.metrics.latency.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
		if err != nil {
			s.metrics.failures.Add(ctx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// SimulateAdjust quotes the market, solves the move and re-quotes the exact swap.
func (s *Simulator) SimulateAdjust(ctx context.Context, args AdjustArgs) (tr *domain.Transition, err error) {
	ctx, span, done := s.start(ctx, "adjust")
	defer span.End()
	defer func() { done(err) }()

	if s.swap == nil {
		return nil, apperror.Validation(apperror.CodeSwapDataMissing, "Swap data is missing")
	}

	current := args.Position
	collateralToken := current.Collateral().Asset()
	debtToken := current.Debt().Asset()

	withDeposit, err := current.Deposit(orZero(args.DepositCollateral, collateralToken))
	if err != nil {
		return nil, err
	}
	isIncreasingRisk := args.Target.LoanToValue().GreaterThan(withDeposit.RiskRatio().LoanToValue())

	marketPrice, err := s.marketPrice(ctx, collateralToken, debtToken, isIncreasingRisk)
	if err != nil {
		return nil, err
	}

	feeBps := swapDomain.ResolveFee(collateralToken.Symbol(), debtToken.Symbol(), swapDomain.FeeFlags{
		IsIncreasingRisk: isIncreasingRisk,
		IsEarnPosition:   args.IsEarnPosition,
	})

	plan, err := domain.PlanAdjust(domain.AdjustInput{
		Position:          current,
		Target:            args.Target,
		DepositCollateral: args.DepositCollateral,
		DepositDebt:       args.DepositDebt,
		MarketPrice:       marketPrice,
		Slippage:          args.Slippage,
		Fee:               swapDomain.FeeFraction(feeBps),
		FlashloanFee:      directFee(args.Flashloan),
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("increasing_risk", plan.IsIncreasingRisk),
		attribute.String("market_price", marketPrice.String()),
		attribute.Int64("fee_bps", feeBps),
	)

	// The flashloan covers the debt leg. Collateralised flashloans back the borrow on the
	// way up and the withdrawn collateral on the way down.
	flValue := plan.DebtRequirement.ToDecimal()
	if args.Flashloan.Kind == domain.CollateralisedFlashloan {
		flValue = plan.Borrow.ToDecimal()
		if !plan.IsIncreasingRisk {
			flValue = plan.Withdraw.ToDecimal().Mul(current.OraclePrice())
		}
	}
	flashloan, err := domain.SizeFlashloan(args.Flashloan, flValue)
	if err != nil {
		return nil, err
	}

	tr = &domain.Transition{
		Flags: domain.Flags{
			IsIncreasingRisk:  plan.IsIncreasingRisk,
			RequiresFlashloan: flashloan.IsPositive(),
			UsesSwap:          plan.UsesSwap(),
		},
		Flashloan: flashloan,
		Deposit:   orZero(args.DepositCollateral, collateralToken),
		Borrow:    plan.Borrow,
		Payback:   plan.Payback,
		Withdraw:  plan.Withdraw,
		Current:   current,
		Target:    plan.Target,
	}

	if plan.UsesSwap() {
		from, to := debtToken, collateralToken
		if !plan.IsIncreasingRisk {
			from, to = collateralToken, debtToken
		}
		if tr.Swap, err = s.accurateSwap(ctx, from, to, plan.SwapAmount, feeBps, args.Slippage, plan.IsIncreasingRisk); err != nil {
			return nil, err
		}
	}

	s.finish(tr, args.TransitionArgs, marketPrice, positionDomain.ValidationInput{})

	s.logger.Debug(ctx, "adjust simulated",
		"increasing_risk", plan.IsIncreasingRisk,
		"target_ltv", tr.Target.RiskRatio().LoanToValue().String(),
		"flashloan", flashloan.String(),
		"issues", len(tr.Issues),
	)
	return tr, nil
}

// SimulateClose sells collateral to repay all debt.
func (s *Simulator) SimulateClose(ctx context.Context, args CloseArgs) (tr *domain.Transition, err error) {
	ctx, span, done := s.start(ctx, "close")
	defer span.End()
	defer func() { done(err) }()

	if s.swap == nil {
		return nil, apperror.Validation(apperror.CodeSwapDataMissing, "Swap data is missing")
	}

	current := args.Position
	collateralToken := current.Collateral().Asset()
	debtToken := current.Debt().Asset()
	if current.Collateral().IsZero() {
		return nil, apperror.Validation(apperror.CodeInvalidState, "position has no collateral to close")
	}

	marketPrice, err := s.marketPrice(ctx, collateralToken, debtToken, false)
	if err != nil {
		return nil, err
	}

	feeBps := swapDomain.ResolveFee(collateralToken.Symbol(), debtToken.Symbol(), swapDomain.FeeFlags{
		IsEarnPosition: args.IsEarnPosition,
	})

	plan, err := domain.PlanClose(domain.CloseInput{
		Position:     current,
		To:           args.To,
		MarketPrice:  marketPrice,
		Slippage:     args.Slippage,
		Fee:          swapDomain.FeeFraction(feeBps),
		FlashloanFee: directFee(args.Flashloan),
	})
	if err != nil {
		return nil, err
	}

	flValue := plan.DebtRequirement.ToDecimal()
	if args.Flashloan.Kind == domain.CollateralisedFlashloan {
		flValue = current.CollateralValue()
	}
	flashloan, err := domain.SizeFlashloan(args.Flashloan, flValue)
	if err != nil {
		return nil, err
	}

	tr = &domain.Transition{
		Flags: domain.Flags{
			RequiresFlashloan: flashloan.IsPositive(),
			UsesSwap:          plan.SwapAmount.IsPositive(),
		},
		Flashloan: flashloan,
		Deposit:   asset.Zero(collateralToken),
		Borrow:    asset.Zero(debtToken),
		Payback:   plan.Payback,
		Withdraw:  plan.Withdraw,
		Current:   current,
		Target:    plan.Target,
	}

	if tr.Flags.UsesSwap {
		if tr.Swap, err = s.accurateSwap(ctx, collateralToken, debtToken, plan.SwapAmount, feeBps, args.Slippage, false); err != nil {
			return nil, err
		}
	}

	s.finish(tr, args.TransitionArgs, marketPrice, positionDomain.ValidationInput{})
	span.SetAttributes(attribute.String("close_to", args.To.String()))
	return tr, nil
}

// SimulateLegs applies deposit/borrow/payback/withdraw directly. No quote is taken.
func (s *Simulator) SimulateLegs(ctx context.Context, args LegsArgs) (tr *domain.Transition, err error) {
	_, span, done := s.start(ctx, "legs")
	defer span.End()
	defer func() { done(err) }()

	current := args.Position
	plan, err := domain.PlanLegs(domain.LegsInput{
		Position:          current,
		DepositCollateral: args.DepositCollateral,
		Borrow:            args.Borrow,
		Payback:           args.Payback,
		Withdraw:          args.Withdraw,
		BorrowToTarget:    args.BorrowToTarget,
	})
	if err != nil {
		return nil, err
	}

	tr = &domain.Transition{
		Flags: domain.Flags{
			IsIncreasingRisk: plan.Target.RiskRatio().LoanToValue().GreaterThan(current.RiskRatio().LoanToValue()),
		},
		Flashloan: asset.Zero(current.Debt().Asset()),
		Deposit:   plan.Deposit,
		Borrow:    plan.Borrow,
		Payback:   plan.Payback,
		Withdraw:  plan.Withdraw,
		Current:   current,
		Target:    plan.Target,
	}

	s.finish(tr, args.TransitionArgs, current.OraclePrice(), positionDomain.ValidationInput{
		Withdraw: plan.RequestedWithdraw,
		Payback:  plan.RequestedPayback,
	})
	return tr, nil
}

// finish fills the delta, the min configurable ratio and the validation issues.
func (s *Simulator) finish(tr *domain.Transition, args TransitionArgs, marketPrice decimal.Decimal, v positionDomain.ValidationInput) {
	tr.Delta = domain.NewDelta(tr.Current, tr.Target, tr.Flashloan)

	sellPrice := marketPrice.Mul(decimal.NewFromInt(1).Sub(args.Slippage))
	tr.MinConfigurableRiskRatio = tr.Target.MinConfigurableRiskRatio(sellPrice)

	v.Current = tr.Current
	v.Target = tr.Target
	v.MinConfigurable = tr.MinConfigurableRiskRatio
	v.DebtReserve = args.DebtReserve
	v.CollateralReserve = args.CollateralReserve
	v.IsEarnPosition = args.IsEarnPosition
	tr.Issues = positionDomain.ValidateTransition(v)
}

// marketPrice quotes one whole source token and returns collateral priced in debt.
func (s *Simulator) marketPrice(ctx context.Context, collateral, debt *asset.Asset, isIncreasingRisk bool) (decimal.Decimal, error) {
	from, to := collateral, debt
	if isIncreasingRisk {
		from, to = debt, collateral
	}
	fromAddr, err := s.resolve(from)
	if err != nil {
		return decimal.Zero, err
	}
	toAddr, err := s.resolve(to)
	if err != nil {
		return decimal.Zero, err
	}

	quote, err := s.swap.GetSwapData(ctx, fromAddr, toAddr, from.OneUnit().Raw(), decimal.Zero)
	if err != nil {
		return decimal.Zero, apperror.Wrap(err, apperror.CodeSwapQuoteFailed, "market price quote")
	}
	if err := quote.Validate(); err != nil {
		return decimal.Zero, err
	}

	rate := quote.MarketPrice(from, to)
	if !rate.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodeInvalidQuote, apperror.WithContext("zero market price"))
	}
	if isIncreasingRisk {
		return decimal.NewFromInt(1).DivRound(rate, 18), nil
	}
	return rate, nil
}

// accurateSwap quotes the exact amount and attaches the fee on the side it is collected.
func (s *Simulator) accurateSwap(
	ctx context.Context,
	from, to *asset.Asset,
	amount asset.Amount,
	feeBps int64,
	slippage decimal.Decimal,
	isIncreasingRisk bool,
) (*domain.Swap, error) {
	res, err := swapApp.GetSwapDataHelper(ctx, swapApp.SwapDataArgs{
		From:             from,
		To:               to,
		Amount:           amount,
		Slippage:         slippage,
		FeeBps:           feeBps,
		IsIncreasingRisk: isIncreasingRisk,
	}, swapApp.SwapDataDeps{
		GetSwapData:     s.swap,
		GetTokenAddress: s.resolve,
	})
	if err != nil {
		return nil, err
	}

	q := res.SwapData
	swap := &domain.Swap{
		SourceToken:      from,
		TargetToken:      to,
		FromTokenAmount:  amount,
		ToTokenAmount:    asset.NewAmount(to, q.ToTokenAmount),
		MinToTokenAmount: asset.NewAmount(to, q.MinToTokenAmount),
		ExchangeCalldata: q.ExchangeCalldata,
		ExchangeAddress:  q.ExchangeAddress,
		FeeBps:           feeBps,
		CollectFeeFrom:   res.CollectFeeFrom,
		PreSwapFee:       res.PreSwapFee,
		PostSwapFee:      asset.Zero(to),
	}
	swap.TokenFee = swap.PreSwapFee
	if res.CollectFeeFrom == swapDomain.TargetToken {
		swap.PostSwapFee = domain.PostSwapFeeEstimate(swap.ToTokenAmount, feeBps)
		swap.TokenFee = swap.PostSwapFee
	}
	return swap, nil
}

// directFee is the lender fee the swap has to earn back. Collateralised flashloans are
// returned from the pool and never touch the swap output.
func directFee(spec domain.FlashloanSpec) decimal.Decimal {
	if spec.Kind == domain.DirectFlashloan {
		return spec.Fee
	}
	return decimal.Zero
}

func orZero(a asset.Amount, token *asset.Asset) asset.Amount {
	if a.Asset() == nil {
		return asset.Zero(token)
	}
	return a
}
