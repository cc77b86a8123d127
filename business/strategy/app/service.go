package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	opApp "github.com/fd1az/dma-strategies/business/operation/app"
	opDomain "github.com/fd1az/dma-strategies/business/operation/domain"
	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	protocolApp "github.com/fd1az/dma-strategies/business/protocol/app"
	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	simApp "github.com/fd1az/dma-strategies/business/simulation/app"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/business/strategy/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
	"github.com/fd1az/dma-strategies/internal/logger"
	"github.com/fd1az/dma-strategies/internal/network"
)

const (
	tracerName = "strategy"
	meterName  = "strategy"
)

// Config holds the defaults applied to every request.
type Config struct {
	Slippage    decimal.Decimal
	EstimateGas bool
}

type serviceMetrics struct {
	invocations metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
}

// Service is the entry point for every strategy. Each call reads fresh protocol state;
// nothing is cached between calls.
type Service struct {
	network   *network.Network
	fetchers  protocolApp.FetcherFactory
	simulator Simulator
	defs      *opDomain.Definitions
	gas       GasEstimator
	cfg       Config
	logger    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewService creates a Service. gas may be nil, in which case no estimate is attached.
func NewService(
	n *network.Network,
	fetchers protocolApp.FetcherFactory,
	simulator Simulator,
	gas GasEstimator,
	cfg Config,
	log logger.LoggerInterface,
) (*Service, error) {
	s := &Service{
		network:   n,
		fetchers:  fetchers,
		simulator: simulator,
		defs:      opDomain.DefaultDefinitions(),
		gas:       gas,
		cfg:       cfg,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return s, nil
}

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.invocations, err = meter.Int64Counter(
		"strategy_invocations_total",
		metric.WithDescription("Strategy invocations by action and protocol"),
	)
	if err != nil {
		return err
	}

	s.metrics.failures, err = meter.Int64Counter(
		"strategy_failures_total",
		metric.WithDescription("Strategy invocations that returned an error"),
	)
	if err != nil {
		return err
	}

	s.metrics.latency, err = meter.Float64Histogram(
		"strategy_latency_ms",
		metric.WithDescription("End to end strategy latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// Network returns the network the service builds for.
func (s *Service) Network() *network.Network { return s.network }

// invocation carries the per-call span, request id and metric attributes.
type invocation struct {
	ctx       context.Context
	span      trace.Span
	requestID string
	attrs     metric.MeasurementOption
	started   time.Time
}

func (s *Service) begin(ctx context.Context, action string, p protocolDomain.Protocol) *invocation {
	requestID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "strategy."+action, trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("protocol", p.String()),
	))
	attrs := metric.WithAttributes(attribute.String("action", action), attribute.String("protocol", p.String()))
	s.metrics.invocations.Add(ctx, 1, attrs)
	return &invocation{ctx: ctx, span: span, requestID: requestID, attrs: attrs, started: time.Now()}
}

func (s *Service) end(inv *invocation, err error) {
	defer inv.span.End()
	s.metrics.latency.Record(inv.ctx, float64(time.Since(inv.started).Milliseconds()), inv.attrs)
	if err != nil {
		s.metrics.failures.Add(inv.ctx, 1, inv.attrs)
		inv.span.RecordError(err)
		inv.span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(inv.ctx, "strategy failed", "request_id", inv.requestID, "error", err)
		return
	}
	inv.span.SetStatus(codes.Ok, "")
}

// tokens are the position's tokens as held by the protocol.
type tokens struct {
	collateral, debt                 *asset.Asset
	collateralIsNative, debtIsNative bool
}

func (s *Service) resolveTokens(ref domain.PositionRef) (tokens, error) {
	if ref.Collateral == nil || ref.Debt == nil {
		return tokens{}, apperror.Validation(apperror.CodeRequiredField, "collateral and debt tokens are required")
	}
	t := tokens{collateral: ref.Collateral, debt: ref.Debt}
	if ref.Collateral.IsNative() || ref.Debt.IsNative() {
		weth, err := s.network.WrappedNative()
		if err != nil {
			return tokens{}, err
		}
		if ref.Collateral.IsNative() {
			t.collateral, t.collateralIsNative = weth, true
		}
		if ref.Debt.IsNative() {
			t.debt, t.debtIsNative = weth, true
		}
	}
	return t, nil
}

// wrapped re-denominates a native amount in the wrapped token.
func wrapped(a asset.Amount, token *asset.Asset) asset.Amount {
	if a.Asset() == nil {
		return asset.Zero(token)
	}
	if a.Asset().IsNative() {
		return asset.NewAmount(token, a.Raw())
	}
	return a
}

// state is everything read from chain for one invocation.
type state struct {
	ref     domain.PositionRef
	tokens  tokens
	fetcher protocolApp.DataFetcher
	snap    protocolApp.Snapshot
	view    *domain.View
}

func (s *Service) read(ctx context.Context, ref domain.PositionRef) (*state, error) {
	tok, err := s.resolveTokens(ref)
	if err != nil {
		return nil, err
	}
	fetcher, err := s.fetchers.Fetcher(ref.Protocol, protocolApp.MarketRef{ID: ref.MarketID, Loan: tok.debt})
	if err != nil {
		return nil, err
	}

	snap, err := protocolApp.FetchSnapshot(ctx, fetcher, protocolApp.SnapshotRequest{
		Collateral:    tok.collateral,
		Debt:          tok.debt,
		Proxy:         ref.Proxy,
		EModeCategory: ref.EModeCategory,
	})
	if err != nil {
		return nil, err
	}

	var market *protocolDomain.MarketParams
	if reader, ok := fetcher.(protocolApp.MarketReader); ok {
		params, err := reader.FetchMarketParams(ctx)
		if err != nil {
			return nil, err
		}
		market = &params
	}

	penalty := snap.CollateralReserve.LiquidationBonus
	if snap.EMode != nil {
		penalty = snap.EMode.LiquidationBonus
	}
	pos := positionDomain.NewPosition(snap.Debt, snap.Collateral, snap.OraclePrice(), positionDomain.Category{
		DustLimit:            decimal.Zero,
		MaxLoanToValue:       snap.MaxLoanToValue(),
		LiquidationThreshold: snap.LiquidationThreshold(),
		LiquidationPenalty:   penalty,
	})

	return &state{
		ref:     ref,
		tokens:  tok,
		fetcher: fetcher,
		snap:    snap,
		view: &domain.View{
			Position:        pos,
			Collateral:      tok.collateral,
			Debt:            tok.debt,
			CollateralPrice: snap.CollateralPrice,
			DebtPrice:       snap.DebtPrice,
			EMode:           snap.EMode,
			Market:          market,
		},
	}, nil
}

// View reads the current position.
func (s *Service) View(ctx context.Context, ref domain.PositionRef) (view *domain.View, err error) {
	inv := s.begin(ctx, "view", ref.Protocol)
	defer func() { s.end(inv, err) }()

	st, err := s.read(inv.ctx, ref)
	if err != nil {
		return nil, err
	}
	return st.view, nil
}

// flashloan resolves where liquidity comes from. Aave v2 cannot flashloan its own debt
// token into the position, so it borrows the network token and deposits it as collateral.
func (s *Service) flashloan(ctx context.Context, st *state) (simDomain.FlashloanSpec, network.Flashloan, error) {
	if st.ref.Protocol != protocolDomain.AaveV2 {
		fl, err := s.network.DirectFlashloan(st.tokens.debt)
		if err != nil {
			return simDomain.FlashloanSpec{}, network.Flashloan{}, err
		}
		return simDomain.FlashloanSpec{Kind: simDomain.DirectFlashloan, Token: fl.Token, Fee: decimal.Zero}, fl, nil
	}

	fl, err := s.network.CollateralisedFlashloan()
	if err != nil {
		return simDomain.FlashloanSpec{}, network.Flashloan{}, err
	}

	var (
		reserve protocolDomain.ReserveData
		price   decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reserve, err = st.fetcher.FetchReserveData(gctx, fl.Token)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = st.fetcher.FetchAssetPrice(gctx, fl.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		return simDomain.FlashloanSpec{}, network.Flashloan{}, err
	}
	if st.snap.DebtPrice.IsZero() {
		return simDomain.FlashloanSpec{}, network.Flashloan{}, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("debt token has no oracle price"))
	}

	return simDomain.FlashloanSpec{
		Kind:        simDomain.CollateralisedFlashloan,
		Token:       fl.Token,
		Fee:         decimal.Zero,
		MaxLTV:      reserve.LTV,
		PriceInDebt: price.DivRound(st.snap.DebtPrice, 18),
	}, fl, nil
}

func caps(r protocolDomain.ReserveData) positionDomain.ReserveCaps {
	return positionDomain.ReserveCaps{
		BorrowCap:   r.BorrowCap,
		SupplyCap:   r.SupplyCap,
		TotalDebt:   r.TotalDebt,
		TotalSupply: r.TotalSupply,
	}
}

func (s *Service) slippage(requested decimal.Decimal) decimal.Decimal {
	if requested.IsPositive() {
		return requested
	}
	return s.cfg.Slippage
}

func (s *Service) transitionArgs(st *state, spec simDomain.FlashloanSpec, slippage decimal.Decimal) simApp.TransitionArgs {
	return simApp.TransitionArgs{
		Position:          st.view.Position,
		Slippage:          s.slippage(slippage),
		IsEarnPosition:    st.ref.IsEarn(),
		Flashloan:         spec,
		DebtReserve:       caps(st.snap.DebtReserve),
		CollateralReserve: caps(st.snap.CollateralReserve),
	}
}

// poolAddress is the contract approvals are granted to.
func (s *Service) poolAddress(p protocolDomain.Protocol) (common.Address, error) {
	switch p {
	case protocolDomain.AaveV2:
		return s.network.Address(network.AaveV2LendingPool)
	case protocolDomain.AaveV3:
		return s.network.Address(network.AaveV3Pool)
	case protocolDomain.Spark:
		return s.network.Address(network.SparkPool)
	case protocolDomain.MorphoBlue:
		return s.network.Address(network.MorphoBlue)
	}
	return common.Address{}, apperror.Validation(apperror.CodeUnsupportedProtocolVersion, p.String())
}

func (s *Service) operationArgs(st *state, tr *simDomain.Transition, spec simDomain.FlashloanSpec, fl network.Flashloan) (opApp.Args, error) {
	executor, err := s.network.Address(network.OperationExecutor)
	if err != nil {
		return opApp.Args{}, err
	}
	pool, err := s.poolAddress(st.ref.Protocol)
	if err != nil {
		return opApp.Args{}, err
	}

	positionType := st.ref.PositionType
	if positionType == "" {
		positionType = domain.PositionTypeMultiply
	}

	args := opApp.Args{
		Addresses: opApp.Addresses{
			Executor: executor,
			Proxy:    st.ref.Proxy,
			User:     st.ref.User,
			Pool:     pool,
		},
		Transition:         tr,
		Collateral:         st.tokens.collateral,
		Debt:               st.tokens.debt,
		CollateralIsNative: st.tokens.collateralIsNative,
		DebtIsNative:       st.tokens.debtIsNative,
		FlashloanProvider:  uint8(fl.Provider),
		EModeCategory:      st.ref.EModeCategory,
		Market:             st.view.Market,
		PositionType:       positionType,
	}
	if tr.Flashloan.Asset() != nil {
		args.FlashloanRepayment = simDomain.FlashloanRepayment(spec, tr.Flashloan)
	}
	return args, nil
}

// finish encodes op and attaches a gas estimate when configured.
func (s *Service) finish(ctx context.Context, st *state, op opDomain.Operation, value *big.Int, tr *simDomain.Transition) (*domain.Result, error) {
	executor, err := s.network.Address(network.OperationExecutor)
	if err != nil {
		return nil, err
	}
	tx, err := opDomain.BuildTransaction(op, executor, st.ref.Proxy, value)
	if err != nil {
		return nil, err
	}

	res := &domain.Result{
		Transaction: domain.Transaction{
			OperationName: op.Name,
			Calls:         op.Calls,
			To:            tx.To,
			Data:          tx.Data,
			Value:         tx.Value,
		},
		Simulation: tr,
	}

	if s.cfg.EstimateGas && s.gas != nil {
		est, err := s.gas.Estimate(ctx, st.ref.User, tx.To, tx.Data, tx.Value)
		if err != nil {
			s.logger.Warn(ctx, "gas estimate unavailable", "operation", op.Name, "error", err)
		} else {
			res.Transaction.Gas = est
		}
	}

	s.logger.Info(ctx, "strategy built",
		"operation", op.Name,
		"calls", len(opDomain.Flatten(op.Calls)),
		"errors", len(tr.Issues.Errors()),
		"warnings", len(tr.Issues.Warnings()),
	)
	return res, nil
}

func (s *Service) adapter(p protocolDomain.Protocol) (opApp.ProtocolAdapter, error) {
	return opApp.ResolveAdapter(p, s.defs)
}

// nativeValue is the ETH sent along with the transaction.
func nativeValue(a asset.Amount, isNative bool) *big.Int {
	if !isNative || a.Asset() == nil {
		return new(big.Int)
	}
	return a.Raw()
}

// Open opens a position at the target risk from a deposit.
func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (res *domain.Result, err error) {
	inv := s.begin(ctx, "open", req.Position.Protocol)
	defer func() { s.end(inv, err) }()
	ctx = inv.ctx

	st, err := s.read(ctx, req.Position)
	if err != nil {
		return nil, err
	}
	if !st.view.Position.IsEmpty() {
		return nil, apperror.Validation(apperror.CodeInvalidState, "position is already open, adjust it instead")
	}
	depositColl := wrapped(req.DepositCollateral, st.tokens.collateral)
	depositDebt := wrapped(req.DepositDebt, st.tokens.debt)
	if depositColl.IsZero() && depositDebt.IsZero() {
		return nil, apperror.Validation(apperror.CodeNoArguments, "At least one argument needs to be provided")
	}

	spec, fl, err := s.flashloan(ctx, st)
	if err != nil {
		return nil, err
	}
	tr, err := s.simulator.SimulateAdjust(ctx, simApp.AdjustArgs{
		TransitionArgs:    s.transitionArgs(st, spec, req.Slippage),
		Target:            req.Target,
		DepositCollateral: depositColl,
		DepositDebt:       depositDebt,
	})
	if err != nil {
		return nil, err
	}
	if !tr.Flags.IsIncreasingRisk {
		return nil, apperror.Validation(apperror.CodeInvalidRiskRatio, fmt.Sprintf(
			"target LTV %s does not lever the deposit", req.Target.LoanToValue().StringFixed(4)))
	}

	adapter, err := s.adapter(req.Position.Protocol)
	if err != nil {
		return nil, err
	}
	args, err := s.operationArgs(st, tr, spec, fl)
	if err != nil {
		return nil, err
	}
	args.DepositDebt = depositDebt
	op, err := adapter.Open(args)
	if err != nil {
		return nil, err
	}

	value := nativeValue(depositColl, st.tokens.collateralIsNative)
	if st.tokens.debtIsNative {
		value = nativeValue(depositDebt, true)
	}
	return s.finish(ctx, st, op, value, tr)
}

// Adjust moves an open position to the target, routing to AdjustUp or AdjustDown by
// comparing the target with the current risk.
func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.Result, error) {
	return s.adjust(ctx, "adjust", req, nil)
}

// AdjustUp raises the position's risk. A target below the current risk is rejected.
func (s *Service) AdjustUp(ctx context.Context, req domain.AdjustRequest) (*domain.Result, error) {
	up := true
	return s.adjust(ctx, "adjust-up", req, &up)
}

// AdjustDown lowers the position's risk. A target above the current risk is rejected.
func (s *Service) AdjustDown(ctx context.Context, req domain.AdjustRequest) (*domain.Result, error) {
	up := false
	return s.adjust(ctx, "adjust-down", req, &up)
}

func (s *Service) adjust(ctx context.Context, action string, req domain.AdjustRequest, wantUp *bool) (res *domain.Result, err error) {
	inv := s.begin(ctx, action, req.Position.Protocol)
	defer func() { s.end(inv, err) }()
	ctx = inv.ctx

	st, err := s.read(ctx, req.Position)
	if err != nil {
		return nil, err
	}
	if st.view.Position.IsEmpty() {
		return nil, apperror.Validation(apperror.CodeInvalidState, "position is empty, open it first")
	}

	spec, fl, err := s.flashloan(ctx, st)
	if err != nil {
		return nil, err
	}
	depositColl := wrapped(req.DepositCollateral, st.tokens.collateral)
	depositDebt := wrapped(req.DepositDebt, st.tokens.debt)
	tr, err := s.simulator.SimulateAdjust(ctx, simApp.AdjustArgs{
		TransitionArgs:    s.transitionArgs(st, spec, req.Slippage),
		Target:            req.Target,
		DepositCollateral: depositColl,
		DepositDebt:       depositDebt,
	})
	if err != nil {
		return nil, err
	}

	up := tr.Flags.IsIncreasingRisk
	if wantUp != nil && *wantUp != up {
		verb := "lower"
		if *wantUp {
			verb = "raise"
		}
		return nil, apperror.Validation(apperror.CodeInvalidRiskRatio, fmt.Sprintf(
			"target LTV %s does not %s the current LTV %s", req.Target.LoanToValue().StringFixed(4), verb,
			st.view.Position.RiskRatio().LoanToValue().StringFixed(4)))
	}

	adapter, err := s.adapter(req.Position.Protocol)
	if err != nil {
		return nil, err
	}
	args, err := s.operationArgs(st, tr, spec, fl)
	if err != nil {
		return nil, err
	}
	args.DepositDebt = depositDebt

	var op opDomain.Operation
	if up {
		op, err = adapter.AdjustUp(args)
	} else {
		op, err = adapter.AdjustDown(args)
	}
	if err != nil {
		return nil, err
	}

	value := new(big.Int)
	if up {
		value = nativeValue(depositColl, st.tokens.collateralIsNative)
	}
	return s.finish(ctx, st, op, value, tr)
}

// Close repays all debt and withdraws all collateral. A position without debt has nothing
// to flashloan against and only withdraws its collateral, whatever the close target.
func (s *Service) Close(ctx context.Context, req domain.CloseRequest) (res *domain.Result, err error) {
	inv := s.begin(ctx, "close", req.Position.Protocol)
	defer func() { s.end(inv, err) }()
	ctx = inv.ctx

	st, err := s.read(ctx, req.Position)
	if err != nil {
		return nil, err
	}
	if st.view.Position.IsEmpty() {
		return nil, apperror.Validation(apperror.CodeInvalidState, "position is empty, nothing to close")
	}
	if st.view.Position.Debt().IsZero() {
		return s.withdrawAll(ctx, st)
	}
	spec, fl, err := s.flashloan(ctx, st)
	if err != nil {
		return nil, err
	}
	tr, err := s.simulator.SimulateClose(ctx, simApp.CloseArgs{
		TransitionArgs: s.transitionArgs(st, spec, req.Slippage),
		To:             req.To,
	})
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapter(req.Position.Protocol)
	if err != nil {
		return nil, err
	}
	args, err := s.operationArgs(st, tr, spec, fl)
	if err != nil {
		return nil, err
	}
	op, err := adapter.Close(args)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, st, op, new(big.Int), tr)
}

// DepositBorrow adds collateral and draws debt without a swap or flashloan.
func (s *Service) DepositBorrow(ctx context.Context, req domain.DepositBorrowRequest) (res *domain.Result, err error) {
	inv := s.begin(ctx, "deposit-borrow", req.Position.Protocol)
	defer func() { s.end(inv, err) }()
	ctx = inv.ctx

	st, err := s.read(ctx, req.Position)
	if err != nil {
		return nil, err
	}
	deposit := wrapped(req.DepositCollateral, st.tokens.collateral)
	tr, err := s.simulator.SimulateLegs(ctx, simApp.LegsArgs{
		TransitionArgs:    s.transitionArgs(st, s.legsFlashloan(st), decimal.Zero),
		DepositCollateral: deposit,
		Borrow:            wrapped(req.Borrow, st.tokens.debt),
		BorrowToTarget:    req.BorrowToTarget,
	})
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapter(req.Position.Protocol)
	if err != nil {
		return nil, err
	}
	args, err := s.operationArgs(st, tr, s.legsFlashloan(st), network.Flashloan{})
	if err != nil {
		return nil, err
	}
	op, err := adapter.DepositBorrow(args)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, st, op, nativeValue(deposit, st.tokens.collateralIsNative), tr)
}

// PaybackWithdraw repays debt and removes collateral without a swap or flashloan.
func (s *Service) PaybackWithdraw(ctx context.Context, req domain.PaybackWithdrawRequest) (res *domain.Result, err error) {
	inv := s.begin(ctx, "payback-withdraw", req.Position.Protocol)
	defer func() { s.end(inv, err) }()
	ctx = inv.ctx

	st, err := s.read(ctx, req.Position)
	if err != nil {
		return nil, err
	}
	tr, err := s.simulator.SimulateLegs(ctx, simApp.LegsArgs{
		TransitionArgs: s.transitionArgs(st, s.legsFlashloan(st), decimal.Zero),
		Payback:        wrapped(req.Payback, st.tokens.debt),
		Withdraw:       wrapped(req.Withdraw, st.tokens.collateral),
	})
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapter(req.Position.Protocol)
	if err != nil {
		return nil, err
	}
	args, err := s.operationArgs(st, tr, s.legsFlashloan(st), network.Flashloan{})
	if err != nil {
		return nil, err
	}
	op, err := adapter.PaybackWithdraw(args)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, st, op, nativeValue(tr.Payback, st.tokens.debtIsNative), tr)
}

// withdrawAll empties a debt-free position with a single withdraw.
func (s *Service) withdrawAll(ctx context.Context, st *state) (*domain.Result, error) {
	tr, err := s.simulator.SimulateLegs(ctx, simApp.LegsArgs{
		TransitionArgs: s.transitionArgs(st, s.legsFlashloan(st), decimal.Zero),
		Withdraw:       st.view.Position.Collateral(),
	})
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapter(st.ref.Protocol)
	if err != nil {
		return nil, err
	}
	args, err := s.operationArgs(st, tr, s.legsFlashloan(st), network.Flashloan{})
	if err != nil {
		return nil, err
	}
	op, err := adapter.PaybackWithdraw(args)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, st, op, new(big.Int), tr)
}

// legsFlashloan is a placeholder spec for moves that never flashloan.
func (s *Service) legsFlashloan(st *state) simDomain.FlashloanSpec {
	return simDomain.FlashloanSpec{Kind: simDomain.DirectFlashloan, Token: st.tokens.debt}
}
