package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// SnapshotRequest names the pair and account to read.
type SnapshotRequest struct {
	Collateral *asset.Asset
	Debt       *asset.Asset
	Proxy      common.Address
	// EModeCategory is read when non-zero and the protocol supports e-mode.
	EModeCategory uint8
}

// Snapshot is the protocol state a strategy needs for one position.
type Snapshot struct {
	CollateralReserve domain.ReserveData
	DebtReserve       domain.ReserveData
	Collateral        asset.Amount
	Debt              asset.Amount
	CollateralPrice   decimal.Decimal
	DebtPrice         decimal.Decimal
	EMode             *domain.EModeCategory
}

// OraclePrice is the collateral price in debt token units.
func (s Snapshot) OraclePrice() decimal.Decimal {
	if s.DebtPrice.IsZero() {
		return decimal.Zero
	}
	return s.CollateralPrice.DivRound(s.DebtPrice, 18)
}

// MaxLoanToValue is the e-mode LTV when a category is active, else the collateral reserve's.
func (s Snapshot) MaxLoanToValue() decimal.Decimal {
	if s.EMode != nil {
		return s.EMode.LTV
	}
	return s.CollateralReserve.LTV
}

// LiquidationThreshold follows the same e-mode precedence as MaxLoanToValue.
func (s Snapshot) LiquidationThreshold() decimal.Decimal {
	if s.EMode != nil {
		return s.EMode.LiquidationThreshold
	}
	return s.CollateralReserve.LiquidationThreshold
}

// FetchSnapshot runs every read concurrently. The first failure cancels the rest.
func FetchSnapshot(ctx context.Context, f DataFetcher, req SnapshotRequest) (Snapshot, error) {
	if req.Collateral == nil || req.Debt == nil {
		return Snapshot{}, apperror.Validation(apperror.CodeRequiredField, "collateral and debt tokens are required")
	}

	var (
		snap        Snapshot
		collUser    domain.UserReserveData
		debtUser    domain.UserReserveData
		withEMode   = req.EModeCategory != 0 && f.Protocol().HasEMode()
		eModeSnap   domain.EModeCategory
		hasPosition = req.Proxy != (common.Address{})
		g, groupCtx = errgroup.WithContext(ctx)
	)

	g.Go(func() (err error) {
		snap.CollateralReserve, err = f.FetchReserveData(groupCtx, req.Collateral)
		return err
	})
	g.Go(func() (err error) {
		snap.DebtReserve, err = f.FetchReserveData(groupCtx, req.Debt)
		return err
	})
	g.Go(func() (err error) {
		snap.CollateralPrice, err = f.FetchAssetPrice(groupCtx, req.Collateral)
		return err
	})
	g.Go(func() (err error) {
		snap.DebtPrice, err = f.FetchAssetPrice(groupCtx, req.Debt)
		return err
	})
	if hasPosition {
		g.Go(func() (err error) {
			collUser, err = f.FetchUserReserveData(groupCtx, req.Collateral, req.Proxy)
			return err
		})
		g.Go(func() (err error) {
			debtUser, err = f.FetchUserReserveData(groupCtx, req.Debt, req.Proxy)
			return err
		})
	}
	if withEMode {
		g.Go(func() (err error) {
			eModeSnap, err = f.FetchEModeCategoryData(groupCtx, req.EModeCategory)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap.Collateral = amountOf(req.Collateral, collUser.CurrentATokenBalance)
	snap.Debt = amountOf(req.Debt, debtUser.CurrentVariableDebt)
	if withEMode {
		snap.EMode = &eModeSnap
	}
	return snap, nil
}

func amountOf(token *asset.Asset, raw *big.Int) asset.Amount {
	if raw == nil {
		return asset.Zero(token)
	}
	return asset.NewAmount(token, raw)
}
