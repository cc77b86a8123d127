package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dma-strategies/business/blockchain/domain"
	"github.com/fd1az/dma-strategies/internal/logger"
)

// GasService prices transactions built by strategies.
type GasService struct {
	oracle     GasOracle
	defaultGas uint64
	logger     logger.LoggerInterface
}

// NewGasService creates a GasService. defaultGas is used when the node cannot estimate,
// which is normal for operations whose proxy is not deployed yet.
func NewGasService(oracle GasOracle, defaultGas uint64, log logger.LoggerInterface) *GasService {
	return &GasService{oracle: oracle, defaultGas: defaultGas, logger: log}
}

// Estimate returns the gas limit and cost of a call. A failed limit estimate falls back to
// the default; a failed price read is returned as an error.
func (s *GasService) Estimate(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (*domain.GasEstimate, error) {
	price, err := s.oracle.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	limit, err := s.oracle.EstimateGas(ctx, from, to, data, value)
	defaulted := false
	if err != nil {
		s.logger.Warn(ctx, "gas estimate failed, using default", "to", to.Hex(), "default", s.defaultGas, "error", err)
		limit = s.defaultGas
		defaulted = true
	}

	est := domain.CalculateGasEstimate(limit, price)
	est.Defaulted = defaulted
	return est, nil
}
