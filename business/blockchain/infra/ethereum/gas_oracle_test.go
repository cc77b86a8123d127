package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/business/blockchain/app"
	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/logger"
)

type fakeClient struct {
	price    *big.Int
	gas      uint64
	gasErr   error
	lastCall ethereum.CallMsg
}

func (c *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) { return c.price, nil }

func (c *fakeClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.lastCall = msg
	return c.gas, c.gasErr
}

var (
	user  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	proxy = common.HexToAddress("0x00000000000000000000000000000000000000f2")
)

func TestGasOracle_EstimateAddsMargin(t *testing.T) {
	client := &fakeClient{gas: 1_000_000}
	oracle, err := NewGasOracle(client, DefaultGasOracleConfig(), logger.NewDiscard())
	require.NoError(t, err)

	gas, err := oracle.EstimateGas(context.Background(), user, proxy, []byte{0x01}, big.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, uint64(1_100_000), gas)
	require.Equal(t, user, client.lastCall.From)
	require.Equal(t, proxy, *client.lastCall.To)
	require.Equal(t, big.NewInt(5), client.lastCall.Value)
}

func TestGasOracle_ClampsPrice(t *testing.T) {
	client := &fakeClient{price: big.NewInt(900_000_000_000)}
	oracle, err := NewGasOracle(client, DefaultGasOracleConfig(), logger.NewDiscard())
	require.NoError(t, err)

	price, err := oracle.GetGasPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, float64(500), price.Gwei)
}

func TestGasService_FallsBackToDefault(t *testing.T) {
	client := &fakeClient{price: big.NewInt(10_000_000_000), gasErr: errors.New("execution reverted")}
	oracle, err := NewGasOracle(client, DefaultGasOracleConfig(), logger.NewDiscard())
	require.NoError(t, err)

	_, err = oracle.EstimateGas(context.Background(), user, proxy, nil, nil)
	require.Equal(t, apperror.CodeGasEstimationFailed, apperror.GetCode(err))

	svc := app.NewGasService(oracle, 1_500_000, logger.NewDiscard())
	est, err := svc.Estimate(context.Background(), user, proxy, nil, nil)
	require.NoError(t, err)
	require.True(t, est.Defaulted)
	require.Equal(t, uint64(1_500_000), est.GasLimit)
	require.Equal(t, "0.015", est.TotalETH().String())
}
