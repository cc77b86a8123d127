package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fd1az/dma-strategies/internal/logger"
)

func TestNewMetricProvider_RequiresReader(t *testing.T) {
	_, err := NewMetricProvider(context.Background(), Config{ServiceName: "svc"})
	require.Error(t, err)
}

func TestServer_ExposesCounters(t *testing.T) {
	ctx := context.Background()
	p, err := NewMetricProvider(ctx, Config{ServiceName: "dma-strategies", Prometheus: true})
	require.NoError(t, err)

	counter, err := p.Meter("metrics-test").Int64Counter("strategy_invocations_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	srv := NewServer(0, p, logger.NewDiscard())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "strategy_invocations_total")

	require.NoError(t, srv.Stop(ctx))
}

func TestProvider_HandlerWithoutPrometheus(t *testing.T) {
	p := &Provider{}
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
