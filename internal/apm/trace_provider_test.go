package apm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/fd1az/dma-strategies/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"x-honeycomb-team=abc", map[string]string{"x-honeycomb-team": "abc"}},
		{"api-key=k, x-dataset=strategies", map[string]string{"api-key": "k", "x-dataset": "strategies"}},
		{"broken,a=b", map[string]string{"a": "b"}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseHeaders(tt.in), tt.in)
	}
}

func TestNewTraceProvider_Empty(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), Config{Provider: EmptyProvider}, logger.NewDiscard())
	require.NoError(t, err)
	require.IsType(t, emptyProvider{}, tp)
	require.NoError(t, tp.Stop())
}

func TestNewTraceProvider_Unknown(t *testing.T) {
	_, err := NewTraceProvider(context.Background(), Config{Provider: "jaeger"}, logger.NewDiscard())
	require.Error(t, err)
}

func TestNewTraceProvider_ConsoleExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Config{
		Provider:    ConsoleProvider,
		ServiceName: "dma-strategies-test",
		Console:     &buf,
	}, logger.NewDiscard())
	require.NoError(t, err)

	_, span := otel.Tracer("apm-test").Start(context.Background(), "strategy.open")
	span.End()

	require.NoError(t, tp.Stop())
	require.Contains(t, buf.String(), "strategy.open")
	require.Contains(t, buf.String(), "dma-strategies-test")
}
