package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// OtelTraceID reads the active otel span's trace id.
func OtelTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
