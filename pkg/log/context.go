package log

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey struct{}

var loggerContextKey = contextKey{}

// SetContextLogger stores lg in ctx. A nil lg stores a NoopLogger. If ctx
// carries a valid span the stored logger is a SpanLogger bound to that span.
func SetContextLogger(ctx context.Context, lg Logger) context.Context {
	if lg == nil {
		lg = NewNoopLogger()
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		lg = NewSpanLogger(lg, NewOtelSpanEventRecorder(span))
	}

	return context.WithValue(ctx, loggerContextKey, lg)
}

// FromContext returns the logger stored in ctx, or a NoopLogger.
func FromContext(ctx context.Context) Logger {
	if lg, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return lg
	}
	return NewNoopLogger()
}
