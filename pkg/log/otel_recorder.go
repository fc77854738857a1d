package log

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ SpanEventRecorder = (*OtelSpanEventRecorder)(nil)

const (
	missingAttributeValue = "MISSING"
	invalidAttributeKey   = "invalidKeysAndValues"
)

// OtelSpanEventRecorder records log lines as events on an OpenTelemetry span.
type OtelSpanEventRecorder struct {
	span trace.Span
}

// NewOtelSpanEventRecorder records log events on span.
func NewOtelSpanEventRecorder(span trace.Span) *OtelSpanEventRecorder {
	return &OtelSpanEventRecorder{span: span}
}

// TraceID returns the hex trace id of the span.
func (r *OtelSpanEventRecorder) TraceID() string {
	return r.span.SpanContext().TraceID().String()
}

// SpanID returns the hex id of the span.
func (r *OtelSpanEventRecorder) SpanID() string {
	return r.span.SpanContext().SpanID().String()
}

// RecordEvent adds a span event with keysAndValues as attributes.
func (r *OtelSpanEventRecorder) RecordEvent(name string, keysAndValues ...any) {
	r.span.AddEvent(name, trace.WithAttributes(toAttributes(keysAndValues)...))
}

// RecordError adds a span event and marks the span as failed.
func (r *OtelSpanEventRecorder) RecordError(name string, keysAndValues ...any) {
	r.span.AddEvent(name, trace.WithAttributes(toAttributes(keysAndValues)...))
	r.span.SetStatus(codes.Error, name)
}

// toAttributes converts alternating pairs into attributes. A dangling key gets
// missingAttributeValue; a non-string key stops conversion and the remainder is
// stored verbatim under invalidAttributeKey.
func toAttributes(keysAndValues []any) []attribute.KeyValue {
	if len(keysAndValues)%2 != 0 {
		keysAndValues = append(keysAndValues, missingAttributeValue)
	}

	attrs := make([]attribute.KeyValue, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			attrs = append(attrs, attribute.String(invalidAttributeKey, fmt.Sprint(keysAndValues[i:])))
			break
		}
		attrs = append(attrs, toAttribute(key, keysAndValues[i+1]))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int8:
		return attribute.Int64(key, int64(v))
	case int16:
		return attribute.Int64(key, int64(v))
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case uint8:
		return attribute.Int64(key, int64(v))
	case uint16:
		return attribute.Int64(key, int64(v))
	case uint32:
		return attribute.Int64(key, int64(v))
	case float32:
		return attribute.Float64(key, float64(v))
	case float64:
		return attribute.Float64(key, v)
	case error:
		return attribute.String(key, v.Error())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
