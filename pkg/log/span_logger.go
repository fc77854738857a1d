package log

var _ Logger = SpanLogger{}

// SpanLogger writes every line to a wrapped Logger and mirrors it onto a span
// through a SpanEventRecorder. Lines on the wrapped logger carry traceId and
// spanId so they can be joined with the trace.
type SpanLogger struct {
	lg  Logger
	ser SpanEventRecorder
}

// NewSpanLogger wraps lg so that every entry is also recorded by ser.
func NewSpanLogger(lg Logger, ser SpanEventRecorder) Logger {
	return SpanLogger{
		lg:  lg.AddCallerSkip(1),
		ser: ser,
	}
}

// Debug logs at debug level and records a span event.
func (sl SpanLogger) Debug(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.spanAttributes(LevelDebug, keysAndValues)...)
	sl.lg.Debug(msg, sl.withTraceIDs(keysAndValues)...)
}

// Info logs at info level and records a span event.
func (sl SpanLogger) Info(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.spanAttributes(LevelInfo, keysAndValues)...)
	sl.lg.Info(msg, sl.withTraceIDs(keysAndValues)...)
}

// Warn logs at warn level and records a span event.
func (sl SpanLogger) Warn(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.spanAttributes(LevelWarn, keysAndValues)...)
	sl.lg.Warn(msg, sl.withTraceIDs(keysAndValues)...)
}

// Error logs at error level and marks the span as failed.
func (sl SpanLogger) Error(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.spanAttributes(LevelError, keysAndValues)...)
	sl.lg.Error(msg, sl.withTraceIDs(keysAndValues)...)
}

// Fatal logs at fatal level and records a span error.
func (sl SpanLogger) Fatal(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.spanAttributes(LevelFatal, keysAndValues)...)
	sl.lg.Fatal(msg, sl.withTraceIDs(keysAndValues)...)
}

// WithKV returns a SpanLogger whose entries carry the extra pair.
func (sl SpanLogger) WithKV(key string, value any) Logger {
	return SpanLogger{lg: sl.lg.WithKV(key, value), ser: sl.ser}
}

// GetAllKV returns the pairs of the wrapped logger.
func (sl SpanLogger) GetAllKV() []any {
	return sl.lg.GetAllKV()
}

// WithName returns a SpanLogger with name appended.
func (sl SpanLogger) WithName(name string) Logger {
	return SpanLogger{lg: sl.lg.WithName(name), ser: sl.ser}
}

// Name returns the name of the wrapped logger.
func (sl SpanLogger) Name() string {
	return sl.lg.Name()
}

// AddCallerSkip returns a SpanLogger that skips skip more frames.
func (sl SpanLogger) AddCallerSkip(skip int) Logger {
	return SpanLogger{lg: sl.lg.AddCallerSkip(skip), ser: sl.ser}
}

func (sl SpanLogger) withTraceIDs(keysAndValues []any) []any {
	out := make([]any, 0, len(keysAndValues)+4)
	out = append(out, "traceId", sl.ser.TraceID(), "spanId", sl.ser.SpanID())
	return append(out, keysAndValues...)
}

// spanAttributes prefixes the level, the logger name and the persistent pairs,
// since a span event has no other way to carry them.
func (sl SpanLogger) spanAttributes(level Level, keysAndValues []any) []any {
	persistent := sl.lg.GetAllKV()
	out := make([]any, 0, 4+len(persistent)+len(keysAndValues))
	out = append(out, "level", string(level), "component", sl.lg.Name())
	out = append(out, persistent...)
	return append(out, keysAndValues...)
}
