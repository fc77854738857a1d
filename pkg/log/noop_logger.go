package log

var _ Logger = NoopLogger{}

// NoopLogger drops everything. It is what FromContext returns for a bare context.
type NoopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return NoopLogger{}
}

// Debug does nothing.
func (NoopLogger) Debug(string, ...any) {}

// Info does nothing.
func (NoopLogger) Info(string, ...any) {}

// Warn does nothing.
func (NoopLogger) Warn(string, ...any) {}

// Error does nothing.
func (NoopLogger) Error(string, ...any) {}

// Fatal does nothing.
func (NoopLogger) Fatal(string, ...any) {}

// WithKV returns the same NoopLogger.
func (n NoopLogger) WithKV(string, any) Logger { return n }

// GetAllKV returns nil.
func (NoopLogger) GetAllKV() []any { return nil }

// WithName returns the same NoopLogger.
func (n NoopLogger) WithName(string) Logger { return n }

// Name returns "noop".
func (NoopLogger) Name() string { return "noop" }

// AddCallerSkip returns the same NoopLogger.
func (n NoopLogger) AddCallerSkip(int) Logger { return n }
