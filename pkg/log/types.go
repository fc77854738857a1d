package log

// Logger is the structured logger used across the module.
// Messages are short, lower-case sentences; context is passed as
// alternating keys and values ("account", id, "error", err).
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs and may terminate the process depending on the backend.
	Fatal(msg string, keysAndValues ...any)

	// WithKV returns a child logger that attaches key=value to every line.
	WithKV(key string, value any) Logger
	// GetAllKV returns the pairs accumulated through WithKV.
	GetAllKV() []any
	// WithName returns a child logger whose name is extended with name.
	WithName(name string) Logger
	Name() string
	// AddCallerSkip is used by wrappers so that the reported caller is the
	// wrapper's caller. Backends without caller reporting return themselves.
	AddCallerSkip(skip int) Logger
}

// Level is a log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// SpanEventRecorder receives log lines that should end up on a trace span.
type SpanEventRecorder interface {
	TraceID() string
	SpanID() string

	// RecordEvent adds a named event with attributes built from keysAndValues.
	RecordEvent(name string, keysAndValues ...any)
	// RecordError adds a named event and flags the span as failed.
	RecordError(name string, keysAndValues ...any)
}
