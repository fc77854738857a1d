package log

import (
	"os"
	"path/filepath"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*ZapLogger)(nil)

// Config selects encoder, threshold and destination of a ZapLogger.
type Config struct {
	Format string `env:"LOG_FORMAT" env-default:"console" validate:"omitempty,oneof=console logfmt json"`
	Level  Level  `env:"LOG_LEVEL" env-default:"info" validate:"omitempty,oneof=debug info warn error fatal"`
	Output string `env:"LOG_OUTPUT" env-default:"stderr"` // stderr, stdout or a file path
}

// ZapLogger implements Logger on top of a zap SugaredLogger.
type ZapLogger struct {
	lg            *zap.SugaredLogger
	keysAndValues []any
}

// NewZapLogger builds a logger from conf. Every extra writer receives a copy of
// each line, which is how tests capture output.
func NewZapLogger(conf Config, extraWriters ...zapcore.WriteSyncer) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(ts.UTC().Format(time.RFC3339Nano))
	}

	var encoder zapcore.Encoder
	switch conf.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "logfmt":
		encoder = zaplogfmt.NewEncoder(encCfg)
	default:
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := make([]zapcore.WriteSyncer, 0, len(extraWriters)+1)
	sinks = append(sinks, extraWriters...)
	sinks = append(sinks, openOutput(conf.Output))
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zapLevel(conf.Level))

	// Two frames separate the caller from zap: the public method and log().
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
	return &ZapLogger{lg: zl}
}

// openOutput falls back to stderr when the file cannot be opened.
func openOutput(output string) zapcore.WriteSyncer {
	switch output {
	case "", "stderr":
		return zapcore.Lock(os.Stderr)
	case "stdout":
		return zapcore.Lock(os.Stdout)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return zapcore.Lock(os.Stderr)
	}
	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(f)
}

// Debug logs a message at debug level.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs a message at info level.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs a message at warn level.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs a message at error level.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.log(LevelError, msg, keysAndValues...)
}

// Fatal logs a message at fatal level.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(LevelFatal, msg, keysAndValues...)
}

func (l *ZapLogger) log(level Level, msg string, keysAndValues ...any) {
	l.lg.Logw(zapLevel(level), msg, keysAndValues...)
}

// WithKV returns a logger that adds the pair to every entry.
func (l *ZapLogger) WithKV(key string, value any) Logger {
	kv := make([]any, 0, len(l.keysAndValues)+2)
	kv = append(kv, l.keysAndValues...)
	return &ZapLogger{
		lg:            l.lg.With(key, value),
		keysAndValues: append(kv, key, value),
	}
}

// GetAllKV returns the pairs added with WithKV.
func (l *ZapLogger) GetAllKV() []any {
	return l.keysAndValues
}

// WithName appends name to the dotted logger name.
func (l *ZapLogger) WithName(name string) Logger {
	return &ZapLogger{lg: l.lg.Named(name), keysAndValues: l.keysAndValues}
}

// Name returns the dotted logger name.
func (l *ZapLogger) Name() string {
	return l.lg.Desugar().Name()
}

// AddCallerSkip returns a logger that skips skip more frames when reporting the caller.
func (l *ZapLogger) AddCallerSkip(skip int) Logger {
	return &ZapLogger{
		lg:            l.lg.WithOptions(zap.AddCallerSkip(skip)),
		keysAndValues: l.keysAndValues,
	}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
