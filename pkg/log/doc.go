// Package log is the structured logging layer shared by the ledger transport.
//
// Components never reach for a global logger. A Logger travels inside the
// context.Context handed to constructors and Open calls:
//
//	lg := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelDebug})
//	ctx := log.SetContextLogger(context.Background(), lg)
//
//	ch, err := wsrpc.NewChannel(ctx, url, cfg, handler)
//
// Inside a component the logger is fetched once and named after it:
//
//	lg := log.FromContext(ctx).WithName("ws-channel")
//	lg.Info("connected", "url", url)
//
// When the context carries a valid OpenTelemetry span, SetContextLogger wraps
// the logger in a SpanLogger so that every line is also recorded as a span
// event and error lines mark the span as failed.
//
// A context without a logger yields a NoopLogger.
package log
