// Package observability provides structured logging, metrics, and
// tracing shared across the retrieval engine's packages.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// ContextKey namespaces context values the logger knows how to surface
// as structured fields.
type ContextKey string

const (
	// TraceIDKey carries the RetrievalResult trace id.
	TraceIDKey ContextKey = "trace_id"
	// QueryIDKey carries a per-query correlation id.
	QueryIDKey ContextKey = "query_id"
	// OperatorOpKey carries the operator tool name in flight.
	OperatorOpKey ContextKey = "operator_op"
)

// Logger wraps slog.Logger with context-aware helpers and an optional
// Sentry hook for warn/error records.
type Logger struct {
	logger *slog.Logger
}

// Config configures the structured logger.
type Config struct {
	Level         string
	Format        string
	Output        io.Writer
	AddSource     bool
	SentryEnabled bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "json",
		Output:        os.Stdout,
		AddSource:     true,
		SentryEnabled: false,
	}
}

// sentryHandler forwards warn/error records to Sentry while still
// delegating to the wrapped handler.
type sentryHandler struct {
	next slog.Handler
}

func (h *sentryHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		sentryCtx := make(map[string]any)
		r.Attrs(func(attr slog.Attr) bool {
			sentryCtx[attr.Key] = attr.Value.Any()
			return true
		})
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetContext("log", sentryCtx)
			scope.SetTag("logger", "slog")
			scope.SetTag("level", r.Level.String())
			sentry.CaptureMessage(r.Message)
		})
	}
	return h.next.Handle(ctx, r)
}

func (h *sentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sentryHandler{next: h.next.WithAttrs(attrs)}
}

func (h *sentryHandler) WithGroup(name string) slog.Handler {
	return &sentryHandler{next: h.next.WithGroup(name)}
}

// NewLogger builds a Logger from cfg.
func NewLogger(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, handlerOpts)
	}

	if cfg.SentryEnabled {
		handler = &sentryHandler{next: handler}
	}

	return &Logger{logger: slog.New(handler)}
}

// WithContext returns an slog.Logger with trace/query/operator fields
// pulled from ctx attached, if present.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	logger := l.logger
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		logger = logger.With("trace_id", v)
	}
	if v, ok := ctx.Value(QueryIDKey).(string); ok && v != "" {
		logger = logger.With("query_id", v)
	}
	if v, ok := ctx.Value(OperatorOpKey).(string); ok && v != "" {
		logger = logger.With("operator_op", v)
	}
	return logger
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Debug(msg, args...)
}
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Info(msg, args...)
}
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Warn(msg, args...)
}
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Error(msg, args...)
}

// With returns a Logger with additional attributes bound.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithGroup returns a Logger with a named attribute group.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{logger: l.logger.WithGroup(name)}
}

// LogRetrieval logs a completed retrieve() call with standard fields.
func (l *Logger) LogRetrieval(ctx context.Context, strategy string, resultCount int, degraded bool, duration time.Duration) {
	l.WithContext(ctx).Info("retrieval",
		"strategy", strategy,
		"result_count", resultCount,
		"degraded", degraded,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogIndexOperation logs an indexer pass with standard fields.
func (l *Logger) LogIndexOperation(ctx context.Context, mode string, unitsIndexed, unitsSkipped int, duration time.Duration) {
	l.WithContext(ctx).Info("index_operation",
		"mode", mode,
		"units_indexed", unitsIndexed,
		"units_skipped", unitsSkipped,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogCircuitTransition logs a circuit breaker state change.
func (l *Logger) LogCircuitTransition(ctx context.Context, component, from, to string) {
	l.WithContext(ctx).Warn("circuit_transition",
		"component", component,
		"from", from,
		"to", to,
	)
}

// LogOperatorOp logs an operator tool invocation outcome.
func (l *Logger) LogOperatorOp(ctx context.Context, op string, ok bool, errorType string, duration time.Duration) {
	l.WithContext(ctx).Info("operator_op",
		"op", op,
		"ok", ok,
		"error_type", errorType,
		"duration_ms", duration.Milliseconds(),
	)
}

// Underlying returns the wrapped slog.Logger.
func (l *Logger) Underlying() *slog.Logger { return l.logger }
