package logging

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

const (
	// FieldEventType classifies a log line for filtering (e.g. "batch_rewrite_failed").
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

const defaultErrorHint = "check logs for details"

// Attr is the structured field type accepted by the helpers in this package.
type Attr = slog.Attr

// Duration records a duration. JSON output renders it as <key>_ms.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Float64 records a float value.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Int records an integer value.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// String records a string value.
func String(key string, value string) Attr { return slog.String(key, value) }

// Args converts attrs into the variadic form accepted by slog.Logger.With.
func Args(attrs ...Attr) []any {
	out := make([]any, len(attrs))
	for i, attr := range attrs {
		out[i] = attr
	}
	return out
}

// Error records err under the "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning carrying event_type, error_hint and
// impact. Fields already present in attrs are left alone. ctx is handed to
// the handler unchanged.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	emit(ctx, logger, slog.LevelWarn, msg, attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultErrorHint),
		String(FieldImpact, "operation completed with warnings"),
	)
}

// ErrorWithContext logs an error carrying event_type and error_hint.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	emit(ctx, logger, slog.LevelError, msg, attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultErrorHint),
	)
}

func emit(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, attrs []Attr, defaults ...Attr) {
	if logger == nil {
		return
	}
	for _, d := range defaults {
		if !slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == d.Key }) {
			attrs = append(attrs, d)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}
