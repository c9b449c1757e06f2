// Package logging is the structured-logging seam of docbox. Everything logs
// through Logger; slog backs it in every process.
package logging

import "context"

// Logger takes a message plus alternating keys and values:
//
//	log.Info(ctx, "presigned upload created", "task_id", id, "file_key", key)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds fields to every entry of the returned logger.
	With(args ...any) Logger
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l. Request and tenant scoped
// fields travel this way from middleware to handlers.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by NewContext, or fallback.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return fallback
}
