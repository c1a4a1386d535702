// Package mlog carries the core's structured-logging contract: a narrow
// Logger interface any backend can satisfy, a NoneLogger default so the
// core never requires a logger to be wired in, and a context-propagation
// pair so repositories and listeners reached through the ambient
// transaction can log without threading a logger through every signature.
package mlog

import "context"

// Logger is the logging contract the core and the demonstration layer log
// through. It is intentionally narrow — no structured-field typing beyond
// WithFields — so both a zap-backed implementation and a test double can
// satisfy it without ceremony.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	// WithFields returns a logger that annotates every subsequent entry
	// with the given key/value pairs, leaving the receiver unchanged.
	WithFields(fields ...any) Logger

	Sync() error
}

type loggerContextKey struct{}

// ContextWithLogger returns a context carrying logger, retrievable with
// FromContext.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext extracts the Logger installed by ContextWithLogger, falling
// back to a NoneLogger when none was installed.
//
//nolint:ireturn
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(Logger); ok && logger != nil {
		return logger
	}

	return &NoneLogger{}
}
