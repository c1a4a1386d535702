package mlog

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ZapLogger wraps an otelzap.SugaredLogger so that every entry logged
// through a context carrying an active span is correlated with that trace,
// the same pairing the teacher uses for its request-scoped logging.
type ZapLogger struct {
	logger *otelzap.SugaredLogger
}

// NewZapLogger builds a production zap logger and wraps it for trace
// correlation. Callers that need a specific zap.Logger (e.g. for tests)
// should use NewZapLoggerFrom instead.
func NewZapLogger() (*ZapLogger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return NewZapLoggerFrom(base), nil
}

// NewZapLoggerFrom wraps an already-constructed zap.Logger.
func NewZapLoggerFrom(base *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: otelzap.New(base).Sugar()}
}

func (l *ZapLogger) Info(args ...any)                  { l.logger.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.logger.Infof(format, args...) }
func (l *ZapLogger) Error(args ...any)                 { l.logger.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.logger.Errorf(format, args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.logger.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.logger.Warnf(format, args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.logger.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.logger.Debugf(format, args...) }
func (l *ZapLogger) Sync() error                       { return l.logger.Sync() }

// WithFields adds structured context to the logger, returning a new logger
// and leaving the receiver unchanged.
//
//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{logger: l.logger.With(fields...)}
}
