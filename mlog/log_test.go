package mlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	infos []string
}

func (r *recordingLogger) Info(args ...any)                  { r.infos = append(r.infos, "info") }
func (r *recordingLogger) Infof(format string, args ...any)  {}
func (r *recordingLogger) Error(args ...any)                 {}
func (r *recordingLogger) Errorf(format string, args ...any) {}
func (r *recordingLogger) Warn(args ...any)                  {}
func (r *recordingLogger) Warnf(format string, args ...any)  {}
func (r *recordingLogger) Debug(args ...any)                 {}
func (r *recordingLogger) Debugf(format string, args ...any) {}
func (r *recordingLogger) Sync() error                       { return nil }

//nolint:ireturn
func (r *recordingLogger) WithFields(fields ...any) Logger { return r }

func TestFromContext_DefaultsToNoneLogger(t *testing.T) {
	logger := FromContext(context.Background())
	_, isNone := logger.(*NoneLogger)
	assert.True(t, isNone)
}

func TestContextWithLogger_RoundTrip(t *testing.T) {
	rec := &recordingLogger{}
	ctx := ContextWithLogger(context.Background(), rec)

	retrieved := FromContext(ctx)
	retrieved.Info("hello")

	assert.Equal(t, []string{"info"}, rec.infos)
}

func TestNoneLogger_NeverPanics(t *testing.T) {
	var l NoneLogger
	l.Info("x")
	l.Infof("%s", "x")
	l.Error("x")
	l.Errorf("%s", "x")
	l.Warn("x")
	l.Warnf("%s", "x")
	l.Debug("x")
	l.Debugf("%s", "x")
	assert.NoError(t, l.Sync())
	assert.NotNil(t, l.WithFields("k", "v"))
}
