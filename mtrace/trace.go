// Package mtrace propagates an OpenTelemetry tracer through context so the
// transaction manager and event subscription manager can wrap commit,
// rollback, and publish in spans without depending on a global tracer.
package mtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type tracerContextKey struct{}

// ContextWithTracer returns a context carrying tracer, retrievable with
// FromContext.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerContextKey{}, tracer)
}

// FromContext extracts the tracer installed by ContextWithTracer, falling
// back to the global otel tracer named "koncentric" when none was
// installed.
//
//nolint:ireturn
func FromContext(ctx context.Context) trace.Tracer {
	if tracer, ok := ctx.Value(tracerContextKey{}).(trace.Tracer); ok && tracer != nil {
		return tracer
	}

	return otel.Tracer("koncentric")
}
