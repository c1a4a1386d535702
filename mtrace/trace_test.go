package mtrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContextWithTracer_RoundTrip(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	ctx := ContextWithTracer(context.Background(), tracer)

	assert.Equal(t, tracer, FromContext(ctx))
}

func TestFromContext_DefaultsToGlobalTracer(t *testing.T) {
	tracer := FromContext(context.Background())
	assert.NotNil(t, tracer)
}
