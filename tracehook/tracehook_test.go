package tracehook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kestrel-oss/breaker"
	"github.com/kestrel-oss/breaker/tracehook"
)

func TestHooksRecordSpanEventsForTransitionsAndOutcomes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	ctx, span := tracer.Start(context.Background(), "call-downstream")
	hooks := tracehook.New(ctx)

	hooks.OnCallPermitted("orders-api", breaker.Permit)
	hooks.OnSuccess("orders-api")
	hooks.OnOpen("orders-api")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(spans))
	}

	var names []string
	for _, e := range spans[0].Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"breaker.call_permitted", "breaker.success", "breaker.open"}, names)
}

func TestSpanAttachesEventsToExplicitSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "worker-loop")
	hooks := tracehook.Span(span)
	hooks.OnCallRejected("orders-api")
	span.End()

	spans := recorder.Ended()
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "breaker.call_rejected", spans[0].Events()[0].Name)
}
