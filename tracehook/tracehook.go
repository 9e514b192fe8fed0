// Package tracehook adapts breaker state-transition and outcome events
// onto OpenTelemetry spans, fulfilling the library's "structured-tracing
// emitter" external collaborator (the engine raises events; this package
// formats them).
package tracehook

import (
	"context"

	"github.com/kestrel-oss/breaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// New builds a *breaker.Hooks that emits one span event per transition and
// per call outcome onto whatever span is active in ctx at construction
// time. Tracing a breaker's lifetime this way means embedders typically
// start a long-lived span around the breaker's construction, or instead
// call Span to attach events to a specific span directly.
func New(ctx context.Context) *breaker.Hooks {
	return hooksForSpan(trace.SpanFromContext(ctx))
}

// Span builds a *breaker.Hooks that emits events onto the single span
// provided, regardless of ambient context. Useful when a breaker's entire
// lifetime should be attributed to one parent span (e.g. a long-running
// worker).
func Span(span trace.Span) *breaker.Hooks {
	return hooksForSpan(span)
}

func hooksForSpan(span trace.Span) *breaker.Hooks {
	event := func(name string, attrs ...attribute.KeyValue) func(string) {
		return func(breakerName string) {
			span.AddEvent(name, trace.WithAttributes(
				append([]attribute.KeyValue{attribute.String("breaker.name", breakerName)}, attrs...)...,
			))
		}
	}

	return &breaker.Hooks{
		OnOpen:     event("breaker.open"),
		OnClose:    event("breaker.close"),
		OnHalfOpen: event("breaker.half_open"),
		OnCallPermitted: func(name string, admission breaker.Admission) {
			span.AddEvent("breaker.call_permitted", trace.WithAttributes(
				attribute.String("breaker.name", name),
				attribute.String("breaker.admission", admission.String()),
			))
		},
		OnCallRejected: event("breaker.call_rejected"),
		OnSuccess:      event("breaker.success"),
		OnFailure:      event("breaker.failure"),
	}
}

// Tracer is a convenience wrapper returning the package's default tracer,
// named for the calling module, mirroring the otel instrumentation
// pattern used for HTTP/gRPC middleware elsewhere in the ecosystem.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
