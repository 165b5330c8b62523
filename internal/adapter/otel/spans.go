package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hookrelay"

// StartIngestSpan starts a span for one inbound webhook.
func StartIngestSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ingest",
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

// StartPersistSpan starts a span for the event store write.
func StartPersistSpan(ctx context.Context, tenantID, eventID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "persist",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("event.id", eventID),
		),
	)
}

// StartBroadcastSpan starts a span for a registry fan-out.
func StartBroadcastSpan(ctx context.Context, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "broadcast",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
}
