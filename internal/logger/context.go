package logger

import (
	"context"
	"log/slog"
)

type requestIDKey struct{}
type tenantIDKey struct{}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithTenantID tags the context with the tenant a request was resolved to.
func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, id)
}

// TenantID extracts the tenant ID from the context, or "".
func TenantID(ctx context.Context) string {
	id, _ := ctx.Value(tenantIDKey{}).(string)
	return id
}

// Attrs returns the request-scoped attributes present in ctx, ready to be
// passed to slog as args.
func Attrs(ctx context.Context) []any {
	var attrs []any
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id := TenantID(ctx); id != "" {
		attrs = append(attrs, slog.String("tenant_id", id))
	}
	return attrs
}
