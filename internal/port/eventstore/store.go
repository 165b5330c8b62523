// Package eventstore defines the port interface for durable webhook events.
package eventstore

import (
	"context"

	"github.com/Strob0t/hookrelay/internal/domain/webhook"
)

// DefaultListLimit applies when a ListFilter carries no limit.
const DefaultListLimit = 50

// MaxListLimit caps a single page.
const MaxListLimit = 500

// Store persists webhook events. Events are written once and never updated.
type Store interface {
	// Create persists a new event.
	Create(ctx context.Context, ev *webhook.Event) error

	// ListByTenant returns the tenant's events, newest first.
	ListByTenant(ctx context.Context, tenantID string, filter webhook.ListFilter) ([]webhook.Event, error)

	// DeleteByTenant removes all of the tenant's events and returns how many were deleted.
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)
}
