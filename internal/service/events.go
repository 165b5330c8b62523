package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/port/eventstore"
)

// EventService exposes a tenant's stored events to its operators.
type EventService struct {
	store eventstore.Store
}

// NewEventService creates an EventService.
func NewEventService(store eventstore.Store) *EventService {
	return &EventService{store: store}
}

// List returns one page of the tenant's events, newest first.
func (s *EventService) List(ctx context.Context, tenantID string, f webhook.ListFilter) ([]webhook.Event, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = eventstore.DefaultListLimit
	case f.Limit > eventstore.MaxListLimit:
		f.Limit = eventstore.MaxListLimit
	}
	if f.Before != "" {
		if _, err := uuid.Parse(f.Before); err != nil {
			return nil, fmt.Errorf("%w: before must be an event id", domain.ErrValidation)
		}
	}
	events, err := s.store.ListByTenant(ctx, tenantID, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Clear deletes all of the tenant's stored events.
func (s *EventService) Clear(ctx context.Context, tenantID string) (int64, error) {
	n, err := s.store.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	slog.Info("events cleared", "tenant_id", tenantID, "deleted", n)
	return n, nil
}
