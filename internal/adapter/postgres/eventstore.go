package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/port/eventstore"
)

var _ eventstore.Store = (*EventStore)(nil)

// EventStore implements eventstore.Store using PostgreSQL (append-only).
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Create inserts a new event into the webhook_events table. Headers are
// stored as an ordered JSON array of name/value pairs.
func (s *EventStore) Create(ctx context.Context, ev *webhook.Event) error {
	headers, err := json.Marshal(orEmpty(ev.Headers))
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO webhook_events (id, tenant_id, method, path, query, headers, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.TenantID, ev.Method, ev.Path, ev.Query, headers, ev.Body, ev.ReceivedAt)
	if err != nil {
		return fmt.Errorf("create event %s: %w", ev.ID, err)
	}
	return nil
}

// eventColumns is the SELECT column list for webhook_events queries.
const eventColumns = `id, tenant_id, method, path, query, headers, body, created_at`

func scanEvent(row scannable, ev *webhook.Event) error {
	var headers []byte
	if err := row.Scan(&ev.ID, &ev.TenantID, &ev.Method, &ev.Path, &ev.Query, &headers, &ev.Body, &ev.ReceivedAt); err != nil {
		return err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &ev.Headers); err != nil {
			return fmt.Errorf("decode headers: %w", err)
		}
	}
	return nil
}

// ListByTenant returns up to f.Limit events older than f.Before, newest first.
func (s *EventStore) ListByTenant(ctx context.Context, tenantID string, f webhook.ListFilter) ([]webhook.Event, error) {
	var (
		where strings.Builder
		args  = []any{tenantID}
	)
	where.WriteString("tenant_id = $1")
	if f.Before != "" {
		args = append(args, f.Before)
		fmt.Fprintf(&where, " AND id < $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = eventstore.DefaultListLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM webhook_events WHERE %s ORDER BY id DESC LIMIT $%d`,
		eventColumns, where.String(), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var events []webhook.Event
	for rows.Next() {
		var ev webhook.Event
		if err := scanEvent(rows, &ev); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return orEmpty(events), rows.Err()
}

// DeleteByTenant removes every event of the tenant.
func (s *EventStore) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM webhook_events WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("delete events for tenant %s: %w", tenantID, err)
	}
	return tag.RowsAffected(), nil
}
