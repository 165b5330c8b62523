package http_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
)

// memStore backs the directory, account and event ports in memory.
type memStore struct {
	mu        sync.Mutex
	tenants   map[string]tenant.Tenant
	operators map[string]operator.Operator
	events    []webhook.Event
	failWrite bool
}

func newMemStore() *memStore {
	return &memStore{
		tenants:   make(map[string]tenant.Tenant),
		operators: make(map[string]operator.Operator),
	}
}

func (m *memStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Subdomain == req.Subdomain {
			return nil, fmt.Errorf("subdomain %q: %w", req.Subdomain, domain.ErrConflict)
		}
	}
	t := tenant.Tenant{ID: uuid.NewString(), Subdomain: req.Subdomain, Name: req.Name, CreatedAt: time.Now().UTC()}
	m.tenants[t.ID] = t
	return &t, nil
}

func (m *memStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (m *memStore) GetTenantBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Subdomain == sub {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("subdomain %s: %w", sub, domain.ErrNotFound)
}

func (m *memStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) CreateOperator(_ context.Context, op *operator.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operators[op.ID] = *op
	return nil
}

func (m *memStore) GetOperator(_ context.Context, id string) (*operator.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.operators[id]
	if !ok {
		return nil, fmt.Errorf("operator %s: %w", id, domain.ErrNotFound)
	}
	return &op, nil
}

func (m *memStore) GetOperatorByEmail(_ context.Context, email string) (*operator.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.operators {
		if op.Email == email {
			return &op, nil
		}
	}
	return nil, fmt.Errorf("operator %s: %w", email, domain.ErrNotFound)
}

func (m *memStore) Create(_ context.Context, ev *webhook.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return fmt.Errorf("insert event: connection refused")
	}
	m.events = append(m.events, *ev)
	return nil
}

func (m *memStore) ListByTenant(_ context.Context, tenantID string, f webhook.ListFilter) ([]webhook.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []webhook.Event
	for _, ev := range m.events {
		if ev.TenantID == tenantID && (f.Before == "" || ev.ID < f.Before) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) DeleteByTenant(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, ev := range m.events {
		if ev.TenantID == tenantID {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return n, nil
}

func (m *memStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
