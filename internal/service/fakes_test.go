package service

import (
	"context"
	"errors"
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

// memStore is an in-memory tenant directory, account store and event store.
type memStore struct {
	mu        sync.Mutex
	tenants   map[string]*tenant.Tenant
	operators map[string]*operator.Operator
	events    []webhook.Event

	lookups   int   // GetTenantBySubdomain calls
	lookupErr error // returned by GetTenantBySubdomain when set
	createErr error // returned by Create when set

	createGate chan struct{} // Create blocks until closed
}

func newMemStore() *memStore {
	return &memStore{
		tenants:   make(map[string]*tenant.Tenant),
		operators: make(map[string]*operator.Operator),
	}
}

func (m *memStore) addTenant(sub, name string) *tenant.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &tenant.Tenant{ID: uuid.NewString(), Subdomain: sub, Name: name, CreatedAt: time.Now().UTC()}
	m.tenants[t.ID] = t
	return t
}

func (m *memStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Subdomain == req.Subdomain {
			return nil, fmt.Errorf("subdomain %q: %w", req.Subdomain, domain.ErrConflict)
		}
	}
	t := &tenant.Tenant{ID: uuid.NewString(), Subdomain: req.Subdomain, Name: req.Name, CreatedAt: time.Now().UTC()}
	m.tenants[t.ID] = t
	return t, nil
}

func (m *memStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) GetTenantBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, t := range m.tenants {
		if t.Subdomain == sub {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("subdomain %s: %w", sub, domain.ErrNotFound)
}

func (m *memStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subdomain < out[j].Subdomain })
	return out, nil
}

func (m *memStore) CreateOperator(_ context.Context, op *operator.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.operators {
		if o.Email == op.Email {
			return domain.ErrConflict
		}
	}
	cp := *op
	m.operators[op.ID] = &cp
	return nil
}

func (m *memStore) GetOperator(_ context.Context, id string) (*operator.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.operators[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetOperatorByEmail(_ context.Context, email string) (*operator.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.operators {
		if o.Email == email {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) Create(ctx context.Context, ev *webhook.Event) error {
	if m.createGate != nil {
		select {
		case <-m.createGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.events = append(m.events, *ev)
	return nil
}

func (m *memStore) ListByTenant(_ context.Context, tenantID string, f webhook.ListFilter) ([]webhook.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []webhook.Event
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if ev.TenantID != tenantID {
			continue
		}
		if f.Before != "" && ev.ID >= f.Before {
			continue
		}
		out = append(out, ev)
		if len(out) == f.Limit {
			break
		}
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

// fakeConn records every payload it is sent.
type fakeConn struct {
	id      string
	sendErr error

	mu     sync.Mutex
	sent   [][]byte
	closed int
	reason string
}

func newFakeConn() *fakeConn { return &fakeConn{id: uuid.NewString()} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(_ context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	if c.closed == 1 {
		c.reason = reason
	}
	return nil
}

func (c *fakeConn) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeAuth accepts tokens of the form listed in ids.
type fakeAuth struct {
	ids map[string]operator.Identity
	err error
}

func (a *fakeAuth) Authenticate(_ context.Context, token string) (*operator.Identity, error) {
	if a.err != nil {
		return nil, a.err
	}
	id, ok := a.ids[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", domain.ErrUnauthorized)
	}
	return &id, nil
}

func (a *fakeAuth) Issue(id operator.Identity) (string, time.Time, error) {
	if a.ids == nil {
		a.ids = make(map[string]operator.Identity)
	}
	tok := "tok-" + id.OperatorID
	a.ids[tok] = id
	return tok, time.Now().Add(time.Hour), nil
}

// memCache is a map-backed cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// fakePublisher records tapped subjects.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) IsConnected() bool { return true }

var errStoreDown = errors.New("store down")
