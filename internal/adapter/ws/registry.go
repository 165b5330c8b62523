// Package ws implements the WebSocket transport for relay connections and the
// in-process registry that fans ingested events out to them.
package ws

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/hookrelay/internal/port/broadcast"
)

// Compile-time interface check.
var _ broadcast.Registry = (*Registry)(nil)

type shard struct {
	mu    sync.RWMutex
	conns map[string]map[string]broadcast.Conn // tenantID -> connID -> conn
}

// Registry tracks open relay connections per tenant. Tenants are spread over
// a fixed number of lock shards so unrelated tenants never contend.
type Registry struct {
	shards       []*shard
	fanoutLimit  int
	writeTimeout time.Duration
	onDrop       func(tenantID string, err error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDropHook is called for every connection removed because a send failed.
func WithDropHook(fn func(tenantID string, err error)) RegistryOption {
	return func(r *Registry) { r.onDrop = fn }
}

// NewRegistry creates a registry with the given shard count. fanoutLimit bounds
// concurrent sends per broadcast; writeTimeout bounds each send.
func NewRegistry(shards, fanoutLimit int, writeTimeout time.Duration, opts ...RegistryOption) *Registry {
	if shards < 1 {
		shards = 1
	}
	if fanoutLimit < 1 {
		fanoutLimit = 1
	}
	r := &Registry{
		shards:       make([]*shard, shards),
		fanoutLimit:  fanoutLimit,
		writeTimeout: writeTimeout,
	}
	for i := range r.shards {
		r.shards[i] = &shard{conns: make(map[string]map[string]broadcast.Conn)}
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) shardFor(tenantID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Register adds c to the tenant's set. Registering the same connection ID
// again is a no-op.
func (r *Registry) Register(tenantID string, c broadcast.Conn) {
	s := r.shardFor(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.conns[tenantID]
	if !ok {
		set = make(map[string]broadcast.Conn)
		s.conns[tenantID] = set
	}
	if _, dup := set[c.ID()]; dup {
		return
	}
	set[c.ID()] = c
}

// Unregister removes c from the tenant's set. Absent connections are ignored.
func (r *Registry) Unregister(tenantID string, c broadcast.Conn) {
	s := r.shardFor(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()
	r.removeLocked(s, tenantID, c)
}

// removeLocked only deletes the exact connection registered under c's ID.
func (r *Registry) removeLocked(s *shard, tenantID string, c broadcast.Conn) bool {
	set, ok := s.conns[tenantID]
	if !ok {
		return false
	}
	cur, ok := set[c.ID()]
	if !ok || cur != c {
		return false
	}
	delete(set, c.ID())
	if len(set) == 0 {
		delete(s.conns, tenantID)
	}
	return true
}

// Broadcast sends payload to a snapshot of the tenant's connections taken
// under the shard lock; the sends themselves happen after it is released.
// Sends run on a context detached from ctx's cancellation so that the webhook
// caller hanging up does not tear down relay connections.
func (r *Registry) Broadcast(ctx context.Context, tenantID string, payload []byte) int {
	targets := r.snapshot(tenantID)
	if len(targets) == 0 {
		return 0
	}

	sendCtx := context.WithoutCancel(ctx)
	var delivered atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.fanoutLimit)
	for _, c := range targets {
		g.Go(func() error {
			if err := r.send(sendCtx, c, payload); err != nil {
				r.drop(tenantID, c, err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load())
}

func (r *Registry) send(ctx context.Context, c broadcast.Conn, payload []byte) error {
	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()
	}
	return c.Send(ctx, payload)
}

func (r *Registry) drop(tenantID string, c broadcast.Conn, err error) {
	s := r.shardFor(tenantID)
	s.mu.Lock()
	removed := r.removeLocked(s, tenantID, c)
	s.mu.Unlock()

	_ = c.Close("send failed")
	if !removed {
		return
	}
	slog.Debug("relay connection dropped", "tenant_id", tenantID, "conn_id", c.ID(), "error", err)
	if r.onDrop != nil {
		r.onDrop(tenantID, err)
	}
}

func (r *Registry) snapshot(tenantID string) []broadcast.Conn {
	s := r.shardFor(tenantID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.conns[tenantID]
	if len(set) == 0 {
		return nil
	}
	out := make([]broadcast.Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Count returns the number of open connections for tenantID.
func (r *Registry) Count(tenantID string) int {
	s := r.shardFor(tenantID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[tenantID])
}

// Total returns the number of open connections across all tenants.
func (r *Registry) Total() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, set := range s.conns {
			n += len(set)
		}
		s.mu.RUnlock()
	}
	return n
}

// CloseAll closes and removes every registered connection.
func (r *Registry) CloseAll(reason string) int {
	var all []broadcast.Conn
	for _, s := range r.shards {
		s.mu.Lock()
		for _, set := range s.conns {
			for _, c := range set {
				all = append(all, c)
			}
		}
		s.conns = make(map[string]map[string]broadcast.Conn)
		s.mu.Unlock()
	}
	for _, c := range all {
		_ = c.Close(reason)
	}
	return len(all)
}
