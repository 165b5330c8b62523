package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubConn struct {
	id      string
	sendErr error
	delay   time.Duration

	mu     sync.Mutex
	got    int
	closes int
}

func newStub(id string) *stubConn { return &stubConn{id: id} }

func (c *stubConn) ID() string { return c.id }

func (c *stubConn) Send(ctx context.Context, _ []byte) error {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	c.got++
	c.mu.Unlock()
	return nil
}

func (c *stubConn) Close(string) error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return nil
}

func (c *stubConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.got
}

func (c *stubConn) closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func TestRegistryBroadcastDeliversToAll(t *testing.T) {
	r := NewRegistry(8, 4, time.Second)
	conns := []*stubConn{newStub("a"), newStub("b"), newStub("c")}
	for _, c := range conns {
		r.Register("t1", c)
	}
	r.Register("t2", newStub("other"))

	if n := r.Broadcast(context.Background(), "t1", []byte("x")); n != 3 {
		t.Fatalf("delivered %d, want 3", n)
	}
	for _, c := range conns {
		if c.received() != 1 {
			t.Fatalf("conn %s received %d", c.id, c.received())
		}
	}
}

func TestRegistryUnknownTenant(t *testing.T) {
	r := NewRegistry(8, 4, time.Second)
	if n := r.Broadcast(context.Background(), "nobody", []byte("x")); n != 0 {
		t.Fatalf("delivered %d to unknown tenant", n)
	}
}

func TestRegistryRegisterTwiceDeliversOnce(t *testing.T) {
	r := NewRegistry(8, 4, time.Second)
	c := newStub("a")
	r.Register("t1", c)
	r.Register("t1", c)

	if r.Count("t1") != 1 {
		t.Fatalf("count = %d, want 1", r.Count("t1"))
	}
	if n := r.Broadcast(context.Background(), "t1", []byte("x")); n != 1 {
		t.Fatalf("delivered %d, want 1", n)
	}
	if c.received() != 1 {
		t.Fatalf("conn received %d copies", c.received())
	}
}

func TestRegistryUnregisterIsTolerant(t *testing.T) {
	r := NewRegistry(8, 4, time.Second)
	c := newStub("a")
	r.Unregister("t1", c) // never registered

	r.Register("t1", c)
	r.Unregister("t1", c)
	r.Unregister("t1", c)
	if r.Count("t1") != 0 || r.Total() != 0 {
		t.Fatal("expected empty registry")
	}
}

func TestRegistryUnregisterIgnoresStaleHandle(t *testing.T) {
	r := NewRegistry(1, 1, time.Second)
	first := newStub("same")
	second := newStub("same")
	r.Register("t1", first)
	r.Unregister("t1", second)
	if r.Count("t1") != 1 {
		t.Fatal("a different connection with the same ID must not evict the registered one")
	}
}

func TestRegistryFailedSendIsPruned(t *testing.T) {
	var dropped atomic.Int32
	r := NewRegistry(8, 4, time.Second, WithDropHook(func(string, error) { dropped.Add(1) }))
	good, bad := newStub("good"), newStub("bad")
	bad.sendErr = errors.New("broken pipe")
	r.Register("t1", good)
	r.Register("t1", bad)

	if n := r.Broadcast(context.Background(), "t1", []byte("x")); n != 1 {
		t.Fatalf("delivered %d, want 1", n)
	}
	if r.Count("t1") != 1 {
		t.Fatalf("failed connection still registered, count=%d", r.Count("t1"))
	}
	if bad.closed() != 1 {
		t.Fatalf("failed connection closed %d times", bad.closed())
	}
	if dropped.Load() != 1 {
		t.Fatalf("drop hook called %d times", dropped.Load())
	}

	if n := r.Broadcast(context.Background(), "t1", []byte("y")); n != 1 {
		t.Fatalf("second broadcast delivered %d, want 1", n)
	}
	if good.received() != 2 {
		t.Fatalf("good conn received %d", good.received())
	}
}

func TestRegistrySlowConnectionDoesNotStallSiblings(t *testing.T) {
	r := NewRegistry(8, 4, 50*time.Millisecond)
	slow := newStub("slow")
	slow.delay = time.Hour
	fast := newStub("fast")
	r.Register("t1", slow)
	r.Register("t1", fast)

	start := time.Now()
	n := r.Broadcast(context.Background(), "t1", []byte("x"))
	if n != 1 {
		t.Fatalf("delivered %d, want 1", n)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("write timeout not applied to slow connection")
	}
	if r.Count("t1") != 1 {
		t.Fatal("timed-out connection should be pruned")
	}
}

func TestRegistryBroadcastSurvivesCallerCancel(t *testing.T) {
	r := NewRegistry(8, 4, time.Second)
	c := newStub("a")
	c.delay = 10 * time.Millisecond
	r.Register("t1", c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := r.Broadcast(ctx, "t1", []byte("x")); n != 1 {
		t.Fatalf("delivered %d after caller cancel, want 1", n)
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry(4, 8, time.Second)
	const tenants = 8
	const perTenant = 25

	var wg sync.WaitGroup
	for ti := range tenants {
		tenantID := fmt.Sprintf("t%d", ti)
		for ci := range perTenant {
			c := newStub(fmt.Sprintf("%s-c%d", tenantID, ci))
			wg.Add(3)
			go func() {
				defer wg.Done()
				r.Register(tenantID, c)
			}()
			go func() {
				defer wg.Done()
				_ = r.Broadcast(context.Background(), tenantID, []byte("x"))
			}()
			go func() {
				defer wg.Done()
				if ci%2 == 0 {
					r.Unregister(tenantID, c)
				}
			}()
		}
	}
	wg.Wait()

	for ti := range tenants {
		tenantID := fmt.Sprintf("t%d", ti)
		n := r.Count(tenantID)
		if got := r.Broadcast(context.Background(), tenantID, []byte("final")); got != n {
			t.Fatalf("%s: delivered %d but %d registered", tenantID, got, n)
		}
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry(8, 4, time.Second)
	conns := []*stubConn{newStub("a"), newStub("b"), newStub("c")}
	r.Register("t1", conns[0])
	r.Register("t1", conns[1])
	r.Register("t2", conns[2])

	if r.Total() != 3 {
		t.Fatalf("total = %d, want 3", r.Total())
	}
	if n := r.CloseAll("bye"); n != 3 {
		t.Fatalf("closed %d, want 3", n)
	}
	for _, c := range conns {
		if c.closed() != 1 {
			t.Fatalf("conn %s closed %d times", c.id, c.closed())
		}
	}
	if r.Total() != 0 {
		t.Fatal("registry not empty after CloseAll")
	}
}
