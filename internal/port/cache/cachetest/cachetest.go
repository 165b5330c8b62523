// Package cachetest holds the behaviour every cache.Cache implementation
// must show.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/hookrelay/internal/port/cache"
)

// Run runs the compliance suite against c.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "tenant.sub.compliance", []byte(`{"id":"1"}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "tenant.sub.compliance")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"id":"1"}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "tenant.sub.nonexistent")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "tenant.sub.deleted", []byte("v"), time.Minute)
		if err := c.Delete(ctx, "tenant.sub.deleted"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "tenant.sub.deleted")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "tenant.sub.never"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "tenant.sub.ow", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "tenant.sub.ow", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "tenant.sub.ow")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
		}
	})
}
