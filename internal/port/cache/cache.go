// Package cache defines the port interface for byte-valued caches. The tenant
// resolver keeps resolved subdomains here.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
