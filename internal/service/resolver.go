package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/port/cache"
	"github.com/Strob0t/hookrelay/internal/port/tenantdir"
)

const tenantCachePrefix = "tenant.sub."

// ResolverService maps an inbound request host to the tenant that owns its
// leftmost label.
type ResolverService struct {
	dir   tenantdir.Directory
	cache cache.Cache // optional
	ttl   time.Duration
}

// NewResolverService creates a resolver. c may be nil to disable caching.
func NewResolverService(dir tenantdir.Directory, c cache.Cache, ttl time.Duration) *ResolverService {
	return &ResolverService{dir: dir, cache: c, ttl: ttl}
}

// SubdomainLabel extracts the lower-cased leftmost label of host. Hosts with
// fewer than two labels, or an empty leftmost label, have no subdomain.
func SubdomainLabel(host string) (string, error) {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	label, rest, ok := strings.Cut(host, ".")
	if !ok || rest == "" {
		return "", domain.ErrMissingSubdomain
	}
	label = tenant.NormalizeSubdomain(label)
	if label == "" {
		return "", domain.ErrMissingSubdomain
	}
	return label, nil
}

// Resolve returns the tenant addressed by host. It fails with
// ErrMissingSubdomain or ErrUnknownSubdomain; directory outages are returned
// wrapped as-is.
func (s *ResolverService) Resolve(ctx context.Context, host string) (*tenant.Tenant, error) {
	label, err := SubdomainLabel(host)
	if err != nil {
		return nil, err
	}

	if t := s.cached(ctx, label); t != nil {
		return t, nil
	}

	t, err := s.dir.GetTenantBySubdomain(ctx, label)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubdomain, label)
		}
		return nil, fmt.Errorf("resolve subdomain %q: %w", label, err)
	}

	s.store(ctx, label, t)
	return t, nil
}

func (s *ResolverService) cached(ctx context.Context, label string) *tenant.Tenant {
	if s.cache == nil {
		return nil
	}
	data, ok, err := s.cache.Get(ctx, tenantCachePrefix+label)
	if err != nil {
		slog.Debug("tenant cache get failed", "subdomain", label, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var t tenant.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		_ = s.cache.Delete(ctx, tenantCachePrefix+label)
		return nil
	}
	return &t
}

// Only hits are cached; a label provisioned after a miss resolves immediately.
func (s *ResolverService) store(ctx context.Context, label string, t *tenant.Tenant) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, tenantCachePrefix+label, data, s.ttl); err != nil {
		slog.Debug("tenant cache set failed", "subdomain", label, "error", err)
	}
}

// Forget drops a cached label, e.g. after the tenant was changed by the admin CLI.
func (s *ResolverService) Forget(ctx context.Context, label string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, tenantCachePrefix+tenant.NormalizeSubdomain(label))
}
