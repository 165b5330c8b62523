// Package tenantdir defines the port for looking tenants up.
package tenantdir

import (
	"context"

	"github.com/Strob0t/hookrelay/internal/domain/tenant"
)

// Directory resolves tenants. Lookups that find nothing return an error
// wrapping domain.ErrNotFound.
type Directory interface {
	// GetTenantBySubdomain looks a tenant up by its lower-cased label.
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error)

	// GetTenant looks a tenant up by ID.
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
}
