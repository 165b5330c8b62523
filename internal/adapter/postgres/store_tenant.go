package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/hookrelay/internal/domain/tenant"
)

const tenantColumns = `id, subdomain, name, created_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Subdomain, &t.Name, &t.CreatedAt)
	return t, err
}

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`INSERT INTO tenants (subdomain, name) VALUES ($1, $2)
		 RETURNING `+tenantColumns,
		tenant.NormalizeSubdomain(req.Subdomain), req.Name,
	))
	if err != nil {
		return nil, conflictWrap(err, "create tenant %q", req.Subdomain)
	}
	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id::text = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return &t, nil
}

// GetTenantBySubdomain matches case-insensitively; labels are stored lower-case.
func (s *Store) GetTenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`,
		tenant.NormalizeSubdomain(subdomain)))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant by subdomain %q", subdomain)
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY subdomain ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return orEmpty(tenants), rows.Err()
}
