package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/port/database"
)

// TenantService manages tenant provisioning.
type TenantService struct {
	store database.Store
}

// NewTenantService creates a new TenantService.
func NewTenantService(store database.Store) *TenantService {
	return &TenantService{store: store}
}

// Create validates and creates a new tenant. A taken subdomain yields an
// error wrapping domain.ErrConflict.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create tenant %q: %w", req.Subdomain, err)
	}
	return t, nil
}

// Get returns a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// Lookup accepts either a tenant ID or a subdomain label.
func (s *TenantService) Lookup(ctx context.Context, ref string) (*tenant.Tenant, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return s.store.GetTenant(ctx, ref)
	}
	return s.store.GetTenantBySubdomain(ctx, tenant.NormalizeSubdomain(ref))
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}
