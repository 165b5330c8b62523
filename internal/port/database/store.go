// Package database defines the store port for tenant and operator accounts.
package database

import (
	"context"

	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
)

// Store is the port interface for account provisioning.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)

	// Operators
	CreateOperator(ctx context.Context, op *operator.Operator) error
	GetOperator(ctx context.Context, id string) (*operator.Operator, error)
	GetOperatorByEmail(ctx context.Context, email string) (*operator.Operator, error)
}
