// Package authprovider defines the port that turns a presented credential into
// a verified identity.
package authprovider

import (
	"context"
	"time"

	"github.com/Strob0t/hookrelay/internal/domain/operator"
)

// Provider verifies credentials. Any failure is reported as an error wrapping
// domain.ErrUnauthorized.
type Provider interface {
	Authenticate(ctx context.Context, token string) (*operator.Identity, error)
}

// Issuer mints credentials that a Provider accepts.
type Issuer interface {
	Issue(id operator.Identity) (token string, expiresAt time.Time, err error)
}
