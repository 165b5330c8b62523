// Package operator defines the accounts allowed to open relay connections and
// the verified identity the auth provider hands back.
package operator

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Strob0t/hookrelay/internal/domain"
)

// Operator is a person who watches one tenant's webhooks live.
type Operator struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is a verified caller. It always names exactly one tenant.
type Identity struct {
	OperatorID string    `json:"operator_id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

// CreateRequest is the input for creating an operator.
type CreateRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// MinPasswordLength is enforced on create.
const MinPasswordLength = 10

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.TenantID == "" {
		return fmt.Errorf("%w: tenant is required", domain.ErrValidation)
	}
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if len(r.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	return nil
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that both credentials are present.
func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	return nil
}
