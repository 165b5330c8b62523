// Package tenant defines the tenant domain model.
package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Strob0t/hookrelay/internal/domain"
)

// Tenant is an account addressed by its subdomain label.
type Tenant struct {
	ID        string    `json:"id"`
	Subdomain string    `json:"subdomain"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	Subdomain string `json:"subdomain"`
	Name      string `json:"name"`
}

var subdomainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeSubdomain lower-cases and trims a label. Matching is case-insensitive
// so every lookup and every stored label goes through here.
func NormalizeSubdomain(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Validate normalizes the request in place and checks it.
func (r *CreateRequest) Validate() error {
	r.Subdomain = NormalizeSubdomain(r.Subdomain)
	r.Name = strings.TrimSpace(r.Name)
	if r.Subdomain == "" {
		return fmt.Errorf("%w: subdomain is required", domain.ErrValidation)
	}
	if !subdomainRegex.MatchString(r.Subdomain) {
		return fmt.Errorf("%w: invalid subdomain %q: must be 1-63 lowercase alphanumeric characters or inner hyphens", domain.ErrValidation, r.Subdomain)
	}
	if r.Name == "" {
		r.Name = r.Subdomain
	}
	return nil
}
