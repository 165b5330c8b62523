// Package jwtauth implements the auth provider port with HS256-signed JWTs.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/port/authprovider"
)

var (
	_ authprovider.Provider = (*Provider)(nil)
	_ authprovider.Issuer   = (*Provider)(nil)
)

// Claims are the session token claims. Subject carries the operator ID.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Provider issues and verifies operator session tokens.
type Provider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a token provider. secret must be at least 32 bytes; config
// validation enforces that.
func New(secret, issuer string, ttl time.Duration) *Provider {
	return &Provider{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for id that expires after the configured TTL.
func (p *Provider) Issue(id operator.Identity) (string, time.Time, error) {
	if id.OperatorID == "" || id.TenantID == "" {
		return "", time.Time{}, fmt.Errorf("%w: identity needs operator and tenant", domain.ErrValidation)
	}
	now := p.now()
	exp := now.Add(p.ttl).Truncate(time.Second)
	claims := Claims{
		TenantID: id.TenantID,
		Name:     id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.OperatorID,
			Issuer:    p.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Authenticate verifies token and returns the identity it carries.
func (p *Provider) Authenticate(_ context.Context, token string) (*operator.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.TenantID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}

	id := &operator.Identity{
		OperatorID: claims.Subject,
		TenantID:   claims.TenantID,
		Name:       claims.Name,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
