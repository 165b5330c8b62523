package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/port/authprovider"
	"github.com/Strob0t/hookrelay/internal/port/database"
)

// errInvalidCredentials is deliberately vague so login does not reveal which
// emails exist.
var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)

// LoginResult is a freshly issued operator session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Operator  operator.Operator
	Tenant    tenant.Tenant
}

// AuthService handles operator accounts and session issuance.
type AuthService struct {
	store  database.Store
	issuer authprovider.Issuer
	cfg    *config.Auth
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, issuer authprovider.Issuer, cfg *config.Auth) *AuthService {
	return &AuthService{store: store, issuer: issuer, cfg: cfg}
}

// CreateOperator creates an operator with a bcrypt-hashed password for an
// existing tenant.
func (s *AuthService) CreateOperator(ctx context.Context, req *operator.CreateRequest) (*operator.Operator, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if _, err := s.store.GetTenant(ctx, req.TenantID); err != nil {
		return nil, fmt.Errorf("tenant %s: %w", req.TenantID, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	op := &operator.Operator{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateOperator(ctx, op); err != nil {
		return nil, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

// Login checks an operator's password and issues a session token.
func (s *AuthService) Login(ctx context.Context, req operator.LoginRequest) (*LoginResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	op, err := s.store.GetOperatorByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	res, err := s.issue(ctx, op)
	if err != nil {
		return nil, err
	}
	slog.Info("operator logged in", "operator_id", op.ID, "tenant_id", op.TenantID)
	return res, nil
}

// IssueToken mints a session for the operator with email without checking a
// password. Only the admin CLI calls it.
func (s *AuthService) IssueToken(ctx context.Context, email string) (*LoginResult, error) {
	op, err := s.store.GetOperatorByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return s.issue(ctx, op)
}

func (s *AuthService) issue(ctx context.Context, op *operator.Operator) (*LoginResult, error) {
	t, err := s.store.GetTenant(ctx, op.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	token, exp, err := s.issuer.Issue(operator.Identity{
		OperatorID: op.ID,
		TenantID:   op.TenantID,
		Name:       op.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Operator: *op, Tenant: *t}, nil
}
