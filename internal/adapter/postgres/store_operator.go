package postgres

import (
	"context"
	"strings"

	"github.com/Strob0t/hookrelay/internal/domain/operator"
)

const operatorColumns = `id, tenant_id, email, name, password_hash, created_at`

func scanOperator(row scannable) (operator.Operator, error) {
	var o operator.Operator
	err := row.Scan(&o.ID, &o.TenantID, &o.Email, &o.Name, &o.PasswordHash, &o.CreatedAt)
	return o, err
}

func (s *Store) CreateOperator(ctx context.Context, o *operator.Operator) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO operators (id, tenant_id, email, name, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		o.ID, o.TenantID, o.Email, o.Name, o.PasswordHash,
	).Scan(&o.CreatedAt)
	if err != nil {
		return conflictWrap(err, "create operator %s", o.Email)
	}
	return nil
}

func (s *Store) GetOperator(ctx context.Context, id string) (*operator.Operator, error) {
	o, err := scanOperator(s.pool.QueryRow(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE id::text = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get operator %s", id)
	}
	return &o, nil
}

func (s *Store) GetOperatorByEmail(ctx context.Context, email string) (*operator.Operator, error) {
	o, err := scanOperator(s.pool.QueryRow(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE lower(email) = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFoundWrap(err, "get operator by email %s", email)
	}
	return &o, nil
}
