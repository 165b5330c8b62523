package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/hookrelay/internal/port/database"
	"github.com/Strob0t/hookrelay/internal/port/tenantdir"
)

var (
	_ database.Store      = (*Store)(nil)
	_ tenantdir.Directory = (*Store)(nil)
)

// Store implements database.Store and tenantdir.Directory using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
