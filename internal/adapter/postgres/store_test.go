package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/hookrelay/internal/adapter/postgres"
	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
)

// setupPool connects to DATABASE_URL, runs all migrations, and returns the
// pool. The pool is closed via t.Cleanup.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if _, err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// createTestTenant creates a tenant with a random subdomain.
func createTestTenant(t *testing.T, store *postgres.Store) *tenant.Tenant {
	t.Helper()
	sub := "test-" + uuid.New().String()[:8]
	tn, err := store.CreateTenant(context.Background(), tenant.CreateRequest{Subdomain: sub, Name: "Test " + sub})
	if err != nil {
		t.Fatalf("create test tenant: %v", err)
	}
	return tn
}

func TestTenantCRUD(t *testing.T) {
	store := postgres.NewStore(setupPool(t))
	ctx := context.Background()

	tn := createTestTenant(t, store)

	got, err := store.GetTenant(ctx, tn.ID)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if got.Subdomain != tn.Subdomain {
		t.Errorf("subdomain = %q, want %q", got.Subdomain, tn.Subdomain)
	}

	bySub, err := store.GetTenantBySubdomain(ctx, "  "+tn.Subdomain)
	if err != nil {
		t.Fatalf("GetTenantBySubdomain: %v", err)
	}
	if bySub.ID != tn.ID {
		t.Errorf("id = %s, want %s", bySub.ID, tn.ID)
	}

	_, err = store.CreateTenant(ctx, tenant.CreateRequest{Subdomain: tn.Subdomain, Name: "dup"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate subdomain: expected ErrConflict, got %v", err)
	}

	if _, err := store.GetTenant(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetTenant(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("malformed id: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetTenantBySubdomain(ctx, "ghost-"+uuid.NewString()[:8]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := store.ListTenants(ctx)
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	found := false
	for _, x := range list {
		if x.ID == tn.ID {
			found = true
		}
	}
	if !found {
		t.Error("created tenant missing from list")
	}
}

func TestOperatorCRUD(t *testing.T) {
	store := postgres.NewStore(setupPool(t))
	ctx := context.Background()
	tn := createTestTenant(t, store)

	email := "op-" + uuid.NewString()[:8] + "@example.com"
	op := &operator.Operator{
		ID:           uuid.NewString(),
		TenantID:     tn.ID,
		Email:        email,
		Name:         "Op",
		PasswordHash: "$2a$04$placeholder",
	}
	if err := store.CreateOperator(ctx, op); err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if op.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}

	got, err := store.GetOperatorByEmail(ctx, " "+email)
	if err != nil {
		t.Fatalf("GetOperatorByEmail: %v", err)
	}
	if got.ID != op.ID || got.TenantID != tn.ID || got.PasswordHash != op.PasswordHash {
		t.Errorf("unexpected operator %+v", got)
	}

	byID, err := store.GetOperator(ctx, op.ID)
	if err != nil || byID.Email != email {
		t.Fatalf("GetOperator: %v %v", byID, err)
	}

	dup := *op
	dup.ID = uuid.NewString()
	if err := store.CreateOperator(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate email: expected ErrConflict, got %v", err)
	}
}

func TestEventStoreRoundTrip(t *testing.T) {
	pool := setupPool(t)
	store := postgres.NewStore(pool)
	events := postgres.NewEventStore(pool)
	ctx := context.Background()
	tn := createTestTenant(t, store)

	var ids []string
	for i := range 3 {
		id, _ := uuid.NewV7()
		ev := &webhook.Event{
			ID:       id.String(),
			TenantID: tn.ID,
			Method:   "POST",
			Path:     "/hook",
			Query:    "?n=1",
			Headers: []webhook.Header{
				{Name: "X-Dup", Value: "a"},
				{Name: "X-Dup", Value: "b"},
			},
			ReceivedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		if i > 0 {
			ev.Body = []byte(`{"x":1}`)
		}
		if err := events.Create(ctx, ev); err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, ev.ID)
	}

	got, err := events.ListByTenant(ctx, tn.ID, webhook.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(got) != 3 || got[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %d events", len(got))
	}
	if len(got[0].Headers) != 2 || got[0].Headers[1].Value != "b" {
		t.Errorf("headers not preserved: %+v", got[0].Headers)
	}
	if got[2].Body != nil {
		t.Errorf("absent body stored as %q", got[2].Body)
	}
	if string(got[0].Body) != `{"x":1}` {
		t.Errorf("body = %q", got[0].Body)
	}

	older, err := events.ListByTenant(ctx, tn.ID, webhook.ListFilter{Limit: 10, Before: ids[1]})
	if err != nil {
		t.Fatalf("ListByTenant before: %v", err)
	}
	if len(older) != 1 || older[0].ID != ids[0] {
		t.Fatalf("cursor page wrong: %+v", older)
	}

	n, err := events.DeleteByTenant(ctx, tn.ID)
	if err != nil {
		t.Fatalf("DeleteByTenant: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}
	left, _ := events.ListByTenant(ctx, tn.ID, webhook.ListFilter{})
	if len(left) != 0 {
		t.Errorf("%d events left after delete", len(left))
	}
}

func TestMigrationsStatus(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}
	setupPool(t)

	statuses, err := postgres.Migrations(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(statuses) < 3 {
		t.Fatalf("expected at least 3 migrations, got %d", len(statuses))
	}
	for _, st := range statuses {
		if !st.Applied {
			t.Errorf("migration %d not applied", st.Version)
		}
	}

	v, err := postgres.MigrationVersion(context.Background(), dsn)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != statuses[len(statuses)-1].Version {
		t.Errorf("version = %d, want %d", v, statuses[len(statuses)-1].Version)
	}
}
