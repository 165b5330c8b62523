package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/hookrelay/internal/adapter/jwtauth"
	cfnats "github.com/Strob0t/hookrelay/internal/adapter/nats"
	"github.com/Strob0t/hookrelay/internal/adapter/postgres"
	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/port/messagequeue"
	"github.com/Strob0t/hookrelay/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "create-operator":
		return runAdminCreateOperator(args[1:])
	case "issue-token":
		return runAdminIssueToken(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "tail":
		return runAdminTail(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: hookrelay admin <command> [options]

Commands:
  create-tenant     Create a tenant with a subdomain label
  list-tenants      List all tenants
  create-operator   Create an operator account for a tenant
  issue-token       Print a session token for an operator
  migrate-status    Show which migrations are applied
  rollback          Roll back the most recent migrations
  tail              Print tapped webhooks as they arrive (requires NATS)
  help              Show this help message

Examples:
  hookrelay admin create-tenant --subdomain acme --name "Acme Inc"
  hookrelay admin create-operator --tenant acme --email ada@acme.test --name Ada
  hookrelay admin issue-token --email ada@acme.test
  hookrelay admin rollback --steps 1
  hookrelay admin tail --tenant acme
`)
}

// adminDeps are the services the admin commands work through.
type adminDeps struct {
	cfg     *config.Config
	tenants *service.TenantService
	auth    *service.AuthService
}

func loadAdminDeps(ctx context.Context) (*adminDeps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	tokens := jwtauth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenExpiry)
	deps := &adminDeps{
		cfg:     cfg,
		tenants: service.NewTenantService(store),
		auth:    service.NewAuthService(store, tokens, &cfg.Auth),
	}
	return deps, pool.Close, nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	subdomain := fs.String("subdomain", "", "subdomain label (required)")
	name := fs.String("name", "", "display name (defaults to the subdomain)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subdomain == "" {
		return errors.New("--subdomain is required")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := deps.tenants.Create(ctx, tenant.CreateRequest{Subdomain: *subdomain, Name: *name})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%s)\n", t.Subdomain, t.ID)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	tenants, err := deps.tenants.List(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSUBDOMAIN\tNAME\tCREATED")
	for i := range tenants {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			tenants[i].ID, tenants[i].Subdomain, tenants[i].Name, tenants[i].CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runAdminCreateOperator(args []string) error {
	fs := flag.NewFlagSet("create-operator", flag.ContinueOnError)
	ref := fs.String("tenant", "", "tenant ID or subdomain (required)")
	email := fs.String("email", "", "operator email address (required)")
	name := fs.String("name", "", "operator display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" || *email == "" || *name == "" {
		return errors.New("--tenant, --email and --name are required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return errors.New("passwords do not match")
		}
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := deps.tenants.Lookup(ctx, *ref)
	if err != nil {
		return fmt.Errorf("tenant %q: %w", *ref, err)
	}
	op, err := deps.auth.CreateOperator(ctx, &operator.CreateRequest{
		TenantID: t.ID,
		Email:    *email,
		Name:     *name,
		Password: pass,
	})
	if err != nil {
		return fmt.Errorf("create operator: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Operator created: %s (id=%s, tenant=%s)\n", op.Email, op.ID, t.Subdomain)
	return nil
}

func runAdminIssueToken(args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	email := fs.String("email", "", "operator email address (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := deps.auth.IssueToken(ctx, *email)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Token for %s (tenant %s), expires %s\n",
		res.Operator.Email, res.Tenant.Subdomain, res.ExpiresAt.Format(time.RFC3339))
	fmt.Println(res.Token)
	return nil
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	statuses, err := postgres.Migrations(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tAPPLIED\tFILE")
	for _, st := range statuses {
		_, _ = fmt.Fprintf(w, "%d\t%t\t%s\n", st.Version, st.Applied, st.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Current version: %d\n", version)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return errors.New("--steps must be >= 1")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
		return err
	}
	version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s), now at version %d\n", *steps, version)
	return nil
}

func runAdminTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	ref := fs.String("tenant", "", "tenant ID or subdomain (all tenants when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	if deps.cfg.NATS.URL == "" {
		return errors.New("tail needs NATS: set NATS_URL")
	}

	subject := messagequeue.SubjectEventsPrefix + ".>"
	if *ref != "" {
		t, err := deps.tenants.Lookup(ctx, *ref)
		if err != nil {
			return fmt.Errorf("tenant %q: %w", *ref, err)
		}
		subject = messagequeue.EventSubject(t.ID)
	}

	queue, err := cfnats.Connect(ctx, deps.cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	fmt.Fprintf(os.Stderr, "Tailing %s, Ctrl-C to stop\n", subject)
	return queue.Tail(ctx, subject, func(m cfnats.TapMessage) {
		fmt.Printf("%s\t%s\t%s\n", m.Subject, m.RequestID, m.Data)
	})
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
