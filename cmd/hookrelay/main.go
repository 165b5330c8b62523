// Command hookrelay receives webhooks on tenant subdomains and relays them
// live to the tenant's connected operators.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfhttp "github.com/Strob0t/hookrelay/internal/adapter/http"
	"github.com/Strob0t/hookrelay/internal/adapter/jwtauth"
	cfnats "github.com/Strob0t/hookrelay/internal/adapter/nats"
	"github.com/Strob0t/hookrelay/internal/adapter/natskv"
	cfotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/adapter/postgres"
	"github.com/Strob0t/hookrelay/internal/adapter/ristretto"
	"github.com/Strob0t/hookrelay/internal/adapter/tiered"
	"github.com/Strob0t/hookrelay/internal/adapter/ws"
	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/logger"
	"github.com/Strob0t/hookrelay/internal/middleware"
	"github.com/Strob0t/hookrelay/internal/port/cache"
	"github.com/Strob0t/hookrelay/internal/resilience"
	"github.com/Strob0t/hookrelay/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"ingest_port", cfg.Server.IngestPort,
		"relay_port", cfg.Server.RelayPort,
		"base_domain", cfg.Server.BaseDomain,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"nats", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	otelShutdown, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	flushTelemetry := sync.OnceFunc(func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	})
	defer flushTelemetry()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// Closed last of the infrastructure: deferred first.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	applied, err := postgres.RunMigrations(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied", "count", applied)

	var queue *cfnats.Client
	if cfg.NATS.URL != "" {
		queue, err = cfnats.Connect(ctx, cfg.NATS)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
	}

	var tenantCache cache.Cache = l1
	if queue != nil {
		kv, err := queue.KeyValue(ctx, cfg.NATS.KVBucket, cfg.Cache.TenantTTL)
		if err != nil {
			return fmt.Errorf("tenant kv: %w", err)
		}
		tenantCache = tiered.New(l1, natskv.New(kv), cfg.Cache.TenantTTL)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	events := postgres.NewEventStore(pool)
	tokens := jwtauth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenExpiry)

	reg := ws.NewRegistry(cfg.Relay.Shards, cfg.Relay.FanoutLimit, cfg.Relay.WriteTimeout,
		ws.WithDropHook(func(tenantID string, err error) {
			metrics.DeliveryFailures.Add(context.Background(), 1)
			slog.Debug("relay connection dropped", "tenant_id", tenantID, "error", err)
		}),
	)

	resolver := service.NewResolverService(store, tenantCache, cfg.Cache.TenantTTL)

	ingestSvc := service.NewIngestService(resolver, events, reg, cfg.Ingest.MaxBodyBytes, cfg.Ingest.PersistTimeout)
	ingestSvc.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	ingestSvc.SetMetrics(metrics)
	if queue != nil {
		ingestSvc.SetTap(queue)
	}

	relaySvc := service.NewRelayService(tokens, store, reg)
	relaySvc.SetMetrics(metrics)

	checks := map[string]cfhttp.HealthCheck{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}
	if queue != nil {
		checks["nats"] = func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}

	handlers := &cfhttp.Handlers{
		Ingest:       ingestSvc,
		Relay:        relaySvc,
		Auth:         service.NewAuthService(store, tokens, &cfg.Auth),
		Tenants:      service.NewTenantService(store),
		Events:       service.NewEventService(events),
		Provider:     tokens,
		Connections:  reg.Total,
		Checks:       checks,
		AuthConfig:   cfg.Auth,
		PingInterval: cfg.Relay.PingInterval,
		Accept:       ws.AcceptOptions{OriginPatterns: originPatterns(cfg.Server.CORSOrigin)},
	}

	// --- HTTP ---

	drain := &middleware.Drain{}
	opts := cfhttp.RouterOptions{
		Drain:      drain,
		CORSOrigin: cfg.Server.CORSOrigin,
		TrustProxy: cfg.Server.TrustProxy,
	}
	if cfg.Rate.RequestsPerSecond > 0 {
		rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
		rl.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		opts.RateLimiter = rl
	}

	ingestSrv := newServer(ctx, ":"+cfg.Server.IngestPort, cfhttp.NewIngestRouter(handlers, opts))
	relaySrv := newServer(ctx, ":"+cfg.Server.RelayPort, cfhttp.NewRelayRouter(handlers, opts))
	// Relay sockets are long-lived; only the header read is bounded.
	relaySrv.ReadTimeout = 0
	relaySrv.WriteTimeout = 0

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{ingestSrv, relaySrv} {
		g.Go(func() error {
			slog.Info("starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		drain.Begin()
		closed := relaySvc.Shutdown(context.Background())
		slog.Info("relay sessions closed", "count", closed)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			ingestSrv.Shutdown(shutdownCtx),
			relaySrv.Shutdown(shutdownCtx),
		)
	})

	err = g.Wait()
	flushTelemetry()
	return err
}

func newServer(base context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Handlers must not see the signal; shutdown drains them instead.
		BaseContext: func(net.Listener) context.Context { return context.WithoutCancel(base) },
	}
}

// originPatterns turns the configured UI origin into a websocket origin
// pattern (host only).
func originPatterns(origin string) []string {
	if origin == "" {
		return nil
	}
	for _, scheme := range []string{"https://", "http://"} {
		if host, ok := strings.CutPrefix(origin, scheme); ok {
			return []string{host}
		}
	}
	return []string{origin}
}
