package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/middleware"
)

const apiTimeout = 30 * time.Second

// RouterOptions carries the cross-cutting pieces both routers share.
type RouterOptions struct {
	// Drain turns ingest away with 503 during shutdown. Optional.
	Drain *middleware.Drain

	// RateLimiter throttles ingest per client IP. Optional.
	RateLimiter *middleware.RateLimiter

	CORSOrigin string
	TrustProxy bool
}

// NewIngestRouter returns the handler for the public webhook listener. Every
// method on every path reaches HandleIngest.
func NewIngestRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfotel.HTTPMiddleware("ingest"))
	if opts.Drain != nil {
		r.Use(opts.Drain.Handler)
	}
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Handler)
	}

	ingest := http.HandlerFunc(h.HandleIngest)
	r.Handle("/*", ingest)
	r.NotFound(ingest)
	r.MethodNotAllowed(ingest)
	return r
}

// NewRelayRouter returns the handler for the operator listener.
func NewRelayRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(Logger)
	r.Use(chimw.Recoverer)
	r.Use(CORS(opts.CORSOrigin))
	r.Use(cfotel.HTTPMiddleware("relay"))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(SecurityHeaders)

		// The relay socket outlives any request timeout.
		r.Get("/relay", h.HandleRelay)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(apiTimeout))

			r.Post("/auth/login", h.Login)
			r.Post("/auth/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(h.Provider, h.AuthConfig.CookieName))
				r.Get("/session", h.GetSession)
				r.Get("/events", h.ListEvents)
				r.Delete("/events", h.ClearEvents)
			})
		})
	})
	return r
}
