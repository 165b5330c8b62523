package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/hookrelay/internal/adapter/ws"
	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/port/authprovider"
	"github.com/Strob0t/hookrelay/internal/service"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handlers holds the services behind both listeners.
type Handlers struct {
	Ingest  *service.IngestService
	Relay   *service.RelayService
	Auth    *service.AuthService
	Tenants *service.TenantService
	Events  *service.EventService

	// Provider verifies session tokens for the relay API.
	Provider authprovider.Provider

	// Connections reports how many relay connections are registered.
	Connections func() int

	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthCheck

	AuthConfig   config.Auth
	PingInterval time.Duration
	Accept       ws.AcceptOptions
}

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status      string            `json:"status"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health on both listeners.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	if h.Connections != nil {
		resp.Connections = h.Connections()
	}
	status := http.StatusOK
	if len(h.Checks) > 0 {
		resp.Checks = make(map[string]string, len(h.Checks))
		for name, check := range h.Checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	writeJSON(w, status, resp)
}
