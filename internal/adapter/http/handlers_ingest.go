package http

import (
	"errors"
	"net/http"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/service"
)

type ingestResponse struct {
	Logged    bool   `json:"logged"`
	Forwarded bool   `json:"forwarded"`
	Subdomain string `json:"subdomain"`
}

// HandleIngest captures any method on any path of a tenant subdomain. The
// bare host only answers GET /health.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.URL.Path == "/health" {
		if _, err := service.SubdomainLabel(r.Host); errors.Is(err, domain.ErrMissingSubdomain) {
			h.Health(w, r)
			return
		}
	}

	res, err := h.Ingest.Ingest(r.Context(), service.IngestRequest{
		Host:     r.Host,
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Headers:  r.Header,
		Body:     r.Body,
	})
	if err != nil {
		writeDomainError(w, err, "Invalid Subdomain")
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Logged:    res.Persisted,
		Forwarded: res.Forwarded(),
		Subdomain: res.Subdomain,
	})
}
