package http

import (
	"net/http"
	"strconv"

	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/middleware"
)

// ListEvents handles GET /api/events?limit=&before=. Events come back newest
// first in the same shape live connections receive them.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	var f webhook.ListFilter
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	f.Before = r.URL.Query().Get("before")

	events, err := h.Events.List(r.Context(), id.TenantID, f)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}

	out := make([]webhook.Payload, len(events))
	for i := range events {
		out[i] = webhook.NewPayload(&events[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// ClearEvents handles DELETE /api/events.
func (h *Handlers) ClearEvents(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	n, err := h.Events.Clear(r.Context(), id.TenantID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
