package http

import (
	"net/http"

	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/middleware"
)

type sessionResponse struct {
	OperatorID string        `json:"operator_id"`
	Name       string        `json:"name"`
	Tenant     tenant.Tenant `json:"tenant"`
}

// GetSession handles GET /api/session: who the caller is and which tenant
// their relay connection will be bound to.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	t, err := h.Tenants.Get(r.Context(), id.TenantID)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		OperatorID: id.OperatorID,
		Name:       id.Name,
		Tenant:     *t,
	})
}
