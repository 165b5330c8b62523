package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/hookrelay/internal/adapter/ws"
	"github.com/Strob0t/hookrelay/internal/middleware"
	"github.com/Strob0t/hookrelay/internal/service"
)

// HandleRelay handles GET /api/relay. The caller is authenticated before the
// upgrade so a rejected client gets a plain 401 and nothing is registered.
// The connection then lives until the peer leaves, the session expires, or
// the server shuts down.
func (h *Handlers) HandleRelay(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Relay.Connect(r.Context(), middleware.TokenFromRequest(r, h.AuthConfig.CookieName))
	if err != nil {
		slog.Debug("relay connect rejected", "error", err)
		writeDomainError(w, err, "Unauthorized")
		return
	}

	conn, err := ws.Accept(w, r, h.Accept)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tenant_id", sess.Tenant.ID, "error", err)
		return
	}

	ctx := r.Context()
	if err := h.Relay.Open(ctx, sess, conn); err != nil {
		slog.Info("relay session not opened", "tenant_id", sess.Tenant.ID, "error", err)
		return
	}

	if d := sess.ExpiresIn(time.Now()); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	err = conn.Run(ctx, h.PingInterval)
	reason := service.ReasonPeerClosed
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = service.ReasonExpired
	}
	slog.Debug("relay read loop ended", "conn_id", conn.ID(), "error", err)
	sess.Close(reason)
}
