package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/port/authprovider"
)

type identityCtxKey struct{}

// TokenFromRequest returns the session token a client presented. It checks,
// in order, an Authorization: Bearer header, the session cookie, and a
// ?token= query parameter (browsers cannot set headers on a WebSocket).
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return r.URL.Query().Get("token")
}

// Auth returns middleware that rejects requests without a valid session with
// 401 and stores the verified identity in the request context.
func Auth(p authprovider.Provider, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := TokenFromRequest(r, cookieName)
			if tok == "" {
				unauthorized(w)
				return
			}
			id, err := p.Authenticate(r.Context(), tok)
			if err != nil {
				slog.Debug("authentication failed", "path", r.URL.Path, "error", err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *operator.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the authenticated operator, or nil.
func IdentityFromContext(ctx context.Context) *operator.Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*operator.Identity)
	return id
}
