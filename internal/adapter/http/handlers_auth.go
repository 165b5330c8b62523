package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
)

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"` // seconds
	Tenant    tenant.Tenant `json:"tenant"`
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[operator.LoginRequest](w, r)
	if !ok {
		return
	}

	res, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeDomainError(w, err, "Unauthorized")
		return
	}

	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresIn: int64(time.Until(res.ExpiresAt).Seconds()),
		Tenant:    res.Tenant,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this only
// clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	h.setSessionCookie(w, "", time.Time{})
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie writes the session cookie. An empty token deletes it.
func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := &http.Cookie{
		Name:     h.AuthConfig.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.AuthConfig.CookieDomain,
		HttpOnly: true,
		Secure:   h.AuthConfig.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}
