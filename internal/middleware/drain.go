package middleware

import (
	"net/http"
	"sync/atomic"
)

// Drain turns new requests away with 503 once shutdown has begun, while
// requests already in flight run to completion.
type Drain struct {
	draining atomic.Bool
}

// Begin starts draining. It is safe to call more than once.
func (d *Drain) Begin() { d.draining.Store(true) }

// Draining reports whether Begin has been called.
func (d *Drain) Draining() bool { return d.draining.Load() }

// Handler wraps next with the drain check.
func (d *Drain) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.draining.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Service Unavailable"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
