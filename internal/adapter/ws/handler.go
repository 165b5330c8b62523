package ws

import (
	"net/http"

	"github.com/coder/websocket"
)

// AcceptOptions configures the WebSocket upgrade.
type AcceptOptions struct {
	// OriginPatterns lists hosts allowed to open cross-origin connections.
	// Empty means same-origin only.
	OriginPatterns []string

	// ReadLimit caps an inbound message. Operators have nothing to say, so
	// it stays small.
	ReadLimit int64
}

const defaultReadLimit = 4096

// Accept upgrades the request to a WebSocket and wraps it as a relay Conn.
// On failure the handshake error has already been written to w.
func Accept(w http.ResponseWriter, r *http.Request, opts AcceptOptions) (*Conn, error) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: opts.OriginPatterns,
	})
	if err != nil {
		return nil, err
	}
	limit := opts.ReadLimit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	c.SetReadLimit(limit)
	return newConn(c), nil
}
