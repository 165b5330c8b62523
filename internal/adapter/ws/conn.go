package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Strob0t/hookrelay/internal/port/broadcast"
)

// Compile-time interface check.
var _ broadcast.Conn = (*Conn)(nil)

// ErrConnClosed is returned by Send after Close.
var ErrConnClosed = errors.New("ws: connection closed")

// Conn is one accepted relay WebSocket.
type Conn struct {
	id       string
	ws       *websocket.Conn
	openedAt time.Time

	// cancel stops the read loop and any in-flight write.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(c *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		id:       uuid.NewString(),
		ws:       c,
		openedAt: time.Now().UTC(),
		ctx:      ctx,
		cancel:   cancel,
		closed:   make(chan struct{}),
	}
}

// ID returns the connection handle.
func (c *Conn) ID() string { return c.id }

// OpenedAt returns when the connection was accepted.
func (c *Conn) OpenedAt() time.Time { return c.openedAt }

// Send writes one text frame. coder/websocket serialises concurrent writers.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	ctx, stop := mergeDone(ctx, c.ctx)
	defer stop()
	return c.ws.Write(ctx, websocket.MessageText, payload)
}

// Close starts the closing handshake with reason and returns immediately;
// the socket is released once the peer answers or the handshake times out.
// Only the first call has any effect.
func (c *Conn) Close(reason string) error {
	c.closeOnce.Do(func() {
		close(c.closed)
		go func() {
			_ = c.ws.Close(websocket.StatusNormalClosure, truncateReason(reason))
			c.cancel()
		}()
	})
	return nil
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} { return c.closed }

// Run reads and discards inbound messages, pinging every pingInterval, until
// the peer goes away, ctx ends, or Close is called. It returns the cause.
func (c *Conn) Run(ctx context.Context, pingInterval time.Duration) error {
	ctx, stop := mergeDone(ctx, c.ctx)
	defer stop()

	if pingInterval > 0 {
		go c.keepalive(ctx, pingInterval)
	}
	for {
		if _, _, err := c.ws.Read(ctx); err != nil {
			return err
		}
	}
}

func (c *Conn) keepalive(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, every)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				_ = c.Close("ping timeout")
				return
			}
		}
	}
}

// mergeDone returns a context derived from a that is also cancelled when b is.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close reasons are limited to 123 bytes by RFC 6455.
func truncateReason(s string) string {
	if len(s) > 123 {
		return s[:123]
	}
	return s
}
