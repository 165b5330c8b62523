package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cfotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/operator"
	"github.com/Strob0t/hookrelay/internal/domain/tenant"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/port/authprovider"
	"github.com/Strob0t/hookrelay/internal/port/broadcast"
	"github.com/Strob0t/hookrelay/internal/port/tenantdir"
)

// SessionState is the lifecycle position of one relay connection attempt.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Close reasons sent to the peer.
const (
	ReasonPeerClosed = "peer closed"
	ReasonShutdown   = "server shutting down"
	ReasonGreeting   = "greeting failed"
	ReasonExpired    = "session expired"
)

// RelaySession is one operator connection bound to a tenant. Sessions start
// in Connecting, move to Open once registered and greeted, and end Closed.
type RelaySession struct {
	svc      *RelayService
	Identity operator.Identity
	Tenant   tenant.Tenant

	mu    sync.Mutex
	state SessionState
	conn  broadcast.Conn
}

// State returns the current lifecycle state.
func (s *RelaySession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close moves the session to Closed: unregisters and closes the connection.
// Every path that ends a session calls this; only the first call acts.
func (s *RelaySession) Close(reason string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = StateClosed
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		s.svc.reg.Unregister(s.Tenant.ID, conn)
		_ = conn.Close(reason)
	}
	s.svc.forget(s)

	if prev == StateOpen && s.svc.metrics != nil {
		s.svc.metrics.RelaySessions.Add(context.Background(), -1)
	}
	slog.Info("relay session closed",
		"tenant_id", s.Tenant.ID,
		"operator_id", s.Identity.OperatorID,
		"reason", reason,
	)
}

// RelayService is the relay session manager. It authenticates operators,
// binds their connections to a tenant and tracks every live session so that
// shutdown can force them closed.
type RelayService struct {
	auth    authprovider.Provider
	dir     tenantdir.Directory
	reg     broadcast.Registry
	metrics *cfotel.Metrics

	mu       sync.Mutex
	sessions map[*RelaySession]struct{}
	closing  bool
}

// NewRelayService creates a relay session manager.
func NewRelayService(auth authprovider.Provider, dir tenantdir.Directory, reg broadcast.Registry) *RelayService {
	return &RelayService{
		auth:     auth,
		dir:      dir,
		reg:      reg,
		sessions: make(map[*RelaySession]struct{}),
	}
}

// SetMetrics attaches OTEL metric instruments.
func (s *RelayService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Connect performs the Connecting step: it verifies token and resolves the
// identity's tenant. Any failure wraps domain.ErrUnauthorized and leaves no
// trace in the registry.
func (s *RelayService) Connect(ctx context.Context, token string) (*RelaySession, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no credentials", domain.ErrUnauthorized)
	}
	id, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	t, err := s.dir.GetTenant(ctx, id.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant %s: %w", domain.ErrUnauthorized, id.TenantID, err)
	}

	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		return nil, ErrShuttingDown
	}

	return &RelaySession{
		svc:      s,
		Identity: *id,
		Tenant:   *t,
		state:    StateConnecting,
	}, nil
}

// Open moves a Connecting session to Open: conn is registered under the
// session's tenant and greeted. A failed greeting closes the session.
func (s *RelayService) Open(ctx context.Context, sess *RelaySession, conn broadcast.Conn) error {
	sess.mu.Lock()
	if sess.state != StateConnecting {
		sess.mu.Unlock()
		_ = conn.Close("invalid session state")
		return fmt.Errorf("open relay session: state is %s", sess.state)
	}
	sess.conn = conn
	sess.mu.Unlock()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		sess.Close(ReasonShutdown)
		return ErrShuttingDown
	}
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.reg.Register(sess.Tenant.ID, conn)

	sess.mu.Lock()
	if sess.state == StateClosed {
		// Shutdown raced us between tracking and registering.
		sess.mu.Unlock()
		s.reg.Unregister(sess.Tenant.ID, conn)
		return ErrShuttingDown
	}
	sess.state = StateOpen
	sess.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RelaySessions.Add(ctx, 1)
	}

	greeting, err := json.Marshal(webhook.Greeting{Message: GreetingMessage(sess.Identity.Name, sess.Tenant.Subdomain)})
	if err != nil {
		sess.Close(ReasonGreeting)
		return fmt.Errorf("marshal greeting: %w", err)
	}
	if err := conn.Send(ctx, greeting); err != nil {
		sess.Close(ReasonGreeting)
		return fmt.Errorf("send greeting: %w", err)
	}

	slog.Info("relay session open",
		"tenant_id", sess.Tenant.ID,
		"subdomain", sess.Tenant.Subdomain,
		"operator_id", sess.Identity.OperatorID,
		"conn_id", conn.ID(),
	)
	return nil
}

// GreetingMessage is the text of the first message on every relay connection.
func GreetingMessage(name, subdomain string) string {
	return fmt.Sprintf("Connected to Server as %s with Subdomain %s", name, subdomain)
}

func (s *RelayService) forget(sess *RelaySession) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

// Active returns the number of tracked sessions.
func (s *RelayService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown refuses new sessions and forces every live session to Closed.
// It returns how many sessions it closed.
func (s *RelayService) Shutdown(_ context.Context) int {
	s.mu.Lock()
	s.closing = true
	live := make([]*RelaySession, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.Close(ReasonShutdown)
	}
	return len(live)
}

// ErrShuttingDown is returned once Shutdown has begun.
var ErrShuttingDown = errors.New("relay: shutting down")

// ExpiresIn reports how long the session's credentials remain valid. Zero
// means they never expire.
func (s *RelaySession) ExpiresIn(now time.Time) time.Duration {
	if s.Identity.ExpiresAt.IsZero() {
		return 0
	}
	if d := s.Identity.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return time.Nanosecond
}
