package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/logger"
	"github.com/Strob0t/hookrelay/internal/port/broadcast"
	"github.com/Strob0t/hookrelay/internal/port/eventstore"
	"github.com/Strob0t/hookrelay/internal/port/messagequeue"
	"github.com/Strob0t/hookrelay/internal/resilience"
)

// IngestRequest is an inbound webhook as seen by the pipeline.
type IngestRequest struct {
	Host     string
	Method   string
	Path     string
	RawQuery string
	Headers  http.Header
	Body     io.Reader // may be nil
}

// IngestService is the ingest pipeline: resolve the tenant, capture the
// request as an Event, then persist and broadcast it independently.
type IngestService struct {
	resolver       *ResolverService
	store          eventstore.Store
	reg            broadcast.Registry
	breaker        *resilience.Breaker
	tap            messagequeue.Publisher // optional
	metrics        *cfotel.Metrics
	maxBody        int64
	persistTimeout time.Duration
	now            func() time.Time
}

// NewIngestService creates the ingest pipeline.
func NewIngestService(
	resolver *ResolverService,
	store eventstore.Store,
	reg broadcast.Registry,
	maxBody int64,
	persistTimeout time.Duration,
) *IngestService {
	return &IngestService{
		resolver:       resolver,
		store:          store,
		reg:            reg,
		maxBody:        maxBody,
		persistTimeout: persistTimeout,
		now:            time.Now,
	}
}

// SetBreaker guards event store writes with b.
func (s *IngestService) SetBreaker(b *resilience.Breaker) { s.breaker = b }

// SetTap publishes every relayed payload to p as well.
func (s *IngestService) SetTap(p messagequeue.Publisher) { s.tap = p }

// SetMetrics attaches OTEL metric instruments.
func (s *IngestService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Ingest runs one webhook through the pipeline. It only fails when the
// tenant cannot be resolved or the body is too large; persistence and
// delivery outcomes are reported in the result.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*webhook.IngestResult, error) {
	start := s.now()
	ctx, span := cfotel.StartIngestSpan(ctx, req.Method, req.Path)
	defer span.End()

	t, err := s.resolver.Resolve(ctx, req.Host)
	if err != nil {
		s.metrics.RecordIngest(ctx, outcomeOf(err), time.Since(start).Seconds())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant.id", t.ID))
	ctx = logger.WithTenantID(ctx, t.ID)

	body, err := readBody(req.Body, s.maxBody)
	if err != nil {
		s.metrics.RecordIngest(ctx, outcomeOf(err), time.Since(start).Seconds())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("event id: %w", err)
	}
	ev := &webhook.Event{
		ID:         id.String(),
		TenantID:   t.ID,
		Method:     req.Method,
		Path:       req.Path,
		Query:      formatQuery(req.RawQuery),
		Headers:    webhook.CaptureHeaders(req.Host, req.Headers),
		Body:       body,
		ReceivedAt: s.now().UTC(),
	}

	payload, err := webhook.NewPayload(ev).Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	res := &webhook.IngestResult{
		EventID:   ev.ID,
		TenantID:  t.ID,
		Subdomain: t.Subdomain,
	}

	// Three independent failure domains; none of them reads another's outcome.
	var g errgroup.Group
	g.Go(func() error {
		res.Persisted = s.persist(ctx, ev)
		return nil
	})
	g.Go(func() error {
		res.Delivered = s.broadcast(ctx, t.ID, payload)
		return nil
	})
	if s.tap != nil {
		g.Go(func() error {
			s.publish(ctx, t.ID, payload)
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.RecordIngest(ctx, "ok", time.Since(start).Seconds())
	slog.InfoContext(ctx, "webhook ingested", append(logger.Attrs(ctx),
		"subdomain", t.Subdomain,
		"event_id", ev.ID,
		"method", ev.Method,
		"path", ev.Path,
		"persisted", res.Persisted,
		"delivered", res.Delivered,
	)...)
	return res, nil
}

func (s *IngestService) persist(ctx context.Context, ev *webhook.Event) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	ctx, span := cfotel.StartPersistSpan(ctx, ev.TenantID, ev.ID)
	defer span.End()

	write := func(ctx context.Context) error { return s.store.Create(ctx, ev) }
	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.PersistFailures.Add(ctx, 1)
		}
		slog.ErrorContext(ctx, "event persistence failed", append(logger.Attrs(ctx), "event_id", ev.ID, "error", err)...)
		return false
	}
	return true
}

func (s *IngestService) broadcast(ctx context.Context, tenantID string, payload []byte) int {
	ctx, span := cfotel.StartBroadcastSpan(ctx, tenantID)
	defer span.End()

	n := s.reg.Broadcast(ctx, tenantID, payload)
	span.SetAttributes(attribute.Int("relay.delivered", n))
	if s.metrics != nil && n > 0 {
		s.metrics.Deliveries.Add(ctx, int64(n), metric.WithAttributes(attribute.String("tenant.id", tenantID)))
	}
	return n
}

func (s *IngestService) publish(ctx context.Context, tenantID string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	if err := s.tap.Publish(ctx, messagequeue.EventSubject(tenantID), payload); err != nil {
		if s.metrics != nil {
			s.metrics.TapFailures.Add(ctx, 1)
		}
		slog.WarnContext(ctx, "event tap publish failed", append(logger.Attrs(ctx), "error", err)...)
	}
}

// readBody returns nil for an absent or empty body and ErrPayloadTooLarge
// when more than limit bytes arrive.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	if r == nil || r == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, domain.ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.ErrPayloadTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func formatQuery(raw string) string {
	if raw == "" {
		return ""
	}
	return "?" + raw
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingSubdomain):
		return "missing_subdomain"
	case errors.Is(err, domain.ErrUnknownSubdomain):
		return "unknown_subdomain"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return "payload_too_large"
	default:
		return "error"
	}
}
