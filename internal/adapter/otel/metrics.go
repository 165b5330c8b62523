package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "hookrelay"

// Metrics holds all hookrelay metric instruments.
type Metrics struct {
	IngestRequests   metric.Int64Counter // by outcome
	PersistFailures  metric.Int64Counter
	Deliveries       metric.Int64Counter
	DeliveryFailures metric.Int64Counter
	TapFailures      metric.Int64Counter
	RelaySessions    metric.Int64UpDownCounter
	IngestDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.IngestRequests, err = meter.Int64Counter("hookrelay.ingest.requests",
		metric.WithDescription("Inbound webhook requests by outcome"))
	if err != nil {
		return nil, err
	}

	m.PersistFailures, err = meter.Int64Counter("hookrelay.ingest.persist_failures",
		metric.WithDescription("Events that could not be written to the event store"))
	if err != nil {
		return nil, err
	}

	m.Deliveries, err = meter.Int64Counter("hookrelay.relay.deliveries",
		metric.WithDescription("Payloads accepted by relay connections"))
	if err != nil {
		return nil, err
	}

	m.DeliveryFailures, err = meter.Int64Counter("hookrelay.relay.delivery_failures",
		metric.WithDescription("Relay connections dropped after a failed send"))
	if err != nil {
		return nil, err
	}

	m.TapFailures, err = meter.Int64Counter("hookrelay.ingest.tap_failures",
		metric.WithDescription("Events that could not be published to the event tap"))
	if err != nil {
		return nil, err
	}

	m.RelaySessions, err = meter.Int64UpDownCounter("hookrelay.relay.sessions",
		metric.WithDescription("Open relay sessions"))
	if err != nil {
		return nil, err
	}

	m.IngestDuration, err = meter.Float64Histogram("hookrelay.ingest.duration_seconds",
		metric.WithDescription("Ingest pipeline latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordIngest counts one ingest request with the given outcome label.
func (m *Metrics) RecordIngest(ctx context.Context, outcome string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.IngestRequests.Add(ctx, 1, attrs)
	m.IngestDuration.Record(ctx, seconds, attrs)
}
