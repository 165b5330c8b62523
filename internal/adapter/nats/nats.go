// Package nats implements the message queue port using NATS JetStream. It
// carries the event tap and provides the KV bucket backing the L2 tenant cache.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/logger"
	"github.com/Strob0t/hookrelay/internal/port/messagequeue"
)

var _ messagequeue.Publisher = (*Client)(nil)

// headerRequestID carries the ingest request ID on tapped messages.
const headerRequestID = "X-Request-ID"

// Client implements messagequeue.Publisher using NATS JetStream.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
}

// Connect establishes a connection to NATS and ensures the tap stream exists.
func Connect(ctx context.Context, cfg config.NATS) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("hookrelay"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{messagequeue.SubjectEventsPrefix + ".>"},
		MaxAge:    cfg.StreamMaxAge,
		Retention: jetstream.LimitsPolicy,
		Discard:   jetstream.DiscardOld,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", cfg.URL, "stream", cfg.Stream)
	return &Client{nc: nc, js: js, stream: cfg.Stream}, nil
}

// Publish sends a message to the given subject, tagged with the request ID
// from ctx when there is one.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if _, err := c.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is currently up.
func (c *Client) IsConnected() bool {
	return c.nc.IsConnected()
}

// KeyValue creates or opens a KV bucket whose entries expire after ttl.
func (c *Client) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv %s: %w", bucket, err)
	}
	return kv, nil
}

// TapMessage is one event read back from the tap stream.
type TapMessage struct {
	Subject   string
	RequestID string
	Data      []byte
}

// Tail streams new messages on subject to fn until ctx ends.
func (c *Client) Tail(ctx context.Context, subject string, fn func(TapMessage)) error {
	cons, err := c.js.OrderedConsumer(ctx, c.stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("nats consumer: %w", err)
	}
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		fn(TapMessage{
			Subject:   msg.Subject(),
			RequestID: msg.Headers().Get(headerRequestID),
			Data:      msg.Data(),
		})
	})
	if err != nil {
		return fmt.Errorf("nats consume: %w", err)
	}
	<-ctx.Done()
	cc.Stop()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Close drains in-flight publishes and shuts down the NATS connection.
func (c *Client) Close() error {
	if err := c.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		c.nc.Close()
		return err
	}
	return nil
}
