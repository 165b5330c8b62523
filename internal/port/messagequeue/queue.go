// Package messagequeue defines the message queue port (interface).
package messagequeue

import (
	"context"
	"fmt"
)

// Publisher sends messages to a subject-addressed broker.
type Publisher interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// IsConnected reports whether the broker connection is currently up.
	IsConnected() bool
}

// Subject prefixes used by hookrelay.
const (
	SubjectEventsPrefix = "hooks.events" // hooks.events.{tenantID}: every ingested event
)

// EventSubject returns the subject an ingested event for tenantID is tapped to.
func EventSubject(tenantID string) string {
	return fmt.Sprintf("%s.%s", SubjectEventsPrefix, tenantID)
}
