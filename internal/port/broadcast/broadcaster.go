// Package broadcast defines the port for fanning payloads out to the live
// connections of a tenant.
package broadcast

import "context"

// Conn is one live, message-oriented channel to an operator. The relay session
// that opened it owns it; a Registry only holds references.
type Conn interface {
	// ID is a process-unique handle. Registering the same ID twice is a no-op.
	ID() string

	// Send delivers one message. An error means the connection is unusable.
	Send(ctx context.Context, payload []byte) error

	// Close terminates the connection. Calling it more than once is safe.
	Close(reason string) error
}

// Registry indexes the currently open connections by tenant ID.
// All connection-set reads and writes go through it.
type Registry interface {
	Register(tenantID string, c Conn)
	Unregister(tenantID string, c Conn)

	// Broadcast sends payload to every connection registered for tenantID at
	// the moment of the call and returns how many accepted it. Connections
	// whose send fails are unregistered and closed. Unknown tenants yield 0.
	Broadcast(ctx context.Context, tenantID string, payload []byte) int

	// Count returns the number of open connections for tenantID.
	Count(tenantID string) int
}
