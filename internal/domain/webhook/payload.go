package webhook

import (
	"encoding/json"
	"time"
)

// Payload is the JSON document pushed to each live relay connection.
type Payload struct {
	ID        string              `json:"id"`
	TenantID  string              `json:"tenantId"`
	Method    string              `json:"method"`
	Path      string              `json:"path"`
	Query     string              `json:"query"`
	Headers   map[string][]string `json:"headers"`
	Body      *string             `json:"body"`
	CreatedAt time.Time           `json:"createdAt"`
}

// NewPayload builds the relayed view of an Event.
func NewPayload(ev *Event) Payload {
	p := Payload{
		ID:        ev.ID,
		TenantID:  ev.TenantID,
		Method:    ev.Method,
		Path:      ev.Path,
		Query:     ev.Query,
		Headers:   ev.HeaderMap(),
		CreatedAt: ev.ReceivedAt,
	}
	if ev.HasBody() {
		body := string(ev.Body)
		p.Body = &body
	}
	return p
}

// Marshal encodes the payload once so every connection gets the same bytes.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Greeting is the first message a relay connection receives.
type Greeting struct {
	Message string `json:"message"`
}
