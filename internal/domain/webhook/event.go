// Package webhook defines the captured inbound request (Event) and the payload
// relayed to live connections.
package webhook

import (
	"net/http"
	"sort"
	"time"
)

// Header is one captured header line. Repeated names appear as separate entries.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Event is an inbound webhook request as captured for one tenant.
// Events are immutable once built.
type Event struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query"`
	Headers    []Header  `json:"headers"`
	Body       []byte    `json:"body,omitempty"` // nil when the request had no body
	ReceivedAt time.Time `json:"received_at"`
}

// HasBody reports whether the request carried a body.
func (e *Event) HasBody() bool {
	return e.Body != nil
}

// HeaderMap groups the captured headers by name, keeping value order.
func (e *Event) HeaderMap() map[string][]string {
	m := make(map[string][]string, len(e.Headers))
	for _, h := range e.Headers {
		m[h.Name] = append(m[h.Name], h.Value)
	}
	return m
}

// CaptureHeaders flattens an http.Header into name/value pairs. net/http does
// not keep the wire order across names, so names are sorted; values of a
// repeated name keep their received order. host is prepended because net/http
// moves it out of the header map.
func CaptureHeaders(host string, h http.Header) []Header {
	names := make([]string, 0, len(h))
	n := 0
	for name, vals := range h {
		names = append(names, name)
		n += len(vals)
	}
	sort.Strings(names)

	out := make([]Header, 0, n+1)
	if host != "" {
		out = append(out, Header{Name: "Host", Value: host})
	}
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}
