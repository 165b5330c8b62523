package webhook

// IngestResult reports the two independent outcomes of one ingest call.
type IngestResult struct {
	EventID   string
	TenantID  string
	Subdomain string
	Persisted bool
	Delivered int
}

// Forwarded reports whether at least one live connection received the event.
func (r *IngestResult) Forwarded() bool {
	return r.Delivered > 0
}

// ListFilter narrows stored event queries.
type ListFilter struct {
	Limit  int
	Before string // event ID cursor; empty starts from the newest
}
