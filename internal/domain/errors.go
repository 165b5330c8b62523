// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness conflict (e.g. a subdomain already taken).
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates the input failed validation. Wrap it with the
// field-level message: fmt.Errorf("%w: subdomain is required", ErrValidation).
var ErrValidation = errors.New("validation failed")

// Ingest and relay failures. Resolution failures terminate the request before
// any Event is built or any connection is registered.
var (
	ErrMissingSubdomain = errors.New("missing subdomain")
	ErrUnknownSubdomain = errors.New("unknown subdomain")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnauthorized     = errors.New("unauthorized")
)
