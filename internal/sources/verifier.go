// Package sources implements the per-jurisdiction verification layer: the
// registry of external authoritative sources and the adapters that query them.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caretrack/licensure/internal/domain/model"
)

// Identity carries what an adapter needs to find a license at its source.
// Names are best-effort and may be absent or mismatched against the source's
// own records.
type Identity struct {
	Number         string
	FirstName      string
	LastName       string
	Jurisdiction   string
	CredentialType model.CredentialType
}

// LookupResult is the normalized raw outcome of a successful source lookup.
// RawStatus uses the adapter's own vocabulary; mapping into canonical statuses
// is the normalizer's job.
type LookupResult struct {
	RawStatus    string          `json:"raw_status"`
	Expiration   *time.Time      `json:"expiration,omitempty"`
	Unencumbered *bool           `json:"unencumbered,omitempty"`
	LicenseeName string          `json:"licensee_name,omitempty"`
	RawPayload   json.RawMessage `json:"raw_payload,omitempty"`
}

// FailureKind is the typed classification of a failed lookup.
type FailureKind string

const (
	// FailureNotFound means the source has no record of the license.
	FailureNotFound FailureKind = "not_found"
	// FailureTransient covers network errors, timeouts, and rate limits.
	FailureTransient FailureKind = "transient"
	// FailureParse means the source responded but its payload did not match
	// the adapter's expectations (usually site drift).
	FailureParse FailureKind = "parse_error"
	// FailureUnsupported means no adapter can serve the request.
	FailureUnsupported FailureKind = "unsupported"
)

// LookupError is a typed lookup failure with human-readable detail.
type LookupError struct {
	Kind   FailureKind
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *LookupError) Unwrap() error { return e.Err }

// NotFoundError builds a not_found lookup failure.
func NotFoundError(detail string) *LookupError {
	return &LookupError{Kind: FailureNotFound, Detail: detail}
}

// TransientError builds a transient lookup failure wrapping its cause.
func TransientError(detail string, err error) *LookupError {
	return &LookupError{Kind: FailureTransient, Detail: detail, Err: err}
}

// ParseError builds a parse_error lookup failure wrapping its cause.
func ParseError(detail string, err error) *LookupError {
	return &LookupError{Kind: FailureParse, Detail: detail, Err: err}
}

// UnsupportedError builds an unsupported lookup failure.
func UnsupportedError(detail string) *LookupError {
	return &LookupError{Kind: FailureUnsupported, Detail: detail}
}

// KindOf extracts the failure kind from an error. Context deadline expiry is a
// transient failure even when it was not wrapped by an adapter. Anything else
// unclassified reports as transient so it is retried on the next run.
func KindOf(err error) FailureKind {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailureTransient
}

// Verifier performs one external lookup for a single jurisdiction. Adapters
// perform network I/O only and must not mutate shared state; every lookup must
// honor context cancellation.
type Verifier interface {
	// SourceID identifies the authoritative source this adapter queries.
	SourceID() string
	// Lookup performs one external check and returns a normalized raw result
	// or a typed *LookupError.
	Lookup(ctx context.Context, identity Identity) (*LookupResult, error)
}
