// Package notify defines the outbound notification surface for verification
// run failures.
package notify

import (
	"context"
	"time"
)

// Severity values recognized by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// RunFailurePayload is the canonical data emitted when a verification run
// fails or finishes with errors worth a human's attention.
type RunFailurePayload struct {
	RunID      string
	Status     string
	Processed  int
	Errors     int
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink is a destination for run failure notifications.
type Sink interface {
	SendRunFailure(ctx context.Context, payload RunFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload RunFailurePayload) error

// SendRunFailure implements Sink.
func (f SinkFunc) SendRunFailure(ctx context.Context, payload RunFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
