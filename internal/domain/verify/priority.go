package verify

import (
	"time"

	"github.com/caretrack/licensure/internal/domain/model"
)

// TaskReason classifies why a fallback task is being created or refreshed.
type TaskReason string

const (
	// ReasonUnsupported means no adapter exists for the license's jurisdiction.
	// This is a known, standing gap rather than a fresh anomaly.
	ReasonUnsupported TaskReason = "unsupported jurisdiction"
	// ReasonLookupFailed means an adapter exists but the lookup attempt failed.
	ReasonLookupFailed TaskReason = "automated lookup failed"
)

// ImminentExpirationWindow is how close a license's expiration must be for a
// fallback task to be escalated.
const ImminentExpirationWindow = 30 * 24 * time.Hour

// DefaultTaskDueIn is how long a reviewer has to work a fallback task.
const DefaultTaskDueIn = 7 * 24 * time.Hour

// TaskPriority computes the priority for a fallback task. Licenses whose
// expiration falls within the imminent window escalate regardless of reason;
// otherwise failed automation outranks a standing unsupported-jurisdiction gap.
func TaskPriority(reason TaskReason, expiration *time.Time, now time.Time) int {
	if expiration != nil && !expiration.Before(now) && expiration.Sub(now) <= ImminentExpirationWindow {
		return model.TaskPriorityHigh
	}
	if reason == ReasonUnsupported {
		return model.TaskPriorityLow
	}
	return model.TaskPriorityDefault
}

// TaskDueDate computes the due date for a fallback task. Tasks for licenses
// expiring inside the imminent window come due at the expiration itself when
// that is sooner than the default window.
func TaskDueDate(expiration *time.Time, now time.Time) time.Time {
	due := now.Add(DefaultTaskDueIn)
	if expiration != nil && expiration.After(now) && expiration.Before(due) {
		return *expiration
	}
	return due
}
