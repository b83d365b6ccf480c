package model

import (
	"fmt"
	"strings"
	"time"
)

// JobRunStatus represents the lifecycle state of one batch verification run.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobRunStatus string

const (
	// JobRunStatusPending indicates the run row was created but dispatch has not started.
	JobRunStatusPending JobRunStatus = "pending"
	// JobRunStatusRunning indicates the run is dispatching lookups.
	JobRunStatusRunning JobRunStatus = "running"
	// JobRunStatusCompleted indicates the run finished; per-license errors do not
	// prevent this state.
	JobRunStatusCompleted JobRunStatus = "completed"
	// JobRunStatusFailed indicates a run-level infrastructure error aborted the run.
	JobRunStatusFailed JobRunStatus = "failed"
)

// Valid returns true if the JobRunStatus is valid.
func (s JobRunStatus) Valid() bool {
	switch s {
	case JobRunStatusPending, JobRunStatusRunning, JobRunStatusCompleted, JobRunStatusFailed:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for JobRunStatus.
func (s *JobRunStatus) UnmarshalText(text []byte) error {
	v := JobRunStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobRunStatus: %q", string(text))
	}
	*s = v
	return nil
}

// JobRun is one execution of the batch verification orchestrator. The runner
// exclusively owns the row while the run is in flight; it is immutable once
// finalized.
type JobRun struct {
	ID           string       `json:"id"                      db:"id"`
	Status       JobRunStatus `json:"status"                  db:"status"`
	Processed    int          `json:"processed"               db:"processed"`
	AutoVerified int          `json:"auto_verified"           db:"auto_verified"`
	TasksCreated int          `json:"tasks_created"           db:"tasks_created"`
	Errors       int          `json:"errors"                  db:"errors"`
	LastError    *string      `json:"last_error,omitempty"    db:"last_error"`
	StartedAt    time.Time    `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"  db:"completed_at"`
	CreatedAt    time.Time    `json:"created_at"              db:"created_at"`
}

// RunSummary is the caller-facing result of one job run. ErrorSamples is capped
// so the trigger endpoint never returns an unbounded error dump.
type RunSummary struct {
	JobRunID     string   `json:"job_run_id"`
	Processed    int      `json:"processed"`
	AutoVerified int      `json:"auto_verified"`
	TasksCreated int      `json:"tasks_created"`
	Errors       int      `json:"errors"`
	ErrorSamples []string `json:"error_samples,omitempty"`
}

// FinalizeJobRunParams groups the fields written when a run is finalized.
type FinalizeJobRunParams struct {
	Status       JobRunStatus
	Processed    int
	AutoVerified int
	TasksCreated int
	Errors       int
	LastError    *string
	CompletedAt  time.Time
}
