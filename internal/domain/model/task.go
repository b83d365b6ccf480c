package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the workflow state of a manual verification task.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting to be picked up.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates a reviewer is working the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task was resolved.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusSkipped indicates the task was dismissed without resolution.
	TaskStatusSkipped TaskStatus = "skipped"
)

// Task priority bands on a 0-100 scale. Unsupported jurisdictions are a known,
// standing gap and rank below fresh automation failures; licenses expiring soon
// rank above everything else.
const (
	TaskPriorityLow     = 20
	TaskPriorityDefault = 50
	TaskPriorityHigh    = 80
)

// Valid returns true if the TaskStatus is valid.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for TaskStatus.
func (s *TaskStatus) UnmarshalText(text []byte) error {
	v := TaskStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid TaskStatus: %q", string(text))
	}
	*s = v
	return nil
}

// Open reports whether the status counts against the one-open-task-per-
// (license, source) invariant.
func (s TaskStatus) Open() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// VerificationTask is a unit of required human follow-up, created when
// automation cannot resolve a license.
type VerificationTask struct {
	ID        string     `json:"id"                  db:"id"`
	LicenseID string     `json:"license_id"          db:"license_id"`
	SourceID  *string    `json:"source_id,omitempty" db:"source_id"`
	Status    TaskStatus `json:"status"              db:"status"`
	Priority  int        `json:"priority"            db:"priority"`
	Reason    string     `json:"reason"              db:"reason"`
	DueDate   time.Time  `json:"due_date"            db:"due_date"`
	Assignee  *string    `json:"assignee,omitempty"  db:"assignee"`
	CreatedAt time.Time  `json:"created_at"          db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"          db:"updated_at"`
}

// CreateTaskRequest represents a request to create a verification task.
type CreateTaskRequest struct {
	LicenseID string  `json:"license_id"`
	SourceID  *string `json:"source_id,omitempty"`
	Priority  int     `json:"priority"`
	Reason    string  `json:"reason"`
	DueDate   time.Time
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.LicenseID) == "" {
		return errors.New("license id is required")
	}
	if r.Priority < 0 || r.Priority > 100 {
		return errors.New("priority must be between 0 and 100")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return errors.New("reason is required")
	}
	if r.DueDate.IsZero() {
		return errors.New("due date is required")
	}
	return nil
}

// UpdateTaskRequest represents a partial update to a task. Nil fields are unchanged.
type UpdateTaskRequest struct {
	Status   *TaskStatus `json:"status,omitempty"`
	Priority *int        `json:"priority,omitempty"`
	Reason   *string     `json:"reason,omitempty"`
	DueDate  *time.Time  `json:"due_date,omitempty"`
	Assignee *string     `json:"assignee,omitempty"`
}

// Validate validates the UpdateTaskRequest fields.
func (r UpdateTaskRequest) Validate() error {
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("invalid task status: %q", *r.Status)
	}
	if r.Priority != nil && (*r.Priority < 0 || *r.Priority > 100) {
		return errors.New("priority must be between 0 and 100")
	}
	return nil
}

// TaskListOptions holds filters and pagination for task listing.
type TaskListOptions struct {
	LicenseID *string
	Status    *TaskStatus
	Assignee  *string
	Limit     int
	Offset    int
}
