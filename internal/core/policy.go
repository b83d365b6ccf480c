package core

import (
	"fmt"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
)

// Action is an operation a caller may be allowed to perform.
type Action string

const (
	// ActionRead covers all read-only operations.
	ActionRead Action = "read"
	// ActionWrite covers create/update/delete of records and manual verifications.
	ActionWrite Action = "write"
	// ActionRunJobs covers triggering batch verification runs.
	ActionRunJobs Action = "run_jobs"
)

// AccessPolicy decides whether a session may perform an action. Services
// take the policy as an explicit dependency so authorization stays testable
// independent of any particular auth scheme.
type AccessPolicy interface {
	Allow(sess domainauth.Session, action Action) error
}

// PolicyError reports a denied action.
type PolicyError struct {
	Action Action
	Role   domainauth.Role
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Action)
}

// AllowAllPolicy permits every action. Useful for tests and single-operator
// deployments.
type AllowAllPolicy struct{}

// Allow always permits the action.
func (AllowAllPolicy) Allow(domainauth.Session, Action) error { return nil }

// RolePolicy grants read to every authenticated role and restricts writes and
// job runs to admins.
type RolePolicy struct{}

// Allow applies the role rules.
func (RolePolicy) Allow(sess domainauth.Session, action Action) error {
	switch action {
	case ActionRead:
		if sess.Role == domainauth.RoleAdmin || sess.Role == domainauth.RoleUser {
			return nil
		}
	case ActionWrite, ActionRunJobs:
		if sess.Role == domainauth.RoleAdmin {
			return nil
		}
	}
	return &PolicyError{Action: action, Role: sess.Role}
}

var (
	_ AccessPolicy = AllowAllPolicy{}
	_ AccessPolicy = RolePolicy{}
)
