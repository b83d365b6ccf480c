package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RunType distinguishes how a verification was performed.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type RunType string

// VerificationResult classifies the outcome of a single check attempt. It is
// independent of the license's canonical status.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type VerificationResult string

const (
	// RunTypeAutomated indicates the verification was performed by a source adapter.
	RunTypeAutomated RunType = "automated"
	// RunTypeManual indicates the verification was entered by a human.
	RunTypeManual RunType = "manual"

	// ResultVerified indicates the source confirmed the license as active.
	ResultVerified VerificationResult = "verified"
	// ResultExpired indicates the source reported the license as expired.
	ResultExpired VerificationResult = "expired"
	// ResultNotFound indicates the source has no record of the license.
	ResultNotFound VerificationResult = "not_found"
	// ResultError indicates the check attempt failed.
	ResultError VerificationResult = "error"
	// ResultPending indicates the check needs human follow-up before it is conclusive.
	ResultPending VerificationResult = "pending"
)

// Valid returns true if the RunType is valid.
func (t RunType) Valid() bool {
	return t == RunTypeAutomated || t == RunTypeManual
}

// UnmarshalText implements encoding.TextUnmarshaler for RunType.
func (t *RunType) UnmarshalText(text []byte) error {
	v := RunType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid RunType: %q", string(text))
	}
	*t = v
	return nil
}

// Valid returns true if the VerificationResult is valid.
func (r VerificationResult) Valid() bool {
	switch r {
	case ResultVerified, ResultExpired, ResultNotFound, ResultError, ResultPending:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for VerificationResult.
func (r *VerificationResult) UnmarshalText(text []byte) error {
	v := VerificationResult(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid VerificationResult: %q", string(text))
	}
	*r = v
	return nil
}

// Verification is an immutable historical record of one check attempt. Rows are
// append-only: a license's status update is always a side effect of inserting
// exactly one Verification, never the reverse.
type Verification struct {
	ID              string             `json:"id"                         db:"id"`
	LicenseID       string             `json:"license_id"                 db:"license_id"`
	SourceID        *string            `json:"source_id,omitempty"        db:"source_id"`
	RunType         RunType            `json:"run_type"                   db:"run_type"`
	Result          VerificationResult `json:"result"                     db:"result"`
	StatusFound     LicenseStatus      `json:"status_found"               db:"status_found"`
	ExpirationFound *time.Time         `json:"expiration_found,omitempty" db:"expiration_found"`
	Unencumbered    *bool              `json:"unencumbered,omitempty"     db:"unencumbered"`
	Notes           string             `json:"notes"                      db:"notes"`
	RawResponse     json.RawMessage    `json:"raw_response,omitempty"     db:"raw_response"`
	VerifiedBy      string             `json:"verified_by"                db:"verified_by"`
	VerifiedAt      time.Time          `json:"verified_at"                db:"verified_at"`
	CreatedAt       time.Time          `json:"created_at"                 db:"created_at"`
}

// CreateVerificationRequest represents a request to append a verification record.
type CreateVerificationRequest struct {
	LicenseID       string             `json:"license_id"`
	SourceID        *string            `json:"source_id,omitempty"`
	RunType         RunType            `json:"run_type"`
	Result          VerificationResult `json:"result"`
	StatusFound     LicenseStatus      `json:"status_found"`
	ExpirationFound *time.Time         `json:"expiration_found,omitempty"`
	Unencumbered    *bool              `json:"unencumbered,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	RawResponse     json.RawMessage    `json:"raw_response,omitempty"`
	VerifiedBy      string             `json:"verified_by"`
	VerifiedAt      time.Time          `json:"verified_at"`
}

// Validate validates the CreateVerificationRequest fields.
func (r *CreateVerificationRequest) Validate() error {
	if strings.TrimSpace(r.LicenseID) == "" {
		return errors.New("license id is required")
	}
	if !r.RunType.Valid() {
		return fmt.Errorf("invalid run type: %q", r.RunType)
	}
	if !r.Result.Valid() {
		return fmt.Errorf("invalid result: %q", r.Result)
	}
	if !r.StatusFound.Valid() {
		return fmt.Errorf("invalid status found: %q", r.StatusFound)
	}
	if strings.TrimSpace(r.VerifiedBy) == "" {
		return errors.New("verified_by is required")
	}
	return nil
}

// VerificationListOptions holds filters and pagination for verification listing.
type VerificationListOptions struct {
	LicenseID *string
	Result    *VerificationResult
	RunType   *RunType
	Limit     int
	Offset    int
}
