// Package model defines the core data types and structures used throughout the licensure system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LicenseStatus represents the canonical status of a license, derived from its
// most recent accepted verification.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type LicenseStatus string

// CredentialType represents the professional credential a license attests.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type CredentialType string

const (
	// LicenseStatusActive indicates the license is current and in good standing.
	LicenseStatusActive LicenseStatus = "active"
	// LicenseStatusExpired indicates the license has lapsed.
	LicenseStatusExpired LicenseStatus = "expired"
	// LicenseStatusNeedsManual indicates automation could not determine a status and a human must review.
	LicenseStatusNeedsManual LicenseStatus = "needs_manual"
	// LicenseStatusFlagged indicates the source reported a disciplinary state (suspended, revoked).
	LicenseStatusFlagged LicenseStatus = "flagged"
	// LicenseStatusUnknown indicates the license has never been verified.
	LicenseStatusUnknown LicenseStatus = "unknown"

	// CredentialRN is a Registered Nurse license.
	CredentialRN CredentialType = "RN"
	// CredentialLPN is a Licensed Practical Nurse license.
	CredentialLPN CredentialType = "LPN"
	// CredentialCNA is a Certified Nursing Assistant credential.
	CredentialCNA CredentialType = "CNA"
	// CredentialAPRN is an Advanced Practice Registered Nurse license.
	CredentialAPRN CredentialType = "APRN"
	// CredentialNP is a Nurse Practitioner license.
	CredentialNP CredentialType = "NP"
)

// Valid returns true if the LicenseStatus is valid.
func (s LicenseStatus) Valid() bool {
	switch s {
	case LicenseStatusActive, LicenseStatusExpired, LicenseStatusNeedsManual,
		LicenseStatusFlagged, LicenseStatusUnknown:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for LicenseStatus.
func (s *LicenseStatus) UnmarshalText(text []byte) error {
	v := LicenseStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid LicenseStatus: %q", string(text))
	}
	*s = v
	return nil
}

// Valid returns true if the CredentialType is valid.
func (t CredentialType) Valid() bool {
	switch t {
	case CredentialRN, CredentialLPN, CredentialCNA, CredentialAPRN, CredentialNP:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for CredentialType.
func (t *CredentialType) UnmarshalText(text []byte) error {
	v := CredentialType(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid CredentialType: %q", string(text))
	}
	*t = v
	return nil
}

// License identifies a professional credential tracked by the system.
//
// Status, Expiration, SyncedData, and LastVerifiedAt are a projection of the
// license's most recent verification. SyncedData is a display cache only; the
// verification history is the source of truth.
type License struct {
	ID             string          `json:"id"                         db:"id"`
	PersonID       string          `json:"person_id"                  db:"person_id"`
	Jurisdiction   string          `json:"jurisdiction"               db:"jurisdiction"`
	Number         string          `json:"number"                     db:"number"`
	CredentialType CredentialType  `json:"credential_type"            db:"credential_type"`
	Status         LicenseStatus   `json:"status"                     db:"status"`
	Expiration     *time.Time      `json:"expiration,omitempty"       db:"expiration"`
	FirstName      string          `json:"first_name"                 db:"first_name"`
	LastName       string          `json:"last_name"                  db:"last_name"`
	Archived       bool            `json:"archived"                   db:"archived"`
	SyncedData     json.RawMessage `json:"synced_data,omitempty"      db:"synced_data"`
	SyncedAt       *time.Time      `json:"synced_at,omitempty"        db:"synced_at"`
	LastVerifiedAt *time.Time      `json:"last_verified_at,omitempty" db:"last_verified_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// CreateLicenseRequest represents a request to create a new license.
type CreateLicenseRequest struct {
	PersonID       string         `json:"person_id"`
	Jurisdiction   string         `json:"jurisdiction"`
	Number         string         `json:"number"`
	CredentialType CredentialType `json:"credential_type"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Expiration     *time.Time     `json:"expiration,omitempty"`
}

// Validate validates the CreateLicenseRequest fields.
func (r *CreateLicenseRequest) Validate() error {
	if strings.TrimSpace(r.PersonID) == "" {
		return errors.New("person id is required")
	}
	if NormalizeJurisdiction(r.Jurisdiction) == "" {
		return errors.New("jurisdiction is required")
	}
	if strings.TrimSpace(r.Number) == "" {
		return errors.New("license number is required")
	}
	if !r.CredentialType.Valid() {
		return fmt.Errorf("invalid credential type: %q", r.CredentialType)
	}
	return nil
}

// UpdateLicenseRequest represents a partial update to a license. Nil fields are unchanged.
type UpdateLicenseRequest struct {
	Number         *string         `json:"number,omitempty"`
	CredentialType *CredentialType `json:"credential_type,omitempty"`
	FirstName      *string         `json:"first_name,omitempty"`
	LastName       *string         `json:"last_name,omitempty"`
	Expiration     *time.Time      `json:"expiration,omitempty"`
	Archived       *bool           `json:"archived,omitempty"`
}

// Validate validates the UpdateLicenseRequest fields.
func (r UpdateLicenseRequest) Validate() error {
	if r.Number != nil && strings.TrimSpace(*r.Number) == "" {
		return errors.New("license number cannot be empty")
	}
	if r.CredentialType != nil && !r.CredentialType.Valid() {
		return fmt.Errorf("invalid credential type: %q", *r.CredentialType)
	}
	return nil
}

// LicenseListOptions holds filters and pagination for license listing.
type LicenseListOptions struct {
	PersonID     *string
	Jurisdiction *string
	Status       *LicenseStatus
	Archived     *bool
	Limit        int
	Offset       int
	Sort         string
	Dir          string
}

// NormalizeJurisdiction canonicalizes a jurisdiction code (two-letter, upper case).
func NormalizeJurisdiction(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LicenseProjection is the set of License fields derived from a verification.
// It is applied identically by the automated recorder and the manual-entry API.
type LicenseProjection struct {
	Status         LicenseStatus
	Expiration     *time.Time // nil means "leave the existing expiration alone"
	SyncedData     json.RawMessage
	SyncedAt       time.Time
	LastVerifiedAt time.Time
}

// ApplyVerification computes the License projection for a recorded verification.
// An absent expiration never clears an existing one, and the synced snapshot is
// refreshed only when the verification carried a raw payload.
func ApplyVerification(v *Verification) LicenseProjection {
	p := LicenseProjection{
		Status:         v.StatusFound,
		LastVerifiedAt: v.VerifiedAt,
	}
	if v.ExpirationFound != nil {
		exp := *v.ExpirationFound
		p.Expiration = &exp
	}
	if len(v.RawResponse) > 0 {
		p.SyncedData = v.RawResponse
		p.SyncedAt = v.VerifiedAt
	}
	return p
}
