package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// AuditEntry records one system or operator action for the audit trail.
type AuditEntry struct {
	ID         string          `json:"id"                 db:"id"`
	Action     string          `json:"action"             db:"action"`
	EntityType string          `json:"entity_type"        db:"entity_type"`
	EntityID   string          `json:"entity_id"          db:"entity_id"`
	Actor      string          `json:"actor"              db:"actor"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at"         db:"created_at"`
}

// CreateAuditEntryRequest represents a request to append an audit entry.
type CreateAuditEntryRequest struct {
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Actor      string          `json:"actor,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Validate validates the CreateAuditEntryRequest fields.
func (r *CreateAuditEntryRequest) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return errors.New("action is required")
	}
	if strings.TrimSpace(r.EntityType) == "" {
		return errors.New("entity type is required")
	}
	return nil
}
