package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data/pgxutil"
	"github.com/caretrack/licensure/internal/domain/model"
)

// AuditRepo persists the append-only audit trail.
type AuditRepo struct {
	DB *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db}
}

// Create appends one audit entry.
func (r *AuditRepo) Create(ctx context.Context, req *model.CreateAuditEntryRequest) (*model.AuditEntry, error) {
	if req == nil {
		return nil, errors.New("create audit entry request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.AuditEntry
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO audit_log (action, entity_type, entity_id, actor, metadata)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+auditColumnList,
			strings.TrimSpace(req.Action),
			strings.TrimSpace(req.EntityType),
			strings.TrimSpace(req.EntityID),
			strings.TrimSpace(req.Actor),
			rawJSONArg(req.Metadata),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.AuditEntry])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create audit entry: %w", err)
	}
	return &out, nil
}

// ListByEntity retrieves audit entries for one entity, newest first.
func (r *AuditRepo) ListByEntity(ctx context.Context, params core.ListAuditParams) ([]*model.AuditEntry, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(params.Offset, 0)

	var rowsOut []model.AuditEntry
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, auditListByEntityQuery,
			params.EntityType, params.EntityID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AuditEntry])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	res := make([]*model.AuditEntry, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// --- queries ---

const auditColumnList = `id, action, entity_type, entity_id, actor, metadata, created_at`

const auditListByEntityQuery = `
		SELECT ` + auditColumnList + `
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
