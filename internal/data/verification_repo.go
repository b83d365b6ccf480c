package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/licensure/internal/data/database"
	"github.com/caretrack/licensure/internal/data/pgxutil"
	"github.com/caretrack/licensure/internal/domain/model"
)

// ErrVerificationNotFound is returned when a verification record is not found.
var ErrVerificationNotFound = errors.New("verification not found")

// VerificationRepo provides database operations for the verification history.
// The table is append-only: rows are inserted and read, never updated or
// deleted.
type VerificationRepo struct {
	DB *sql.DB
}

// NewVerificationRepo creates a new VerificationRepo.
func NewVerificationRepo(db *sql.DB) *VerificationRepo {
	return &VerificationRepo{DB: db}
}

// Create appends one verification event.
func (r *VerificationRepo) Create(
	ctx context.Context,
	req *model.CreateVerificationRequest,
) (*model.Verification, error) {
	if req == nil {
		return nil, errors.New("create verification request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Verification
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO verifications (
				license_id, source_id, run_type, result, status_found, expiration_found,
				unencumbered, notes, raw_response, verified_by, verified_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
			) RETURNING `+verificationColumnList,
			req.LicenseID,
			req.SourceID,
			req.RunType,
			req.Result,
			req.StatusFound,
			req.ExpirationFound,
			req.Unencumbered,
			req.Notes,
			rawJSONArg(req.RawResponse),
			req.VerifiedBy,
			req.VerifiedAt.UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Verification])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a verification by ID.
func (r *VerificationRepo) GetByID(ctx context.Context, id string) (*model.Verification, error) {
	var out model.Verification
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, verificationGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Verification])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to get verification by ID: %w", err)
	}
	return &out, nil
}

// ListByLicense retrieves verification history, newest first.
func (r *VerificationRepo) ListByLicense(
	ctx context.Context,
	opts model.VerificationListOptions,
) ([]*model.Verification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(verificationColumns()...),
		database.WithOrderBy("verified_at", sortDirDesc),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.LicenseID != nil && *opts.LicenseID != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("license_id", database.Equal, *opts.LicenseID),
		))
	}
	if opts.Result != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("result", database.Equal, *opts.Result),
		))
	}
	if opts.RunType != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("run_type", database.Equal, *opts.RunType),
		))
	}

	query, args := database.BuildListQuery(
		database.NewListQueryOptions("verifications", queryOpts...),
	)

	var rowsOut []model.Verification
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Verification])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}

	res := make([]*model.Verification, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// CountByLicense reports how many verification events a license has.
func (r *VerificationRepo) CountByLicense(ctx context.Context, licenseID string) (int, error) {
	var count int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM verifications WHERE license_id = $1`, licenseID,
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count verifications: %w", err)
	}
	return count, nil
}

// rawJSONArg converts an optional raw JSON payload into a driver argument,
// passing NULL for an empty payload.
func rawJSONArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// --- queries ---

const verificationColumnList = `id, license_id, source_id, run_type, result, status_found,
		expiration_found, unencumbered, notes, raw_response, verified_by, verified_at, created_at`

const verificationGetByIDQuery = `
		SELECT ` + verificationColumnList + `
		FROM verifications
		WHERE id = $1`

func verificationColumns() []string {
	return []string{
		"id",
		"license_id",
		"source_id",
		"run_type",
		"result",
		"status_found",
		"expiration_found",
		"unencumbered",
		"notes",
		"raw_response",
		"verified_by",
		"verified_at",
		"created_at",
	}
}
