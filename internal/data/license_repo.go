package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/caretrack/licensure/internal/data/database"
	"github.com/caretrack/licensure/internal/data/pgxutil"
	"github.com/caretrack/licensure/internal/domain/model"
)

var (
	// ErrLicenseNotFound is returned when a license is not found.
	ErrLicenseNotFound = errors.New("license not found")
	// ErrLicenseExists is returned when a license with the same person,
	// jurisdiction, number, and credential type already exists.
	ErrLicenseExists = errors.New("license already exists")
)

// LicenseRepo provides database operations for licenses.
type LicenseRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewLicenseRepo creates a new LicenseRepo with the real clock.
func NewLicenseRepo(db *sql.DB) *LicenseRepo {
	return &LicenseRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewLicenseRepoWithTimeProvider creates a LicenseRepo with a custom time provider (useful for tests).
func NewLicenseRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *LicenseRepo {
	return &LicenseRepo{DB: db, timeProvider: tp}
}

// Create inserts a new license. Status starts as unknown until the first
// verification is recorded.
func (r *LicenseRepo) Create(ctx context.Context, req *model.CreateLicenseRequest) (*model.License, error) {
	if req == nil {
		return nil, errors.New("create license request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.License
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO licenses (
				person_id, jurisdiction, number, credential_type, status, expiration,
				first_name, last_name, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $9
			) RETURNING `+licenseColumnList,
			strings.TrimSpace(req.PersonID),
			model.NormalizeJurisdiction(req.Jurisdiction),
			strings.TrimSpace(req.Number),
			req.CredentialType,
			model.LicenseStatusUnknown,
			req.Expiration,
			strings.TrimSpace(req.FirstName),
			strings.TrimSpace(req.LastName),
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.License])
		return err
	}); err != nil {
		return nil, r.mapWriteErr(err, false)
	}
	return &out, nil
}

// GetByID retrieves a license by ID.
func (r *LicenseRepo) GetByID(ctx context.Context, id string) (*model.License, error) {
	var out model.License
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, licenseGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.License])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("failed to get license by ID: %w", err)
	}
	return &out, nil
}

// List retrieves licenses with optional filters and sorting.
func (r *LicenseRepo) List(ctx context.Context, opts model.LicenseListOptions) ([]*model.License, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	query, args := database.BuildListQuery(r.buildListOptions(opts, limit, offset))

	var rowsOut []model.License
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.License])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}

	res := make([]*model.License, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update applies a partial update to a license.
func (r *LicenseRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateLicenseRequest,
) (*model.License, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.License
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, licenseGetByIDQuery, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.License])
			return e
		}
		args = append(args, id)
		query := "UPDATE licenses SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + licenseColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.License])
		return e
	})
	if err != nil {
		return nil, r.mapWriteErr(err, true)
	}
	return &out, nil
}

// Delete removes a license by ID. Callers enforce the history rule: a license
// with recorded verifications is archived, not deleted.
func (r *LicenseRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM licenses WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete license: %w", err)
	}
	return rows > 0, nil
}

// FindDueForVerification selects non-archived licenses never verified or last
// verified before the cutoff, oldest first.
func (r *LicenseRepo) FindDueForVerification(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*model.License, error) {
	if limit <= 0 {
		limit = 500
	}

	var rowsOut []model.License
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, licenseFindDueQuery, cutoff.UTC(), limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.License])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to find due licenses: %w", err)
	}

	res := make([]*model.License, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// ApplyProjection writes the verification-derived fields onto a license row.
// A projection without an expiration leaves the stored expiration untouched,
// and one without a synced snapshot leaves synced_data alone.
func (r *LicenseRepo) ApplyProjection(
	ctx context.Context,
	licenseID string,
	p model.LicenseProjection,
) error {
	setParts := []string{"status = $1", "last_verified_at = $2"}
	args := []any{p.Status, p.LastVerifiedAt.UTC()}
	nextIdx := func() int { return len(args) + 1 }

	if p.Expiration != nil {
		setParts = append(setParts, fmt.Sprintf("expiration = $%d", nextIdx()))
		args = append(args, p.Expiration.UTC())
	}
	if len(p.SyncedData) > 0 {
		setParts = append(setParts, fmt.Sprintf("synced_data = $%d", nextIdx()))
		args = append(args, []byte(p.SyncedData))
		setParts = append(setParts, fmt.Sprintf("synced_at = $%d", nextIdx()))
		args = append(args, p.SyncedAt.UTC())
	}

	args = append(args, licenseID)
	query := "UPDATE licenses SET " + strings.Join(setParts, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args))

	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply projection: %w", err)
	}
	if rows == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

// buildUpdateClause builds the SQL SET clause and args for a partial update.
func (r *LicenseRepo) buildUpdateClause(req model.UpdateLicenseRequest) (string, []any) {
	setParts := make([]string, 0, 6)
	args := make([]any, 0, 6)
	nextIdx := func() int { return len(args) + 1 }

	if req.Number != nil {
		setParts = append(setParts, fmt.Sprintf("number = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Number))
	}
	if req.CredentialType != nil {
		setParts = append(setParts, fmt.Sprintf("credential_type = $%d", nextIdx()))
		args = append(args, *req.CredentialType)
	}
	if req.FirstName != nil {
		setParts = append(setParts, fmt.Sprintf("first_name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.FirstName))
	}
	if req.LastName != nil {
		setParts = append(setParts, fmt.Sprintf("last_name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.LastName))
	}
	if req.Expiration != nil {
		setParts = append(setParts, fmt.Sprintf("expiration = $%d", nextIdx()))
		args = append(args, req.Expiration.UTC())
	}
	if req.Archived != nil {
		setParts = append(setParts, fmt.Sprintf("archived = $%d", nextIdx()))
		args = append(args, *req.Archived)
	}

	if len(setParts) == 0 {
		return "", nil
	}
	return strings.Join(setParts, ", "), args
}

func (r *LicenseRepo) buildListOptions(
	opts model.LicenseListOptions,
	limit, offset int,
) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(licenseColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.PersonID != nil && strings.TrimSpace(*opts.PersonID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("person_id", database.Equal, strings.TrimSpace(*opts.PersonID)),
		))
	}
	if opts.Jurisdiction != nil && strings.TrimSpace(*opts.Jurisdiction) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("jurisdiction", database.Equal, model.NormalizeJurisdiction(*opts.Jurisdiction)),
		))
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, *opts.Status),
		))
	}
	if opts.Archived != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("archived", database.Equal, *opts.Archived),
		))
	}

	sortCol, sortDir := validateLicenseSort(opts.Sort, opts.Dir)
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	return database.NewListQueryOptions("licenses", queryOpts...)
}

// validateLicenseSort returns a safe sort column and direction.
func validateLicenseSort(sort, dir string) (string, string) {
	sortCol := "created_at"
	sortDir := sortDirDesc

	if sort != "" {
		allowedSorts := map[string]string{
			"created_at":       "created_at",
			"expiration":       "expiration",
			"last_verified_at": "last_verified_at",
			"jurisdiction":     "jurisdiction",
		}
		if valid, ok := allowedSorts[strings.ToLower(strings.TrimSpace(sort))]; ok {
			sortCol = valid
		}
	}
	if dir != "" {
		allowedDirs := map[string]string{
			"asc":  sortDirAsc,
			"desc": sortDirDesc,
		}
		if valid, ok := allowedDirs[strings.ToLower(strings.TrimSpace(dir))]; ok {
			sortDir = valid
		}
	}
	return sortCol, sortDir
}

func (r *LicenseRepo) mapWriteErr(err error, includeNotFound bool) error {
	if err == nil {
		return nil
	}
	if includeNotFound && errors.Is(err, pgx.ErrNoRows) {
		return ErrLicenseNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrLicenseExists
	}
	return err
}

// --- queries ---

const licenseColumnList = `id, person_id, jurisdiction, number, credential_type, status, expiration,
		first_name, last_name, archived, synced_data, synced_at, last_verified_at, created_at, updated_at`

const (
	licenseGetByIDQuery = `
		SELECT ` + licenseColumnList + `
		FROM licenses
		WHERE id = $1`

	licenseFindDueQuery = `
		SELECT ` + licenseColumnList + `
		FROM licenses
		WHERE NOT archived
		  AND (last_verified_at IS NULL OR last_verified_at < $1)
		ORDER BY last_verified_at ASC NULLS FIRST
		LIMIT $2`
)

// licenseColumns returns the column list for dynamically built queries.
func licenseColumns() []string {
	return []string{
		"id",
		"person_id",
		"jurisdiction",
		"number",
		"credential_type",
		"status",
		"expiration",
		"first_name",
		"last_name",
		"archived",
		"synced_data",
		"synced_at",
		"last_verified_at",
		"created_at",
		"updated_at",
	}
}

const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"
)
