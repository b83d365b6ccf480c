package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/licensure/internal/data/pgxutil"
	"github.com/caretrack/licensure/internal/domain/model"
)

// ErrJobRunNotFound is returned when a job run is not found.
var ErrJobRunNotFound = errors.New("job run not found")

// JobRunRepo persists verification run lifecycle records.
type JobRunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobRunRepo creates a new JobRunRepo with the real clock.
func NewJobRunRepo(db *sql.DB) *JobRunRepo {
	return &JobRunRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewJobRunRepoWithTimeProvider creates a JobRunRepo with a custom time provider.
func NewJobRunRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobRunRepo {
	return &JobRunRepo{DB: db, timeProvider: tp}
}

// Create inserts a new run in pending state.
func (r *JobRunRepo) Create(ctx context.Context) (*model.JobRun, error) {
	var out model.JobRun
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO job_runs (status, started_at)
			VALUES ($1, $2)
			RETURNING `+jobRunColumnList,
			model.JobRunStatusPending,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobRun])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create job run: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a job run by ID.
func (r *JobRunRepo) GetByID(ctx context.Context, id string) (*model.JobRun, error) {
	var out model.JobRun
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, jobRunGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobRun])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobRunNotFound
		}
		return nil, fmt.Errorf("failed to get job run by ID: %w", err)
	}
	return &out, nil
}

// List retrieves job runs, newest first.
func (r *JobRunRepo) List(ctx context.Context, limit, offset int) ([]*model.JobRun, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rowsOut []model.JobRun
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, jobRunListQuery, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobRun])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}

	res := make([]*model.JobRun, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// MarkRunning transitions a pending run to running.
func (r *JobRunRepo) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE job_runs
			SET status = $1, started_at = $2
			WHERE id = $3 AND status = $4`,
			model.JobRunStatusRunning,
			startedAt.UTC(),
			id,
			model.JobRunStatusPending,
		)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job run running: %w", err)
	}
	if rows == 0 {
		return ErrJobRunNotFound
	}
	return nil
}

// Finalize writes the terminal status and counters. Guarded so a finished run
// is never rewritten.
func (r *JobRunRepo) Finalize(ctx context.Context, id string, params model.FinalizeJobRunParams) error {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE job_runs
			SET status = $1, processed = $2, auto_verified = $3, tasks_created = $4,
			    errors = $5, last_error = $6, completed_at = $7
			WHERE id = $8 AND status IN ($9, $10)`,
			params.Status,
			params.Processed,
			params.AutoVerified,
			params.TasksCreated,
			params.Errors,
			params.LastError,
			params.CompletedAt.UTC(),
			id,
			model.JobRunStatusPending,
			model.JobRunStatusRunning,
		)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to finalize job run: %w", err)
	}
	if rows == 0 {
		return ErrJobRunNotFound
	}
	return nil
}

// --- queries ---

const jobRunColumnList = `id, status, processed, auto_verified, tasks_created, errors, last_error,
		started_at, completed_at, created_at`

const (
	jobRunGetByIDQuery = `
		SELECT ` + jobRunColumnList + `
		FROM job_runs
		WHERE id = $1`

	jobRunListQuery = `
		SELECT ` + jobRunColumnList + `
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`
)
