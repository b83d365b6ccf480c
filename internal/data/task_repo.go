package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data/database"
	"github.com/caretrack/licensure/internal/data/pgxutil"
	"github.com/caretrack/licensure/internal/domain/model"
)

var (
	// ErrTaskNotFound is returned when a verification task is not found.
	ErrTaskNotFound = errors.New("verification task not found")
	// ErrOpenTaskExists is returned when an insert would create a second open
	// task for the same (license, source) pair.
	ErrOpenTaskExists = errors.New("open task already exists for license and source")
)

// TaskRepo provides database operations for manual verification tasks. The
// partial unique index on open tasks backs the one-open-task rule.
type TaskRepo struct {
	DB *sql.DB
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{DB: db}
}

// Create inserts a new pending task.
func (r *TaskRepo) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.VerificationTask, error) {
	if req == nil {
		return nil, errors.New("create task request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.VerificationTask
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO verification_tasks (
				license_id, source_id, status, priority, reason, due_date
			) VALUES (
				$1, $2, $3, $4, $5, $6
			) RETURNING `+taskColumnList,
			req.LicenseID,
			req.SourceID,
			model.TaskStatusPending,
			req.Priority,
			strings.TrimSpace(req.Reason),
			req.DueDate.UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.VerificationTask])
		return err
	}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrOpenTaskExists
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*model.VerificationTask, error) {
	var out model.VerificationTask
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, taskGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.VerificationTask])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task by ID: %w", err)
	}
	return &out, nil
}

// List retrieves tasks with optional filters, most urgent first.
func (r *TaskRepo) List(ctx context.Context, opts model.TaskListOptions) ([]*model.VerificationTask, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(taskColumns()...),
		database.WithOrderBy("priority", sortDirDesc),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.LicenseID != nil && *opts.LicenseID != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("license_id", database.Equal, *opts.LicenseID),
		))
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, *opts.Status),
		))
	}
	if opts.Assignee != nil && *opts.Assignee != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("assignee", database.Equal, *opts.Assignee),
		))
	}

	query, args := database.BuildListQuery(
		database.NewListQueryOptions("verification_tasks", queryOpts...),
	)

	var rowsOut []model.VerificationTask
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.VerificationTask])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	res := make([]*model.VerificationTask, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update applies a partial update to a task.
func (r *TaskRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateTaskRequest,
) (*model.VerificationTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.VerificationTask
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, taskGetByIDQuery, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.VerificationTask])
			return e
		}
		args = append(args, id)
		query := "UPDATE verification_tasks SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + taskColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.VerificationTask])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &out, nil
}

// FindOpen returns the open task for a (license, source) pair, or nil when
// none exists. A nil sourceID matches tasks without a source.
func (r *TaskRepo) FindOpen(
	ctx context.Context,
	licenseID string,
	sourceID *string,
) (*model.VerificationTask, error) {
	var out model.VerificationTask
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, taskFindOpenQuery, licenseID, sourceID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.VerificationTask])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open task: %w", err)
	}
	return &out, nil
}

// Refresh rewrites the due date, priority, and reason of an existing open task.
func (r *TaskRepo) Refresh(
	ctx context.Context,
	id string,
	params core.RefreshTaskParams,
) (*model.VerificationTask, error) {
	var out model.VerificationTask
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE verification_tasks
			SET priority = $1, reason = $2, due_date = $3
			WHERE id = $4
			RETURNING `+taskColumnList,
			params.Priority,
			strings.TrimSpace(params.Reason),
			params.DueDate.UTC(),
			id,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.VerificationTask])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to refresh task: %w", err)
	}
	return &out, nil
}

// buildUpdateClause builds the SQL SET clause and args for a partial update.
func (r *TaskRepo) buildUpdateClause(req model.UpdateTaskRequest) (string, []any) {
	setParts := make([]string, 0, 5)
	args := make([]any, 0, 5)
	nextIdx := func() int { return len(args) + 1 }

	if req.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", nextIdx()))
		args = append(args, *req.Status)
	}
	if req.Priority != nil {
		setParts = append(setParts, fmt.Sprintf("priority = $%d", nextIdx()))
		args = append(args, *req.Priority)
	}
	if req.Reason != nil {
		setParts = append(setParts, fmt.Sprintf("reason = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Reason))
	}
	if req.DueDate != nil {
		setParts = append(setParts, fmt.Sprintf("due_date = $%d", nextIdx()))
		args = append(args, req.DueDate.UTC())
	}
	if req.Assignee != nil {
		if strings.TrimSpace(*req.Assignee) == "" {
			setParts = append(setParts, "assignee = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("assignee = $%d", nextIdx()))
			args = append(args, *req.Assignee)
		}
	}

	if len(setParts) == 0 {
		return "", nil
	}
	return strings.Join(setParts, ", "), args
}

// --- queries ---

const taskColumnList = `id, license_id, source_id, status, priority, reason, due_date, assignee,
		created_at, updated_at`

const (
	taskGetByIDQuery = `
		SELECT ` + taskColumnList + `
		FROM verification_tasks
		WHERE id = $1`

	taskFindOpenQuery = `
		SELECT ` + taskColumnList + `
		FROM verification_tasks
		WHERE license_id = $1
		  AND COALESCE(source_id, '') = COALESCE($2, '')
		  AND status IN ('pending', 'in_progress')`
)

func taskColumns() []string {
	return []string{
		"id",
		"license_id",
		"source_id",
		"status",
		"priority",
		"reason",
		"due_date",
		"assignee",
		"created_at",
		"updated_at",
	}
}
