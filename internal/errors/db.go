package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// reKeyField extracts the column list from a unique violation detail:
	// "Key (field)=(value) already exists.".
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// reReferencedFrom matches parent deletion details:
	// "... is still referenced from table ...".
	reReferencedFrom = regexp.MustCompile(`is still referenced from table "?([^"]+)"?`)
	// reNotPresent matches missing-parent details:
	// "... is not present in table ...".
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
)

// MapDBError translates low-level database failures into AppError values:
// pgx.ErrNoRows becomes NotFound, unique violations become Conflict, foreign
// key violations become ForeignKey, check and not-null violations become
// Validation, and context deadline/cancellation surface as Timeout/Canceled.
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(err, ErrCodeNotFound, "Resource not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return mapUniqueViolation(pgErr)
	case pgerrcode.ForeignKeyViolation:
		return mapForeignKeyViolation(pgErr)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return mapValidationViolation(pgErr)
	default:
		return Wrap(pgErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

func mapUniqueViolation(pgErr *pgconn.PgError) error {
	field := pgErr.ColumnName

	// Detail carries the full column list for multi-column constraints, which
	// ColumnName does not.
	if field == "" && pgErr.Detail != "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			field = m[1]
		}
	}

	message := "This record already exists."
	if pgErr.ConstraintName == "uniq_open_task_per_license_source" {
		message = "An open verification task already exists for this license and source."
	} else if strings.HasPrefix(pgErr.ConstraintName, "licenses_") {
		message = "This license is already on file for this person."
	}

	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Field:   field,
		Cause:   pgErr,
	}
}

func mapForeignKeyViolation(pgErr *pgconn.PgError) error {
	var message string

	if pgErr.Detail != "" {
		if m := reReferencedFrom.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			message = "Cannot delete because this record is referenced by " + tableDisplayName(m[1]) + "."
		} else if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			message = "The referenced " + tableDisplayName(m[1]) + " does not exist."
		}
	}
	if message == "" && pgErr.TableName != "" {
		message = "Cannot complete the operation because this record is in use by " +
			tableDisplayName(pgErr.TableName) + "."
	}
	if message == "" {
		message = "Cannot complete the operation because this record is in use."
	}

	return Wrap(pgErr, ErrCodeForeignKey, message)
}

func mapValidationViolation(pgErr *pgconn.PgError) error {
	message := "Invalid data. Please check your input."
	if pgErr.Code == pgerrcode.NotNullViolation {
		message = "Required field is missing."
	}
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   pgErr.ColumnName,
		Cause:   pgErr,
	}
}

// tableDisplayName maps table names to the labels shown to callers.
func tableDisplayName(tableName string) string {
	switch strings.ToLower(strings.TrimSpace(tableName)) {
	case "licenses":
		return "license"
	case "verifications":
		return "verification record"
	case "verification_tasks":
		return "verification task"
	case "job_runs":
		return "verification run"
	case "audit_log":
		return "audit entry"
	default:
		return strings.ReplaceAll(strings.ToLower(tableName), "_", " ")
	}
}
