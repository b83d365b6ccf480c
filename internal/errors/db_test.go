package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.Nil(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	timeout := MapDBError(context.DeadlineExceeded)
	assert.True(t, IsTimeout(timeout))
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	canceled := MapDBError(fmt.Errorf("query: %w", context.Canceled))
	assert.True(t, IsCanceled(canceled))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMapDBError_UnrecognizedPassthrough(t *testing.T) {
	plain := errors.New("network down")
	assert.Same(t, plain, MapDBError(plain))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
		wantMsg   string
	}{
		{
			name: "license duplicate with detail",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "licenses_person_id_jurisdiction_number_credential_type_key",
				Detail:         "Key (person_id, jurisdiction, number, credential_type)=(p1, OH, RN1, RN) already exists.",
			},
			wantField: "person_id, jurisdiction, number, credential_type",
			wantMsg:   "This license is already on file for this person.",
		},
		{
			name: "open task duplicate",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "uniq_open_task_per_license_source",
			},
			wantMsg: "An open verification task already exists for this license and source.",
		},
		{
			name: "column name metadata preferred",
			pgErr: &pgconn.PgError{
				Code:       pgerrcode.UniqueViolation,
				ColumnName: "number",
				Detail:     "Key (something_else)=(x) already exists.",
			},
			wantField: "number",
			wantMsg:   "This record already exists.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			require.True(t, IsConflict(err))
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.ErrorIs(t, err, tt.pgErr)
		})
	}
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name    string
		pgErr   *pgconn.PgError
		wantMsg string
	}{
		{
			name: "parent still referenced",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (id)=(abc) is still referenced from table "verifications".`,
			},
			wantMsg: "Cannot delete because this record is referenced by verification record.",
		},
		{
			name: "missing parent",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (license_id)=(abc) is not present in table "licenses".`,
			},
			wantMsg: "The referenced license does not exist.",
		},
		{
			name: "table metadata fallback",
			pgErr: &pgconn.PgError{
				Code:      pgerrcode.ForeignKeyViolation,
				TableName: "verification_tasks",
			},
			wantMsg: "Cannot complete the operation because this record is in use by verification task.",
		},
		{
			name:    "bare violation",
			pgErr:   &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
			wantMsg: "Cannot complete the operation because this record is in use.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			require.True(t, IsForeignKey(err))
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestMapDBError_ValidationViolations(t *testing.T) {
	notNull := MapDBError(&pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "reason",
	})
	require.True(t, IsValidation(notNull))
	assert.Equal(t, "reason", GetField(notNull))

	check := MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
	require.True(t, IsValidation(check))
	assert.Empty(t, GetField(check))
}

func TestMapDBError_OtherPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	err := MapDBError(pgErr)
	assert.True(t, IsInternal(err))
	assert.ErrorIs(t, err, pgErr)
}

func TestTableDisplayName(t *testing.T) {
	assert.Equal(t, "license", tableDisplayName("licenses"))
	assert.Equal(t, "verification run", tableDisplayName(" Job_Runs "))
	assert.Equal(t, "audit entry", tableDisplayName("audit_log"))
	assert.Equal(t, "some other", tableDisplayName("some_other"))
}
