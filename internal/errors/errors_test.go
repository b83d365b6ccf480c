package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	plain := NotFound("license not found")
	assert.Equal(t, "license not found", plain.Error())

	cause := errors.New("row missing")
	wrapped := Wrap(cause, ErrCodeNotFound, "license not found")
	assert.Equal(t, "license not found: row missing", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(cause, ErrCodeInternal, "save failed")
	assert.ErrorIs(t, wrapped, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("outer: %w", wrapped), &appErr)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{"not found", NotFound("gone"), ErrCodeNotFound, "gone"},
		{"not foundf", NotFoundf("license %s gone", "lic-1"), ErrCodeNotFound, "license lic-1 gone"},
		{"conflict", Conflict("dup"), ErrCodeConflict, "dup"},
		{"conflictf", Conflictf("dup %d", 2), ErrCodeConflict, "dup 2"},
		{"validation", Validation("bad"), ErrCodeValidation, "bad"},
		{"validationf", Validationf("bad %s", "number"), ErrCodeValidation, "bad number"},
		{"foreign key", ForeignKey("in use"), ErrCodeForeignKey, "in use"},
		{"internal", Internal("oops"), ErrCodeInternal, "oops"},
		{"internalf", Internalf("oops %d", 3), ErrCodeInternal, "oops 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.msg, tt.err.Message)
			assert.Nil(t, tt.err.Cause)
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("jurisdiction", "unknown jurisdiction")
	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "jurisdiction", err.Field)
	assert.Equal(t, "jurisdiction", GetField(err))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found match", NotFound("x"), IsNotFound, true},
		{"not found mismatch", Conflict("x"), IsNotFound, false},
		{"conflict match", Conflict("x"), IsConflict, true},
		{"validation match", Validation("x"), IsValidation, true},
		{"foreign key match", ForeignKey("x"), IsForeignKey, true},
		{"internal match", Internal("x"), IsInternal, true},
		{"timeout match", Wrap(errors.New("x"), ErrCodeTimeout, "t"), IsTimeout, true},
		{"canceled match", Wrap(errors.New("x"), ErrCodeCanceled, "c"), IsCanceled, true},
		{"plain error", errors.New("x"), IsNotFound, false},
		{"nil error", nil, IsNotFound, false},
		{"wrapped once more", fmt.Errorf("outer: %w", NotFound("x")), IsNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, GetCode(Conflict("dup")))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}
