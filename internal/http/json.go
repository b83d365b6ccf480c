// Package httpx provides the JSON API handlers for the license verification
// service.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caretrack/licensure/internal/core"
	apperrors "github.com/caretrack/licensure/internal/errors"
)

// DecodeJSON decodes the request body into dst. On failure it writes a 400
// response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Client is gone; nothing left to do.
		return
	}
}

// ErrorParams groups the pieces of a JSON error response.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteServiceError maps a service-layer error onto the right HTTP status.
// Policy denials become 403; typed application errors map by code; anything
// else is a 500 with the message withheld.
func WriteServiceError(w http.ResponseWriter, err error) {
	var policyErr *core.PolicyError
	if errors.As(err, &policyErr) {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		return
	}

	code := apperrors.GetCode(err)
	status, ok := statusForCode[code]
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal_error",
			Err:     errors.New("an unexpected error occurred"),
		})
		return
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: err})
}

var statusForCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeNotFound:   http.StatusNotFound,
	apperrors.ErrCodeConflict:   http.StatusConflict,
	apperrors.ErrCodeValidation: http.StatusBadRequest,
	apperrors.ErrCodeForeignKey: http.StatusConflict,
	apperrors.ErrCodeTimeout:    http.StatusGatewayTimeout,
	apperrors.ErrCodeCanceled:   http.StatusServiceUnavailable,
}
