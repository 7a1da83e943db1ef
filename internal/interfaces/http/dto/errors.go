package dto

import (
	"errors"
	"net/http"

	"github.com/clinic-ledger/backend/internal/domain/shared"
)

// Error codes produced by the HTTP layer itself. Domain errors keep their own
// codes (ENTRY_NOT_FOUND, ALREADY_FINALIZED, ...).
const (
	ErrCodeInternal      = "ERR_INTERNAL"
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeUnauthorized  = "ERR_UNAUTHORIZED"
	ErrCodeForbidden     = "ERR_FORBIDDEN"
	ErrCodeTokenExpired  = "ERR_TOKEN_EXPIRED"
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeConflict      = "ERR_CONFLICT"
	ErrCodeTooLarge      = "ERR_REQUEST_TOO_LARGE"
	ErrCodeTickRunning   = "ERR_TICK_IN_PROGRESS"
	ErrCodeUnavailable   = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeNotConfigured = "ERR_NOT_CONFIGURED"
)

// ErrorCodeHTTPStatus maps HTTP-layer error codes to status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,
	ErrCodeTokenExpired:  http.StatusUnauthorized,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeTickRunning:   http.StatusConflict,
	ErrCodeUnavailable:   http.StatusServiceUnavailable,
	ErrCodeNotConfigured: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// kindHTTPStatus maps domain error kinds to status codes. Domain validation
// failures are 422 to keep them apart from malformed requests (400).
var kindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation: http.StatusUnprocessableEntity,
	shared.KindNotFound:   http.StatusNotFound,
	shared.KindConflict:   http.StatusConflict,
	shared.KindDependency: http.StatusServiceUnavailable,
}

// StatusForKind returns the HTTP status for a domain error kind
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError converts an error into a status code and error body. Domain errors
// keep their code and message; dependency failures never expose their cause.
func FromError(err error) (int, ErrorInfo) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorInfo{
			Code:    ErrCodeInternal,
			Message: "An unexpected error occurred",
		}
	}
	return StatusForKind(domainErr.Kind), ErrorInfo{
		Code:    domainErr.Code,
		Message: domainErr.Message,
	}
}
