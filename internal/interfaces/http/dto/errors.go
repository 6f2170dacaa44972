package dto

import (
	"net/http"

	"github.com/propledger/backend/internal/domain/shared"
)

// Error codes produced by the HTTP layer itself. Domain errors keep their own
// codes (VALIDATION_ERROR, DUPLICATE_REFERENCE, INVALID_STATE, ...).
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = shared.CodeValidation
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeInvalidID    = "INVALID_ID"
	ErrCodeNotFound     = shared.CodeNotFound
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "TOKEN_INVALID"
	ErrCodeBodyTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTimeout      = "REQUEST_TIMEOUT"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes. An overpayment
// reaching the boundary means the allocation walk broke its own cap, so it is
// reported as a server error.
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:          http.StatusBadRequest,
	shared.KindInvalidState:        http.StatusUnprocessableEntity,
	shared.KindOverpayment:         http.StatusInternalServerError,
	shared.KindNotFound:            http.StatusNotFound,
	shared.KindConflict:            http.StatusConflict,
	shared.KindConcurrencyConflict: http.StatusConflict,
}

// ErrorCodeHTTPStatus maps the HTTP layer's own codes to status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeInvalidID:    http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:      http.StatusGatewayTimeout,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorStatus returns the HTTP status for a domain error
func DomainErrorStatus(err *shared.DomainError) int {
	if status, ok := KindHTTPStatus[err.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
