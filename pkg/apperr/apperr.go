package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel outcomes every layer maps its failures onto. Handlers translate
// them to HTTP statuses; the socket layer decides refusal vs. silent no-op.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrUnavailable     = errors.New("storage unavailable")
)

// Wrap annotates a sentinel with context while keeping errors.Is working.
func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Status maps a taxonomy error to its HTTP status code. Unknown errors are
// treated as internal so distinct outcomes are never collapsed upstream.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
