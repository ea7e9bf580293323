package apperr

import (
	"errors"
	"net/http"
)

// StatusCode maps an error kind to the HTTP status returned by the control surface.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrInvariantViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrLocationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
