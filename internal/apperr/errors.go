package apperr

import "errors"

// Error kinds returned by the tracking core. Callers match them with errors.Is,
// the concrete error always carries more context via %w wrapping.
var (
	// ErrLocationUnavailable - location capability missing, permission denied or provider failure.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrInvalidState - the operation is not allowed in the current session/workout state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvariantViolation - the operation would break a data invariant (last set removal, negative values).
	ErrInvariantViolation = errors.New("invariant violation")
	ErrNotFound           = errors.New("not found")
)
