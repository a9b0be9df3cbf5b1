package utils

import "errors"

// Error kinds shared by services and handlers. Wrap them with fmt.Errorf
// and %w so callers can branch with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
)
