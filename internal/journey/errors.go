package journey

import "errors"

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrValidation        = errors.New("validation error")
	// ErrConflict means the session changed since it was read.
	ErrConflict = errors.New("session modified concurrently")
)
