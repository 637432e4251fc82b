package commonality

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrLocked     = errors.New("dimensions are locked")
	ErrValidation = errors.New("validation error")
	// ErrConflict means the analysis changed since it was read.
	ErrConflict = errors.New("analysis modified concurrently")
)
