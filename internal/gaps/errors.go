package gaps

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrNotLocked  = errors.New("dimensions are not locked")
	ErrValidation = errors.New("validation error")
)
