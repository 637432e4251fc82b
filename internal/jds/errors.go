package jds

import "errors"

var (
	ErrNotFound   = errors.New("job posting not found")
	ErrValidation = errors.New("validation error")
)
