package repository

import "errors"

// Sentinel kinds for descriptor store errors.
var (
	ErrEmptyName         = errors.New("name must not be empty")
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")
	ErrEmptyDescriptor   = errors.New("descriptor must not be empty")
)
