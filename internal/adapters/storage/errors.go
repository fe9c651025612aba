package storage

import "errors"

// Sentinel errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidKey     = errors.New("invalid storage key")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrClosed         = errors.New("storage closed")
)
