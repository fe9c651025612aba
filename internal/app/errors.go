package service

import "errors"

// ErrNotStarted is returned by operations that need the frame worker.
var ErrNotStarted = errors.New("service not started")
