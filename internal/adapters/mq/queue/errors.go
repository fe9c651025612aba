package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrFull   = errors.New("frame queue full")
	ErrClosed = errors.New("frame queue closed")
)
