package session

import "errors"

// ErrDimensionMismatch is returned by Tick for a descriptor whose length
// differs from the configured dimension.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Operation names used when wrapping errors.
const (
	opTick    = "session.tick"
	opConfirm = "session.confirm"
	opCorrect = "session.correct"
	opEnroll  = "session.enroll"
	opStep    = "session.step"
)
