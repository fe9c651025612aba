// Package errs holds the error taxonomy shared across layers.
//
// Kinds are sentinels matched with errors.Is. Callers attach the operation
// that failed with Wrap or New so logs read as "op: kind: cause".
package errs

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrConfiguration marks malformed persisted data or invalid settings.
	// Recovered locally by falling back to defaults.
	ErrConfiguration = errors.New("configuration error")

	// ErrInput marks a request rejected at the boundary. No state is mutated.
	ErrInput = errors.New("invalid input")

	// ErrResourceUnavailable marks a missing inference capability or frame source.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrNoOpenResult is returned when feedback arrives with no recognition awaiting it.
	ErrNoOpenResult = errors.New("no recognition awaiting feedback")
)

// Error annotates a kind with the failing operation and an optional cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Kind == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New returns an error of the given kind for op.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap annotates err with op and kind. Returns nil when err is nil.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Input is shorthand for an ErrInput with a human readable reason.
func Input(op, reason string) error {
	return &Error{Op: op, Kind: ErrInput, Err: errors.New(reason)}
}

// IsInput reports whether err is an input error.
func IsInput(err error) bool { return errors.Is(err, ErrInput) }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsUnavailable reports whether err is a resource-unavailable error.
func IsUnavailable(err error) bool { return errors.Is(err, ErrResourceUnavailable) }
