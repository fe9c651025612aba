package repository

import (
	"time"

	"github.com/okian/visage/pkg/logger"
)

// Option applies a configuration option to the Descriptors store.
type Option func(*Descriptors)

// WithDimension rejects descriptors whose length differs from dim.
// Zero disables the check.
func WithDimension(dim int) Option {
	return func(s *Descriptors) {
		if dim >= 0 {
			s.dim = dim
		}
	}
}

// WithClock overrides the clock used for DateAdded.
func WithClock(now func() time.Time) Option {
	return func(s *Descriptors) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how person ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Descriptors) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Descriptors) {
		if l != nil {
			s.logger = l
		}
	}
}
