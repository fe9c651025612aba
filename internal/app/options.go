package service

import (
	"time"

	"github.com/okian/visage/internal/adapters/storage"
	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/internal/domain/session"
	"github.com/okian/visage/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend sets where state is persisted. Defaults to an in-memory backend.
func WithBackend(b storage.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithSettings seeds the operator settings used until persisted ones exist.
func WithSettings(settings model.Settings) Option {
	return func(s *Service) {
		s.seed = settings
	}
}

// WithDescriptorDim sets the expected descriptor length. Zero disables the check.
func WithDescriptorDim(dim int) Option {
	return func(s *Service) {
		if dim >= 0 {
			s.descriptorDim = dim
		}
	}
}

// WithQueueSize sets the maximum size of the frame queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many recent frame ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistoryLimits sets the default and maximum feedback history page.
func WithHistoryLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 && maxLimit >= def {
			s.historyLimit = def
			s.maxHistoryLimit = maxLimit
		}
	}
}

// WithFaceModel runs an in-process capture loop that pulls frames from
// source and detects faces with fm every interval.
func WithFaceModel(source session.FrameSource, fm session.FaceModel, interval time.Duration) Option {
	return func(s *Service) {
		s.frameSource = source
		s.faceModel = fm
		s.captureInterval = interval
		s.capture = true
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
