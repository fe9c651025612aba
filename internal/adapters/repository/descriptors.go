package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/visage/internal/adapters/storage"
	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/pkg/errs"
	"github.com/okian/visage/pkg/logger"
	"github.com/okian/visage/pkg/metrics"
)

// Descriptors is the persisted descriptor store. Every mutation is written
// through to the backend before it returns.
type Descriptors struct {
	mu      sync.RWMutex
	backend storage.Backend
	people  []model.Person
	dim     int

	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

var _ Store = (*Descriptors)(nil)

// NewDescriptors returns an empty store on top of backend. Call Load to read
// the persisted records.
func NewDescriptors(backend storage.Backend, opts ...Option) *Descriptors {
	s := &Descriptors{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger.Get().Named("descriptors"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// foldName is the case-insensitive identity of a person name.
func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// Load replaces the in-memory set with the persisted one. A missing record
// yields an empty store. A corrupt record is logged and also yields an
// empty store; it is never fatal.
func (s *Descriptors) Load(ctx context.Context) error {
	var people []model.Person
	err := storage.LoadJSON(ctx, s.backend, storage.KeyFaces, &people)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		people = nil
	case errs.IsConfiguration(err):
		s.logger.Warn(ctx, "face database is corrupt, starting empty", logger.Error(err))
		metrics.RecordErrorByComponent("descriptors", "corrupt")
		people = nil
	default:
		return fmt.Errorf("load face database: %w", err)
	}

	valid := people[:0]
	for _, p := range people {
		if strings.TrimSpace(p.Name) == "" || len(p.Descriptor) == 0 {
			s.logger.Warn(ctx, "skipping malformed person record", logger.String("id", p.ID))
			continue
		}
		if s.dim > 0 && len(p.Descriptor) != s.dim {
			s.logger.Warn(ctx, "person record has unexpected dimension",
				logger.String("name", p.Name),
				logger.Int("dimension", len(p.Descriptor)),
				logger.Int("expected", s.dim),
			)
		}
		valid = append(valid, p)
	}

	s.mu.Lock()
	s.people = valid
	s.mu.Unlock()
	metrics.UpdateEnrolledPeople(len(valid))
	s.logger.Info(ctx, "face database loaded", logger.Int("people", len(valid)))
	return nil
}

// Enroll adds or replaces a person. A replaced record is removed and the new
// one appended, so it gets a new id, a new DateAdded and the last position.
func (s *Descriptors) Enroll(ctx context.Context, name string, d model.Descriptor) (model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Person{}, errs.Wrap("descriptors.enroll", errs.ErrInput, ErrEmptyName)
	}
	if len(d) == 0 {
		return model.Person{}, errs.Wrap("descriptors.enroll", errs.ErrInput, ErrEmptyDescriptor)
	}
	if s.dim > 0 && len(d) != s.dim {
		return model.Person{}, errs.Wrap("descriptors.enroll", errs.ErrConfiguration,
			fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d), s.dim))
	}

	p := model.Person{
		ID:         s.newID(),
		Name:       name,
		Descriptor: d.Clone(),
		DateAdded:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := foldName(name)
	next := make([]model.Person, 0, len(s.people)+1)
	replaced := false
	for _, existing := range s.people {
		if foldName(existing.Name) == key {
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	next = append(next, p)

	if err := storage.SaveJSON(ctx, s.backend, storage.KeyFaces, next); err != nil {
		return model.Person{}, err
	}
	s.people = next
	metrics.UpdateEnrolledPeople(len(next))

	s.logger.Info(ctx, "person enrolled",
		logger.String("name", name),
		logger.Bool("replaced", replaced),
		logger.Int("people", len(next)),
	)
	return p, nil
}

// All returns a copy of every record in insertion order.
func (s *Descriptors) All(_ context.Context) []model.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Person, len(s.people))
	copy(out, s.people)
	return out
}

// Find looks a person up by case-insensitive name.
func (s *Descriptors) Find(_ context.Context, name string) (model.Person, bool) {
	key := foldName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if foldName(p.Name) == key {
			return p, true
		}
	}
	return model.Person{}, false
}

// Count returns the number of enrolled people.
func (s *Descriptors) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people)
}

// Clear empties the store and persists the empty set.
func (s *Descriptors) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.SaveJSON(ctx, s.backend, storage.KeyFaces, []model.Person{}); err != nil {
		return err
	}
	s.people = nil
	metrics.UpdateEnrolledPeople(0)
	return nil
}
