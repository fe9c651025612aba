// Package repository holds the descriptor store: the enrolled people and
// their reference descriptors.
package repository

import (
	"context"

	"github.com/okian/visage/internal/domain/model"
)

// Store provides read/write access to enrolled people.
type Store interface {
	// Enroll adds name, or fully replaces an existing record whose name
	// matches case-insensitively.
	Enroll(ctx context.Context, name string, d model.Descriptor) (model.Person, error)

	// All returns every record in insertion order.
	All(ctx context.Context) []model.Person

	// Find looks a record up by case-insensitive name.
	Find(ctx context.Context, name string) (model.Person, bool)

	// Count returns the number of enrolled people.
	Count(ctx context.Context) int

	// Clear removes every record.
	Clear(ctx context.Context) error
}
