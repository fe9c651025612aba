// Package model contains domain models passed between layers.
package model

import "time"

// Unknown is the predicted name when no enrolled person is accepted.
const Unknown = "Unknown"

// Descriptor is the fixed-length face embedding produced by the face model.
type Descriptor []float64

// Clone returns an independent copy of d.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// Person is an enrolled identity with its reference descriptor.
// Records are replaced wholesale on re-enrollment, never edited in place.
type Person struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Descriptor Descriptor `json:"descriptor"`
	DateAdded  time.Time  `json:"dateAdded"`
}
