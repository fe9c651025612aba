// Package matcher finds the nearest enrolled person for a query descriptor.
package matcher

import (
	"math"

	"github.com/okian/visage/internal/domain/model"
)

// Match is the best candidate for a query. Person is nil when nothing was
// comparable, in which case Distance is +Inf.
type Match struct {
	Person   *model.Person
	Distance float64
}

// Confidence is the distance-derived score of the match.
func (m Match) Confidence() float64 { return Confidence(m.Distance) }

// Distance returns the Euclidean distance between a and b. Vectors of
// different length are incomparable and yield +Inf.
func Distance(a, b model.Descriptor) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence maps a distance onto max(0, 1-distance).
//
// It is a monotonic heuristic, not a calibrated probability. There is no
// upper clamp: only thresholds <= 0.9 are ever compared against it.
func Confidence(distance float64) float64 {
	return math.Max(0, 1-distance)
}

// Nearest scans people in order and returns the closest one. Ties keep the
// first record encountered.
func Nearest(people []model.Person, query model.Descriptor) Match {
	best := Match{Distance: math.Inf(1)}
	for i := range people {
		d := Distance(query, people[i].Descriptor)
		if d < best.Distance {
			best = Match{Person: &people[i], Distance: d}
		}
	}
	return best
}
