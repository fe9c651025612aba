// Package threshold keeps the per-person acceptance thresholds that feedback
// nudges up or down.
package threshold

import (
	"sync"

	"github.com/okian/visage/internal/domain/model"
)

// Tunable learning constants. They are empirical, not derived.
const (
	// DefaultThreshold is the global threshold used before any operator change.
	DefaultThreshold = 0.6

	// Floor and Ceiling bound every per-person value.
	Floor   = 0.30
	Ceiling = 0.90

	// ConfirmStep lowers a name's threshold after a confirmed match.
	ConfirmStep = 0.02
	// FalsePositiveStep raises a name's threshold after it was wrongly accepted.
	FalsePositiveStep = 0.05
	// FalseNegativeStep lowers a name's threshold after it was wrongly rejected.
	FalseNegativeStep = 0.03
)

// Table maps a person name to its adaptive threshold.
type Table struct {
	mu      sync.RWMutex
	def     float64
	entries map[string]float64
}

// New returns an empty table using def as the fallback threshold.
func New(def float64) *Table {
	return &Table{def: def, entries: make(map[string]float64)}
}

// For returns the threshold for name, or the default when name is empty or
// has no entry.
func (t *Table) For(name string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if name == "" {
		return t.def
	}
	if v, ok := t.entries[name]; ok {
		return v
	}
	return t.def
}

// Default returns the global threshold.
func (t *Table) Default() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.def
}

// SetDefault changes the global threshold. Existing entries are kept.
func (t *Table) SetDefault(v float64) {
	t.mu.Lock()
	t.def = v
	t.mu.Unlock()
}

// Apply folds one feedback record into the table and returns the name that
// was touched with its new value.
//
// The entry for fb.Actual is created at the default first, so a feedback
// that matches none of the rules still leaves an entry behind.
func (t *Table) Apply(fb model.Feedback) (string, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := fb.Actual
	v, ok := t.entries[name]
	if !ok {
		v = t.def
	}

	switch {
	case fb.Type == model.Confirmed && fb.Predicted == fb.Actual:
		v = max(Floor, v-ConfirmStep)
	case fb.Type == model.Corrected && fb.Predicted == fb.Actual:
		v = min(Ceiling, v+FalsePositiveStep)
	case fb.Type == model.Corrected && fb.Predicted == model.Unknown:
		v = max(Floor, v-FalseNegativeStep)
	}

	t.entries[name] = v
	return name, v
}

// Snapshot returns a copy of all per-person entries.
func (t *Table) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// Restore replaces all entries. Values outside [Floor, Ceiling] are clamped.
func (t *Table) Restore(entries map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]float64, len(entries))
	for k, v := range entries {
		if k == "" {
			continue
		}
		t.entries[k] = clamp(v)
	}
}

// Reset drops every per-person entry.
func (t *Table) Reset() {
	t.mu.Lock()
	t.entries = make(map[string]float64)
	t.mu.Unlock()
}

// Len returns the number of per-person entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func clamp(v float64) float64 {
	return min(Ceiling, max(Floor, v))
}
