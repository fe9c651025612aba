// Package ledger is the append-only feedback log and its running statistics.
package ledger

import (
	"sync"
	"time"

	"github.com/okian/visage/internal/domain/model"
)

// Ledger records feedback and keeps totals up to date in O(1) per record.
type Ledger struct {
	mu      sync.RWMutex
	records []model.Feedback
	total   int
	correct int
	updated time.Time
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends fb and folds it into the statistics.
func (l *Ledger) Record(fb model.Feedback) model.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, fb)
	l.fold(fb)
	l.updated = l.now()
	return l.statsLocked()
}

func (l *Ledger) fold(fb model.Feedback) {
	l.total++
	if fb.Type == model.Confirmed {
		l.correct++
	}
}

// History returns the last n records, most recent first. n <= 0 or larger
// than the ledger returns everything.
func (l *Ledger) History(n int) []model.Feedback {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]model.Feedback, 0, n)
	for i := len(l.records) - 1; i >= len(l.records)-n; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// All returns every record in insertion order.
func (l *Ledger) All() []model.Feedback {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Feedback, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Stats returns the current statistics. AdaptiveThresholds is left nil; the
// threshold table owns those.
func (l *Ledger) Stats() model.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statsLocked()
}

func (l *Ledger) statsLocked() model.Stats {
	s := model.Stats{
		TotalFeedback: l.total,
		CorrectCount:  l.correct,
		Accuracy:      model.NoAccuracy,
		LastUpdated:   l.updated,
	}
	if l.total > 0 {
		s.Accuracy = float64(l.correct) / float64(l.total)
	}
	return s
}

// AccuracyCurve returns the running accuracy after each record. It is empty
// until there are at least two records.
func (l *Ledger) AccuracyCurve() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) < 2 {
		return []float64{}
	}
	out := make([]float64, len(l.records))
	correct := 0
	for i, fb := range l.records {
		if fb.Type == model.Confirmed {
			correct++
		}
		out[i] = float64(correct) / float64(i+1)
	}
	return out
}

// Restore replaces the ledger with persisted records and recomputes the
// counters from them. updated is kept as LastUpdated.
func (l *Ledger) Restore(records []model.Feedback, updated time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make([]model.Feedback, 0, len(records))
	l.total, l.correct = 0, 0
	for _, fb := range records {
		l.records = append(l.records, fb)
		l.fold(fb)
	}
	l.updated = updated
}

// Reset clears all records and statistics.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.total, l.correct = 0, 0
	l.updated = time.Time{}
}
