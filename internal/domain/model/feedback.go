package model

import (
	"fmt"
	"time"
)

// FeedbackType tells whether the user confirmed or corrected a recognition.
type FeedbackType string

const (
	Confirmed FeedbackType = "confirmed"
	Corrected FeedbackType = "corrected"
)

// ParseFeedbackType accepts the canonical names plus the legacy
// "correct"/"incorrect" spelling found in older exports.
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch s {
	case string(Confirmed), "correct":
		return Confirmed, nil
	case string(Corrected), "incorrect":
		return Corrected, nil
	default:
		return "", fmt.Errorf("unknown feedback type %q", s)
	}
}

// Feedback is one append-only ledger entry.
type Feedback struct {
	ID         string       `json:"id"`
	Type       FeedbackType `json:"type"`
	Predicted  string       `json:"predicted"`
	Actual     string       `json:"actual"`
	Confidence float64      `json:"confidence"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Stats are the learning statistics folded from the ledger.
type Stats struct {
	TotalFeedback      int                `json:"totalFeedback"`
	CorrectCount       int                `json:"correctPredictions"`
	Accuracy           float64            `json:"accuracy"`
	AdaptiveThresholds map[string]float64 `json:"adaptiveThresholds"`
	LastUpdated        time.Time          `json:"lastUpdated"`
}

// NoAccuracy is reported as Accuracy while no feedback has been recorded.
const NoAccuracy = -1.0

// HasAccuracy reports whether Accuracy is meaningful.
func (s Stats) HasAccuracy() bool { return s.TotalFeedback > 0 }
