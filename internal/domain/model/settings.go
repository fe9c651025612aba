package model

import "time"

// Settings are the operator-facing runtime knobs.
type Settings struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	ShowExpressions     bool    `json:"showExpressions"`
	AdaptiveLearning    bool    `json:"adaptiveLearning"`
}

// DefaultSettings mirrors the out-of-the-box behaviour.
func DefaultSettings() Settings {
	return Settings{
		ConfidenceThreshold: 0.6,
		ShowExpressions:     true,
		AdaptiveLearning:    true,
	}
}

// Export is the downloadable snapshot of all persisted state.
type Export struct {
	FeedbackDatabase []Feedback `json:"feedbackDatabase"`
	LearningStats    Stats      `json:"learningStats"`
	FaceDatabase     []Person   `json:"faceDatabase"`
	ExportDate       time.Time  `json:"exportDate"`
}
