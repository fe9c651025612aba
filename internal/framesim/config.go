package framesim

import (
	"io"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Scenario   Scenario      // Identities and frame mix to replay
	Workers    int           // Concurrent enrollment requests
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON report path
	Verbose    bool          // Log every frame
	Progress   io.Writer     // Replay progress bar destination, nil for none
}

// Stats holds observed simulation results.
type Stats struct {
	Enrolled      int     `json:"enrolled"`
	Frames        int     `json:"frames"`
	Correct       int     `json:"correct"`
	Confirmed     int     `json:"confirmed"`
	Corrected     int     `json:"corrected"`
	Failed        int     `json:"failed"`
	Observed      float64 `json:"observedAccuracy"`
	Reported      float64 `json:"reportedAccuracy"`
	FeedbackCount int     `json:"reportedFeedback"`

	Thresholds map[string]float64 `json:"adaptiveThresholds"`

	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
}

// accuracy returns correct/frames, or -1 when no frame was scored.
func (s *Stats) accuracy() float64 {
	if s.Frames == 0 {
		return -1
	}
	return float64(s.Correct) / float64(s.Frames)
}
