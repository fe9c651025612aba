package model

// SessionSnapshot is the externally visible recognition session.
type SessionSnapshot struct {
	State       string   `json:"state"`
	Result      *Result  `json:"result,omitempty"`
	Unavailable string   `json:"unavailable,omitempty"`
	Settings    Settings `json:"settings"`
}

// LearningReport is Stats plus the derived views shown to operators.
type LearningReport struct {
	Stats
	AccuracyCurve   []float64 `json:"accuracyCurve"`
	GlobalThreshold float64   `json:"globalThreshold"`
	EnrolledPeople  int       `json:"enrolledPeople"`
}
