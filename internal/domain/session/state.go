package session

// State is the recognition cycle state.
type State int

const (
	// Idle means no face is being considered.
	Idle State = iota
	// Detected means a descriptor was extracted and is being matched.
	Detected
	// Matched means the match was classified against a threshold.
	Matched
	// AwaitingFeedback means a result is open for one confirmation or correction.
	AwaitingFeedback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Detected:
		return "detected"
	case Matched:
		return "matched"
	case AwaitingFeedback:
		return "awaiting_feedback"
	default:
		return "unknown"
	}
}
