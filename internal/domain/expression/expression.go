// Package expression summarizes the expression scores of a detection.
package expression

// Neutral is reported when no label scores above zero.
const Neutral = "neutral"

// Top returns the label with the highest score. Equal scores resolve to the
// lexically smaller label so the answer does not depend on map order.
func Top(scores map[string]float64) string {
	best, bestScore := Neutral, 0.0
	for label, score := range scores {
		if score > bestScore || (score == bestScore && score > 0 && label < best) {
			best, bestScore = label, score
		}
	}
	return best
}
