package domain

// ScoreMode identifies which scoring path produced a quality assessment.
type ScoreMode string

const (
	// ScoreModeMetric means hard metrics (followers, recency, post count) drove the score.
	ScoreModeMetric ScoreMode = "metric_based"
	// ScoreModeFallback means the score is a confidence-derived estimate.
	ScoreModeFallback ScoreMode = "fallback"
)

// String returns the string representation of ScoreMode.
func (m ScoreMode) String() string {
	return string(m)
}

// QualityAssessment is the normalized quality verdict for an account snapshot.
// Immutable once computed for a given input.
type QualityAssessment struct {
	Score   float64 // clamped to [0,1]
	Passed  bool
	Reasons []string // ordered, human-readable
	Mode    ScoreMode
}
