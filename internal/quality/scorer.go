// Package quality computes normalized account quality scores.
package quality

import (
	"fmt"
	"unicode/utf8"

	"social-account-lab/internal/domain"
)

// Default thresholds.
const (
	DefaultMinFollowers    = 100
	DefaultMinPostCount    = 50
	DefaultMaxDaysInactive = 180
	DefaultMinQualityScore = 0.6

	// FallbackPassConfidence: in fallback mode an account passes iff its
	// discovery-time confidence reaches this value.
	FallbackPassConfidence = 0.7

	// shortDescriptionLen: descriptions shorter than this are penalized in
	// fallback mode.
	shortDescriptionLen = 20
)

// Thresholds parameterize the scoring formula and pass conditions.
type Thresholds struct {
	MinFollowers    int
	MinPostCount    int
	MaxDaysInactive int
	MinQualityScore float64
}

// DefaultThresholds returns the standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFollowers:    DefaultMinFollowers,
		MinPostCount:    DefaultMinPostCount,
		MaxDaysInactive: DefaultMaxDaysInactive,
		MinQualityScore: DefaultMinQualityScore,
	}
}

// Scorer computes quality assessments for candidate accounts.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer creates a scorer. Zero-valued threshold fields fall back to the
// defaults.
func NewScorer(t Thresholds) *Scorer {
	if t.MinFollowers == 0 {
		t.MinFollowers = DefaultMinFollowers
	}
	if t.MinPostCount == 0 {
		t.MinPostCount = DefaultMinPostCount
	}
	if t.MaxDaysInactive == 0 {
		t.MaxDaysInactive = DefaultMaxDaysInactive
	}
	if t.MinQualityScore == 0 {
		t.MinQualityScore = DefaultMinQualityScore
	}
	return &Scorer{thresholds: t}
}

// Score computes a quality assessment for a candidate snapshot.
//
// When hard metrics are available the weighted metric formula applies:
//
//	score = 0.5*followers_norm + 0.3*recency_norm + 0.2*postcount_norm
//
// Otherwise the discovery-time confidence drives a fallback estimate, flagged
// as such in the reasons so downstream consumers can discount it.
func (s *Scorer) Score(c *domain.CandidateAccount) *domain.QualityAssessment {
	if c.Metrics != nil {
		return s.scoreFromMetrics(c.Metrics)
	}
	return s.scoreFromConfidence(c.Confidence, c.Description)
}

// scoreFromMetrics is the metric-based path.
func (s *Scorer) scoreFromMetrics(m *domain.AccountMetrics) *domain.QualityAssessment {
	followersNorm := s.followersNorm(m.FollowersCount)
	recencyNorm := s.recencyNorm(m.InactiveDays)
	postCountNorm := postCountNorm(m.PostCount)

	score := clamp01(0.5*followersNorm + 0.3*recencyNorm + 0.2*postCountNorm)

	var reasons []string
	passed := true

	if score < s.thresholds.MinQualityScore {
		passed = false
		reasons = append(reasons, fmt.Sprintf("quality score %.2f below threshold %.2f", score, s.thresholds.MinQualityScore))
	}
	if m.FollowersCount < s.thresholds.MinFollowers {
		passed = false
		reasons = append(reasons, fmt.Sprintf("followers %d below minimum %d", m.FollowersCount, s.thresholds.MinFollowers))
	}
	if m.PostCount < s.thresholds.MinPostCount {
		passed = false
		reasons = append(reasons, fmt.Sprintf("post count %d below minimum %d", m.PostCount, s.thresholds.MinPostCount))
	}
	if m.InactiveDays > s.thresholds.MaxDaysInactive {
		passed = false
		reasons = append(reasons, fmt.Sprintf("inactive %d days, maximum %d", m.InactiveDays, s.thresholds.MaxDaysInactive))
	}
	if passed {
		reasons = append(reasons, fmt.Sprintf("quality score %.2f", score))
	}

	return &domain.QualityAssessment{
		Score:   score,
		Passed:  passed,
		Reasons: reasons,
		Mode:    domain.ScoreModeMetric,
	}
}

// scoreFromConfidence is the fallback path for accounts without hard metrics.
func (s *Scorer) scoreFromConfidence(confidence float64, description string) *domain.QualityAssessment {
	var score float64
	if confidence < 0.7 {
		score = confidence * 0.8
	} else {
		score = 0.5 + (confidence-0.5)*0.5
	}

	reasons := []string{"fallback estimate: account metrics unavailable"}

	if utf8.RuneCountInString(description) < shortDescriptionLen {
		score *= 0.9
		reasons = append(reasons, "description missing or too short")
	}

	score = clamp01(score)
	passed := confidence >= FallbackPassConfidence
	if !passed {
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below %.2f", confidence, FallbackPassConfidence))
	}

	return &domain.QualityAssessment{
		Score:   score,
		Passed:  passed,
		Reasons: reasons,
		Mode:    domain.ScoreModeFallback,
	}
}

// followersNorm maps a follower count onto its normalized band.
// Values below 1000 followers intentionally scale against MinFollowers.
func (s *Scorer) followersNorm(followers int) float64 {
	f := float64(followers)
	minF := float64(s.thresholds.MinFollowers)

	switch {
	case followers >= 10_000:
		return 1.0
	case followers >= 1_000:
		return 0.5 + 0.5*(f-1_000)/9_000
	case followers >= s.thresholds.MinFollowers:
		return 0.3 * (f / minF)
	default:
		return 0.1 * (f / minF)
	}
}

// recencyNorm maps days of inactivity onto its normalized band.
func (s *Scorer) recencyNorm(inactiveDays int) float64 {
	switch {
	case inactiveDays <= 30:
		return 1.0
	case inactiveDays <= 90:
		return 0.7
	case inactiveDays <= s.thresholds.MaxDaysInactive:
		return 0.3
	default:
		return 0.0
	}
}

// postCountNorm maps a lifetime post count onto its normalized band.
func postCountNorm(postCount int) float64 {
	pc := float64(postCount)
	switch {
	case postCount >= 1_000:
		return 1.0
	case postCount >= 50:
		return 0.5 + 0.5*(pc-50)/950
	default:
		return 0.3 * (pc / 50)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
