package sampling

import (
	"math/rand"

	"social-account-lab/internal/domain"
)

// RandomStrategy draws min(maxResults, |pool|) candidates uniformly without
// replacement.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy creates a RandomStrategy.
func NewRandomStrategy(rng *rand.Rand) *RandomStrategy {
	return &RandomStrategy{rng: rng}
}

// Method returns the method identifier.
func (s *RandomStrategy) Method() domain.SamplingMethod {
	return domain.SamplingRandom
}

// Sample draws a uniform subset without duplicates.
func (s *RandomStrategy) Sample(candidates []*domain.CandidateAccount, maxResults int) []*domain.CandidateAccount {
	if maxResults <= 0 {
		return nil
	}
	out := shuffled(candidates, s.rng)
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}
