package sampling

import (
	"math/rand"

	"social-account-lab/internal/domain"
)

// Strategy draws a diverse subset from an enriched candidate pool.
type Strategy interface {
	// Sample returns at most maxResults candidates drawn from the pool.
	// The input slice is never mutated.
	Sample(candidates []*domain.CandidateAccount, maxResults int) []*domain.CandidateAccount

	// Method returns the strategy's method identifier.
	Method() domain.SamplingMethod
}

// shuffled returns a shuffled copy of the pool.
func shuffled(pool []*domain.CandidateAccount, rng *rand.Rand) []*domain.CandidateAccount {
	out := append([]*domain.CandidateAccount(nil), pool...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
