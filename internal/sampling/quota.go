package sampling

import (
	"math/rand"

	"social-account-lab/internal/domain"
)

// QuotaStrategy shuffles the pool once, then scans it admitting a candidate
// only when admission would not exceed any configured cap for its attribute
// values. Acceptance depends on remaining quota slots, not on a per-candidate
// probability.
type QuotaStrategy struct {
	quotas domain.QuotaTable
	rng    *rand.Rand
}

// NewQuotaStrategy creates a QuotaStrategy with the given caps. Attribute
// values absent from the table are uncapped.
func NewQuotaStrategy(quotas domain.QuotaTable, rng *rand.Rand) *QuotaStrategy {
	return &QuotaStrategy{quotas: quotas, rng: rng}
}

// Method returns the method identifier.
func (s *QuotaStrategy) Method() domain.SamplingMethod {
	return domain.SamplingQuota
}

// Sample scans a shuffled copy of the pool once, stopping at maxResults or
// pool exhaustion.
func (s *QuotaStrategy) Sample(candidates []*domain.CandidateAccount, maxResults int) []*domain.CandidateAccount {
	if maxResults <= 0 {
		return nil
	}

	admitted := make(map[string]map[string]int, len(s.quotas))
	var out []*domain.CandidateAccount

	for _, c := range shuffled(candidates, s.rng) {
		if len(out) >= maxResults {
			break
		}
		if !s.admit(c, admitted) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// admit checks every capped attribute value and records the admission.
func (s *QuotaStrategy) admit(c *domain.CandidateAccount, admitted map[string]map[string]int) bool {
	for attr, caps := range s.quotas {
		value := attributeValue(c, attr)
		limit, capped := caps[value]
		if !capped {
			continue
		}
		if admitted[attr][value] >= limit {
			return false
		}
	}

	for attr := range s.quotas {
		value := attributeValue(c, attr)
		if _, capped := s.quotas[attr][value]; !capped {
			continue
		}
		if admitted[attr] == nil {
			admitted[attr] = make(map[string]int)
		}
		admitted[attr][value]++
	}
	return true
}
