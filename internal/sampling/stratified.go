package sampling

import (
	"math/rand"
	"sort"
	"strings"

	"social-account-lab/internal/domain"
)

// StratifiedStrategy partitions candidates into strata keyed by the full
// attribute tuple, allocates output proportionally to stratum size (remainder
// to the largest strata) and draws uniformly without replacement within each
// stratum.
type StratifiedStrategy struct {
	rng *rand.Rand
}

// NewStratifiedStrategy creates a StratifiedStrategy.
func NewStratifiedStrategy(rng *rand.Rand) *StratifiedStrategy {
	return &StratifiedStrategy{rng: rng}
}

// Method returns the method identifier.
func (s *StratifiedStrategy) Method() domain.SamplingMethod {
	return domain.SamplingStratified
}

type stratum struct {
	key     string
	members []*domain.CandidateAccount
	alloc   int
}

// Sample allocates per-stratum counts proportional to stratum share, within
// one candidate of exact proportionality.
func (s *StratifiedStrategy) Sample(candidates []*domain.CandidateAccount, maxResults int) []*domain.CandidateAccount {
	if maxResults <= 0 || len(candidates) == 0 {
		return nil
	}
	if maxResults >= len(candidates) {
		return shuffled(candidates, s.rng)
	}

	strata := partition(candidates)
	total := len(candidates)

	// Floor allocation first, then hand the remainder to the largest strata.
	allocated := 0
	for _, st := range strata {
		st.alloc = maxResults * len(st.members) / total
		allocated += st.alloc
	}
	sort.SliceStable(strata, func(i, j int) bool {
		return len(strata[i].members) > len(strata[j].members)
	})
	for i := 0; allocated < maxResults; i = (i + 1) % len(strata) {
		if strata[i].alloc < len(strata[i].members) {
			strata[i].alloc++
			allocated++
		}
	}

	var out []*domain.CandidateAccount
	for _, st := range strata {
		members := shuffled(st.members, s.rng)
		out = append(out, members[:st.alloc]...)
	}
	return out
}

// partition groups candidates by attribute tuple, in deterministic key order.
func partition(candidates []*domain.CandidateAccount) []*stratum {
	byKey := make(map[string]*stratum)
	var order []string

	for _, c := range candidates {
		key := strataKey(c)
		st, ok := byKey[key]
		if !ok {
			st = &stratum{key: key}
			byKey[key] = st
			order = append(order, key)
		}
		st.members = append(st.members, c)
	}

	sort.Strings(order)
	strata := make([]*stratum, 0, len(order))
	for _, key := range order {
		strata = append(strata, byKey[key])
	}
	return strata
}

func strataKey(c *domain.CandidateAccount) string {
	parts := make([]string, 0, len(attributeNames))
	for _, name := range attributeNames {
		parts = append(parts, attributeValue(c, name))
	}
	return strings.Join(parts, "|")
}
