package sampling

import (
	"errors"
	"math/rand"

	"social-account-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownSamplingMethod = errors.New("unknown sampling method")
	ErrMissingQuotas         = errors.New("quota sampling requires a quota table")
)

// FromMethod creates a Strategy for the given method. Exactly one strategy
// applies per call; methods are never blended.
func FromMethod(method domain.SamplingMethod, quotas domain.QuotaTable, rng *rand.Rand) (Strategy, error) {
	switch method {
	case domain.SamplingStratified:
		return NewStratifiedStrategy(rng), nil
	case domain.SamplingQuota:
		if len(quotas) == 0 {
			return nil, ErrMissingQuotas
		}
		return NewQuotaStrategy(quotas, rng), nil
	case domain.SamplingRandom:
		return NewRandomStrategy(rng), nil
	default:
		return nil, ErrUnknownSamplingMethod
	}
}
