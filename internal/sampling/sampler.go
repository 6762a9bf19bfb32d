package sampling

import (
	"context"
	"log"
	"math/rand"
	"time"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/observability"
)

// Sampler enriches a candidate pool and applies one sampling strategy.
type Sampler struct {
	enricher *Enricher
	logger   *log.Logger
	rng      *rand.Rand
}

// SamplerOptions contains configuration for creating a Sampler.
type SamplerOptions struct {
	Provider AttributeProvider // optional attribute collaborator
	Logger   *log.Logger
	// Rand drives shuffling and within-stratum draws. Seed for reproducibility.
	Rand *rand.Rand
}

// NewSampler creates a Sampler.
func NewSampler(opts SamplerOptions) *Sampler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Sampler{
		enricher: NewEnricher(opts.Provider),
		logger:   logger,
		rng:      rng,
	}
}

// SampleDiverse enriches the pool, applies the selected strategy and attaches
// the sampled set's overall diversity score to each returned candidate.
func (s *Sampler) SampleDiverse(ctx context.Context, candidates []*domain.CandidateAccount, maxResults int, method domain.SamplingMethod, quotas domain.QuotaTable) ([]*domain.CandidateAccount, error) {
	strategy, err := FromMethod(method, quotas, s.rng)
	if err != nil {
		return nil, err
	}

	s.enricher.Enrich(ctx, candidates)
	sampled := strategy.Sample(candidates, maxResults)

	metrics := ComputeMetrics(sampled)
	for _, c := range sampled {
		score := metrics.OverallDiversity
		c.DiversityScore = &score
	}

	s.logger.Printf("diversity sample method=%s pool=%d sampled=%d overall_diversity=%.3f",
		method, len(candidates), len(sampled), metrics.OverallDiversity)
	observability.RecordSamplingRun(method.String(), metrics.OverallDiversity)

	return sampled, nil
}

// Metrics computes diversity metrics over an already-enriched candidate set.
func (s *Sampler) Metrics(ctx context.Context, candidates []*domain.CandidateAccount) domain.DiversityMetrics {
	s.enricher.Enrich(ctx, candidates)
	return ComputeMetrics(candidates)
}
