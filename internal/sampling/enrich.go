// Package sampling enriches candidates with categorical attributes, computes
// entropy-based diversity metrics and applies one of three sampling strategies.
package sampling

import (
	"context"

	"social-account-lab/internal/domain"
)

// UnknownCategory is the default for attributes with no available signal.
const UnknownCategory = "unknown"

// AttributeProvider supplies region/language/sentiment signals for a handle.
// Optional collaborator; enrichment never blocks on a missing provider.
type AttributeProvider interface {
	AccountAttributes(ctx context.Context, handle string) (*domain.DiversityAttributes, error)
}

// Enricher fills in diversity attributes on candidate accounts.
type Enricher struct {
	provider AttributeProvider // may be nil
}

// NewEnricher creates an Enricher. Provider may be nil; absent signals
// resolve to unknown categories.
func NewEnricher(provider AttributeProvider) *Enricher {
	return &Enricher{provider: provider}
}

// Enrich assigns attributes to every candidate that does not already carry
// them. The followers tier is always derived from the candidate's own metrics.
// Provider errors degrade to unknown categories rather than failing the batch.
func (e *Enricher) Enrich(ctx context.Context, candidates []*domain.CandidateAccount) {
	for _, c := range candidates {
		if c.Attributes != nil {
			continue
		}
		c.Attributes = e.attributesFor(ctx, c)
	}
}

func (e *Enricher) attributesFor(ctx context.Context, c *domain.CandidateAccount) *domain.DiversityAttributes {
	attrs := &domain.DiversityAttributes{
		FollowersTier: domain.TierUnknown,
		Region:        UnknownCategory,
		Language:      UnknownCategory,
		Sentiment:     domain.SentimentUnknown,
	}

	if c.Metrics != nil {
		attrs.FollowersTier = domain.TierForFollowers(c.Metrics.FollowersCount)
	}

	if e.provider != nil {
		if got, err := e.provider.AccountAttributes(ctx, c.Handle); err == nil && got != nil {
			if got.Region != "" {
				attrs.Region = got.Region
			}
			if got.Language != "" {
				attrs.Language = got.Language
			}
			if got.Sentiment.IsValid() {
				attrs.Sentiment = got.Sentiment
			}
			if attrs.FollowersTier == domain.TierUnknown && got.FollowersTier != "" {
				attrs.FollowersTier = got.FollowersTier
			}
		}
	}

	return attrs
}
