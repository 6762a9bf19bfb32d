// Package lookup resolves hard account metrics and diversity attributes
// through the X user endpoint.
package lookup

import (
	"context"
	"fmt"
	"log"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/sampling"
)

// UserSource resolves a handle to profile metrics. Satisfied by fetch.XAPIClient.
type UserSource interface {
	LookupUser(ctx context.Context, handle string) (*fetch.UserInfo, fetch.RateLimitInfo, error)
}

// AttributeLookup is the enrichment collaborator backed by the X API.
// Lookups respect the same rate budget as the primary fetch stage.
type AttributeLookup struct {
	source  UserSource
	limiter fetch.RateLimiter // nil disables budget checks
	logger  *log.Logger
}

// Options contains configuration for creating an AttributeLookup.
type Options struct {
	Source  UserSource
	Limiter fetch.RateLimiter
	Logger  *log.Logger
}

// New creates an AttributeLookup.
func New(opts Options) *AttributeLookup {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &AttributeLookup{
		source:  opts.Source,
		limiter: opts.Limiter,
		logger:  logger,
	}
}

// Compile-time interface check.
var _ sampling.AttributeProvider = (*AttributeLookup)(nil)

// AccountAttributes resolves diversity attributes for a handle. The followers
// tier comes from the user's public metrics; signals the user endpoint does
// not carry stay empty so the enricher keeps its unknown defaults.
func (l *AttributeLookup) AccountAttributes(ctx context.Context, handle string) (*domain.DiversityAttributes, error) {
	user, err := l.lookup(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &domain.DiversityAttributes{
		FollowersTier: domain.TierForFollowers(user.Metrics.FollowersCount),
	}, nil
}

// AccountMetrics resolves hard metrics for a handle, enabling the
// metric-based quality scoring path for discovered candidates.
func (l *AttributeLookup) AccountMetrics(ctx context.Context, handle string) (*domain.AccountMetrics, error) {
	user, err := l.lookup(ctx, handle)
	if err != nil {
		return nil, err
	}
	metrics := user.Metrics
	return &metrics, nil
}

func (l *AttributeLookup) lookup(ctx context.Context, handle string) (*fetch.UserInfo, error) {
	handle = domain.NormalizeHandle(handle)

	if l.limiter != nil {
		res := l.limiter.CheckAndReserve(domain.SourcePrimaryAPI)
		if !res.Allowed {
			// Enrichment is best-effort: never block a sampling run on the
			// user endpoint's budget.
			return nil, fmt.Errorf("lookup %q: %w", handle, fetch.ErrSourceUnavailable)
		}
	}

	user, info, err := l.source.LookupUser(ctx, handle)
	if l.limiter != nil {
		l.limiter.Record(domain.SourcePrimaryAPI, info.Remaining, info.ResetAt)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", handle, err)
	}
	return user, nil
}
