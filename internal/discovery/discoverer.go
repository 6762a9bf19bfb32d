// Package discovery finds candidate accounts through web search.
package discovery

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/idhash"
	"social-account-lab/internal/observability"
	"social-account-lab/internal/quality"
)

// MinConfidence: discovered accounts below this confidence are excluded.
const MinConfidence = 0.7

// AccountSearcher is the web-search collaborator used for discovery.
// Satisfied by fetch.WebSearchClient and by the dry-run placeholder.
type AccountSearcher interface {
	DiscoverAccounts(ctx context.Context, keyword string, maxResults int) ([]fetch.DiscoveredAccount, fetch.RateLimitInfo, error)
}

// MetricsProvider resolves hard account metrics for discovered handles,
// switching scoring from the confidence fallback to the metric formula.
// Satisfied by lookup.AttributeLookup.
type MetricsProvider interface {
	AccountMetrics(ctx context.Context, handle string) (*domain.AccountMetrics, error)
}

// Discoverer issues candidate searches, applies quality filtering and
// normalizes output records. Discovery output is intentionally NOT passed
// through the diversity sampler; only the dedicated hybrid mode samples.
type Discoverer struct {
	searcher AccountSearcher
	scorer   *quality.Scorer
	metrics  MetricsProvider
	limiter  fetch.RateLimiter
	presets  PresetTable
	logger   *log.Logger
	clock    func() time.Time
	rand     *rand.Rand
}

// Options contains configuration for creating a Discoverer.
type Options struct {
	Searcher AccountSearcher
	Scorer   *quality.Scorer
	// Metrics is the optional hard-metrics collaborator. When set, discovered
	// candidates are enriched best-effort before scoring.
	Metrics MetricsProvider
	Limiter fetch.RateLimiter
	// Presets overrides the built-in preset table. Nil keeps the built-in.
	Presets PresetTable
	Logger  *log.Logger
	Clock   func() time.Time
	// Rand drives preset pool shuffling. Seed it for reproducible runs.
	Rand *rand.Rand
}

// New creates a Discoverer.
func New(opts Options) *Discoverer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(clock().UnixNano()))
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = quality.NewScorer(quality.DefaultThresholds())
	}
	presets := opts.Presets
	if presets == nil {
		presets = DefaultPresets()
	}

	return &Discoverer{
		searcher: opts.Searcher,
		scorer:   scorer,
		metrics:  opts.Metrics,
		limiter:  opts.Limiter,
		presets:  presets,
		logger:   logger,
		clock:    clock,
		rand:     rng,
	}
}

// DiscoverByKeyword resolves the keyword through the preset table, issues one
// web-search query, filters by confidence, sorts descending and scores each
// surviving candidate.
func (d *Discoverer) DiscoverByKeyword(ctx context.Context, keyword string, maxResults int) ([]*domain.CandidateAccount, error) {
	return d.discover(ctx, keyword, maxResults, domain.OriginKeyword)
}

// DiscoverRandom shuffles the preset query pool (optionally restricted to one
// category) and runs keyword discovery per query until maxResults unique
// handles are collected.
func (d *Discoverer) DiscoverRandom(ctx context.Context, maxResults int, category string) ([]*domain.CandidateAccount, error) {
	pool, err := d.presets.Pool(category)
	if err != nil {
		return nil, err
	}

	d.rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	seen := make(map[string]bool)
	var collected []*domain.CandidateAccount

	for _, query := range pool {
		if len(collected) >= maxResults {
			break
		}
		if ctx.Err() != nil {
			return collected, ctx.Err()
		}

		batch, err := d.discover(ctx, query, maxResults, domain.OriginRandom)
		if err != nil {
			d.logger.Printf("discovery query failed query=%q err=%v", query, err)
			continue
		}

		for _, c := range batch {
			key := domain.NormalizeHandle(c.Handle)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			collected = append(collected, c)
			if len(collected) >= maxResults {
				break
			}
		}
	}

	return collected, nil
}

// discover is the shared single-query path.
func (d *Discoverer) discover(ctx context.Context, keyword string, maxResults int, origin domain.SourceOrigin) ([]*domain.CandidateAccount, error) {
	query := ResolvePreset(keyword)

	if d.limiter != nil {
		res := d.limiter.CheckAndReserve(domain.SourceWebSearch)
		if !res.Allowed {
			if res.WaitUntil.IsZero() {
				return nil, fmt.Errorf("discover %q: %w", query, fetch.ErrSourceUnavailable)
			}
			if err := sleepUntil(ctx, res.WaitUntil); err != nil {
				return nil, err
			}
			if res = d.limiter.CheckAndReserve(domain.SourceWebSearch); !res.Allowed {
				return nil, fmt.Errorf("discover %q: %w", query, fetch.ErrSourceUnavailable)
			}
		}
	}

	found, info, err := d.searcher.DiscoverAccounts(ctx, query, maxResults)
	if d.limiter != nil {
		d.limiter.Record(domain.SourceWebSearch, info.Remaining, info.ResetAt)
	}
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", query, err)
	}

	now := d.clock().UnixMilli()
	var candidates []*domain.CandidateAccount
	filtered := 0

	for _, acc := range found {
		if acc.Confidence < MinConfidence {
			filtered++
			observability.RecordCandidateFiltered("low_confidence")
			continue
		}
		handle := domain.NormalizeHandle(acc.Handle)
		if handle == "" {
			continue
		}

		candidates = append(candidates, &domain.CandidateAccount{
			CandidateID:  idhash.ComputeCandidateID(handle, origin, query),
			Handle:       handle,
			DisplayName:  acc.DisplayName,
			Description:  acc.Description,
			Confidence:   clampConfidence(acc.Confidence),
			Origin:       origin,
			ProfileURL:   acc.ProfileURL,
			Query:        query,
			DiscoveredAt: now,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	// Quality-score the survivors; failing candidates are excluded with
	// their reasons logged, not treated as errors. Metrics enrichment is
	// best-effort: a failed lookup leaves the confidence fallback in place.
	kept := candidates[:0]
	for _, c := range candidates {
		if d.metrics != nil {
			if m, err := d.metrics.AccountMetrics(ctx, c.Handle); err != nil {
				d.logger.Printf("metrics lookup failed handle=%s err=%v", c.Handle, err)
			} else {
				c.Metrics = m
			}
		}
		c.Quality = d.scorer.Score(c)
		observability.RecordQualityScore(c.Quality.Score)
		if !c.Quality.Passed {
			d.logger.Printf("discovery exclude handle=%s score=%.2f reasons=%v", c.Handle, c.Quality.Score, c.Quality.Reasons)
			observability.RecordCandidateFiltered("quality")
			continue
		}
		kept = append(kept, c)
	}
	candidates = kept

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	d.logger.Printf("discovery query=%q origin=%s found=%d filtered_low_confidence=%d returned=%d",
		query, origin, len(found), filtered, len(candidates))

	return candidates, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sleepUntil(ctx context.Context, until time.Time) error {
	d := time.Until(until)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
