package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"social-account-lab/internal/discovery"
	"social-account-lab/internal/domain"
	"social-account-lab/internal/idhash"
	"social-account-lab/internal/observability"
	"social-account-lab/internal/reporting"
	"social-account-lab/internal/storage"
)

// DiscoveryMode selects how candidate accounts are found.
type DiscoveryMode string

const (
	// ModeKeyword discovers through a single keyword or preset short name.
	ModeKeyword DiscoveryMode = "keyword"
	// ModeRandom discovers through a shuffled preset query pool.
	ModeRandom DiscoveryMode = "random"
	// ModePreset walks every query of one preset category in order.
	ModePreset DiscoveryMode = "preset"
	// ModeDiversity oversamples a discovery pool and applies diversity
	// sampling. The only mode whose output is sampled.
	ModeDiversity DiscoveryMode = "diversity"
)

// String returns the string representation of DiscoveryMode.
func (m DiscoveryMode) String() string {
	return string(m)
}

// IsValid checks if the mode is a valid value.
func (m DiscoveryMode) IsValid() bool {
	switch m {
	case ModeKeyword, ModeRandom, ModePreset, ModeDiversity:
		return true
	}
	return false
}

// hybridPoolFactor: diversity mode discovers this many times the requested
// result count before sampling, so strata have material to draw from.
const hybridPoolFactor = 3

// AccountDiscoverer issues candidate searches. Satisfied by discovery.Discoverer.
type AccountDiscoverer interface {
	DiscoverByKeyword(ctx context.Context, keyword string, maxResults int) ([]*domain.CandidateAccount, error)
	DiscoverRandom(ctx context.Context, maxResults int, category string) ([]*domain.CandidateAccount, error)
}

// DiversitySampler reduces a candidate pool to a diverse subset.
// Satisfied by sampling.Sampler.
type DiversitySampler interface {
	SampleDiverse(ctx context.Context, candidates []*domain.CandidateAccount, maxResults int, method domain.SamplingMethod, quotas domain.QuotaTable) ([]*domain.CandidateAccount, error)
}

// DiscoveryRunner drives one discovery run: mode dispatch, optional diversity
// sampling and candidate persistence.
type DiscoveryRunner struct {
	discoverer AccountDiscoverer
	sampler    DiversitySampler
	store      storage.CandidateStore // nil disables persistence
	presets    discovery.PresetTable
	logger     *log.Logger
	clock      func() time.Time
}

// DiscoveryRunnerOptions contains configuration for creating a DiscoveryRunner.
type DiscoveryRunnerOptions struct {
	Discoverer AccountDiscoverer
	Sampler    DiversitySampler // required for ModeDiversity only
	Store      storage.CandidateStore
	// Presets overrides the built-in preset table for ModePreset. Nil keeps
	// the built-in.
	Presets discovery.PresetTable
	Logger  *log.Logger
	Clock   func() time.Time
}

// NewDiscoveryRunner creates a DiscoveryRunner.
func NewDiscoveryRunner(opts DiscoveryRunnerOptions) *DiscoveryRunner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	presets := opts.Presets
	if presets == nil {
		presets = discovery.DefaultPresets()
	}

	return &DiscoveryRunner{
		discoverer: opts.Discoverer,
		sampler:    opts.Sampler,
		store:      opts.Store,
		presets:    presets,
		logger:     logger,
		clock:      clock,
	}
}

// DiscoveryOptions controls a single discovery run.
type DiscoveryOptions struct {
	Mode       DiscoveryMode
	Keyword    string // required for ModeKeyword; optional pool seed for ModeDiversity
	Category   string // preset category for ModeRandom/ModePreset, filter for ModeDiversity
	MaxResults int

	// SamplingMethod and Quotas apply to ModeDiversity only.
	SamplingMethod domain.SamplingMethod
	Quotas         domain.QuotaTable

	// DryRun disables candidate persistence.
	DryRun bool
}

// Run executes one discovery run and returns the candidates with a summary.
//
// Keyword, random and preset output is returned in discovery order, never
// diversity sampled. Diversity mode oversamples a pool and reduces it with
// exactly one sampling strategy; its candidates are retagged as hybrid.
func (r *DiscoveryRunner) Run(ctx context.Context, opts DiscoveryOptions) ([]*domain.CandidateAccount, *reporting.RunSummary, error) {
	started := r.clock()

	if !opts.Mode.IsValid() {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}
	if opts.MaxResults <= 0 {
		return nil, nil, fmt.Errorf("max results must be positive, got %d", opts.MaxResults)
	}

	var candidates []*domain.CandidateAccount
	var err error

	switch opts.Mode {
	case ModeKeyword:
		if strings.TrimSpace(opts.Keyword) == "" {
			return nil, nil, ErrMissingKeyword
		}
		candidates, err = r.discoverer.DiscoverByKeyword(ctx, opts.Keyword, opts.MaxResults)
	case ModeRandom:
		candidates, err = r.discoverer.DiscoverRandom(ctx, opts.MaxResults, opts.Category)
	case ModePreset:
		candidates, err = r.runPreset(ctx, opts)
	case ModeDiversity:
		candidates, err = r.runDiversity(ctx, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	for _, c := range candidates {
		observability.RecordCandidateDiscovered(c.Origin.String())
	}

	if !opts.DryRun {
		r.persist(ctx, candidates)
	}

	summary := r.summarize(opts.Mode, candidates)
	observability.RecordPipelineDuration(summary.Mode, r.clock().Sub(started).Seconds())

	return candidates, summary, nil
}

// runPreset walks one category's query pool in order, deduplicating by handle.
func (r *DiscoveryRunner) runPreset(ctx context.Context, opts DiscoveryOptions) ([]*domain.CandidateAccount, error) {
	category := opts.Category
	if category == "" {
		category = opts.Keyword
	}
	pool, err := r.presets.Pool(category)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var collected []*domain.CandidateAccount

	for _, query := range pool {
		if len(collected) >= opts.MaxResults {
			break
		}
		if ctx.Err() != nil {
			return collected, ctx.Err()
		}

		batch, err := r.discoverer.DiscoverByKeyword(ctx, query, opts.MaxResults)
		if err != nil {
			r.logger.Printf("preset query failed query=%q err=%v", query, err)
			continue
		}
		for _, c := range batch {
			key := domain.NormalizeHandle(c.Handle)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			collected = append(collected, c)
			if len(collected) >= opts.MaxResults {
				break
			}
		}
	}

	return collected, nil
}

// runDiversity oversamples a pool and reduces it with the configured strategy.
func (r *DiscoveryRunner) runDiversity(ctx context.Context, opts DiscoveryOptions) ([]*domain.CandidateAccount, error) {
	if r.sampler == nil {
		return nil, errors.New("diversity mode requires a sampler")
	}

	poolSize := opts.MaxResults * hybridPoolFactor

	var pool []*domain.CandidateAccount
	var err error
	if strings.TrimSpace(opts.Keyword) != "" {
		pool, err = r.discoverer.DiscoverByKeyword(ctx, opts.Keyword, poolSize)
	} else {
		pool, err = r.discoverer.DiscoverRandom(ctx, poolSize, opts.Category)
	}
	if err != nil {
		return nil, err
	}

	method := opts.SamplingMethod
	if method == "" {
		method = domain.SamplingStratified
	}

	sampled, err := r.sampler.SampleDiverse(ctx, pool, opts.MaxResults, method, opts.Quotas)
	if err != nil {
		return nil, err
	}

	// Sampled candidates carry the hybrid origin; the id is recomputed so the
	// same handle keeps distinct records per discovery path.
	for _, c := range sampled {
		c.Origin = domain.OriginHybrid
		c.CandidateID = idhash.ComputeCandidateID(c.Handle, domain.OriginHybrid, c.Query)
	}

	return sampled, nil
}

// persist inserts candidates, tolerating replays of already-known records.
func (r *DiscoveryRunner) persist(ctx context.Context, candidates []*domain.CandidateAccount) {
	if r.store == nil {
		return
	}
	for _, c := range candidates {
		err := r.store.Insert(ctx, c)
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Printf("candidate already known candidate_id=%s handle=%s", c.CandidateID, c.Handle)
			continue
		}
		if err != nil {
			r.logger.Printf("candidate insert failed handle=%s err=%v", c.Handle, err)
		}
	}
}

// summarize builds the run summary for a discovery run.
func (r *DiscoveryRunner) summarize(mode DiscoveryMode, candidates []*domain.CandidateAccount) *reporting.RunSummary {
	summary := &reporting.RunSummary{
		Mode:      mode.String(),
		Processed: len(candidates),
		Verified:  len(candidates),
		PerSource: make(map[string]int),
	}

	for _, c := range candidates {
		summary.PerSource[reporting.SourceTag(c.Origin)]++
		if strings.HasPrefix(c.Handle, domain.PlaceholderIDPrefix) {
			summary.GeneratedSeen++
		}
	}
	if summary.Processed > 0 {
		summary.RealDataRatio = float64(summary.Processed-summary.GeneratedSeen) / float64(summary.Processed)
	}

	return summary
}
