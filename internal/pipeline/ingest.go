// Package pipeline orchestrates the ingestion and discovery runs.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/observability"
	"social-account-lab/internal/reporting"
	"social-account-lab/internal/storage"
)

// DefaultBatchSize is the number of handles processed concurrently per batch.
const DefaultBatchSize = 10

// DefaultBatchPause is the pause between batches.
const DefaultBatchPause = 2 * time.Second

// maxGeneratedRatio is the production gate: runs where synthetic records
// exceed this share of processed accounts fail with ErrGeneratedRatioExceeded.
const maxGeneratedRatio = 0.05

// PostFetcher runs the source chain for one handle. Satisfied by fetch.Fetcher.
type PostFetcher interface {
	FetchPosts(ctx context.Context, handle string, opts fetch.FetchOptions) (*domain.FetchOutcome, error)
}

// DecisionBuffer collects per-call fetch decisions for bulk persistence.
// Safe for concurrent use; wire it as the fetcher's sink.
type DecisionBuffer struct {
	mu      sync.Mutex
	entries []*domain.FetchLogEntry
}

// Compile-time interface check.
var _ fetch.DecisionSink = (*DecisionBuffer)(nil)

// RecordDecision appends one decision entry.
func (b *DecisionBuffer) RecordDecision(entry *domain.FetchLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// Drain returns the collected entries and resets the buffer.
func (b *DecisionBuffer) Drain() []*domain.FetchLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.entries
	b.entries = nil
	return entries
}

// AccountResult is the per-handle outcome of an ingestion run.
type AccountResult struct {
	Handle        string
	Status        domain.AccountStatus
	Source        domain.FetchSource
	Posts         []*domain.Post
	CacheHit      bool
	SyntheticSeen bool   // a synthetic-marked record was observed for this handle
	Reason        string // empty when verified
}

// Ingestor runs batched account ingestion: cache check, source-chain fetch,
// cache write-through and per-run accounting.
type Ingestor struct {
	fetcher   PostFetcher
	cache     storage.AccountCacheStore
	fetchLog  storage.FetchLogStore
	decisions *DecisionBuffer
	logger    *log.Logger
	clock     func() time.Time
	batchSize int
	pause     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// IngestorOptions contains configuration for creating an Ingestor.
type IngestorOptions struct {
	Fetcher  PostFetcher
	Cache    storage.AccountCacheStore // nil disables caching
	FetchLog storage.FetchLogStore     // nil disables decision persistence
	// Decisions is the buffer wired as the fetcher's sink. When set together
	// with FetchLog, collected entries are flushed after each run.
	Decisions *DecisionBuffer
	Logger    *log.Logger
	Clock     func() time.Time
	BatchSize int
	Pause     time.Duration
	// Sleep waits for the inter-batch pause. Overridable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewIngestor creates an Ingestor.
func NewIngestor(opts IngestorOptions) *Ingestor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	pause := opts.Pause
	if pause < 0 {
		pause = 0
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepFor
	}

	return &Ingestor{
		fetcher:   opts.Fetcher,
		cache:     opts.Cache,
		fetchLog:  opts.FetchLog,
		decisions: opts.Decisions,
		logger:    logger,
		clock:     clock,
		batchSize: batchSize,
		pause:     pause,
		sleep:     sleep,
	}
}

// RunOptions controls a single ingestion run.
type RunOptions struct {
	// UseXAPI enables the primary and secondary X-sourced stages.
	UseXAPI bool
	// ForceRefresh bypasses the cache read and refetches every handle.
	ForceRefresh bool
	// DryRun isolates the run from real storage: no cache reads or writes,
	// no decision-log persistence.
	DryRun bool
	// Production enables the generated-ratio gate.
	Production bool
	// AllowGenerated is a deprecated legacy flag, accepted and ignored.
	AllowGenerated bool
}

// Run processes the given handles in batches and returns the run summary
// together with per-handle results.
//
// Handles are normalized and deduplicated first; an input with no usable
// handles fails with ErrNoValidHandles. In production mode a synthetic-record
// share above 5% fails the run with ErrGeneratedRatioExceeded after all
// handles were processed.
func (ing *Ingestor) Run(ctx context.Context, handles []string, opts RunOptions) (*reporting.RunSummary, []*AccountResult, error) {
	started := ing.clock()

	handles = dedupeHandles(handles)
	if len(handles) == 0 {
		return nil, nil, ErrNoValidHandles
	}

	results := make([]*AccountResult, len(handles))

	for start := 0; start < len(handles); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(handles) {
			end = len(handles)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = ing.processOne(ctx, handles[i], opts)
			}(i)
		}
		wg.Wait()

		ing.recordBatch(results[start:end])

		if end < len(handles) && ing.pause > 0 {
			if err := ing.sleep(ctx, ing.pause); err != nil {
				return nil, nil, err
			}
		}
	}

	summary := ing.summarize(results)
	ing.flushDecisions(ctx, opts.DryRun)

	observability.UpdateGeneratedRatio(1 - summary.RealDataRatio)
	observability.RecordPipelineDuration(summary.Mode, ing.clock().Sub(started).Seconds())

	if opts.Production && summary.Processed > 0 {
		ratio := float64(summary.GeneratedSeen) / float64(summary.Processed)
		if ratio > maxGeneratedRatio {
			return summary, results, ErrGeneratedRatioExceeded
		}
	}

	return summary, results, nil
}

// processOne handles a single account: cache lookup, fetch, write-through.
func (ing *Ingestor) processOne(ctx context.Context, handle string, opts RunOptions) *AccountResult {
	result := &AccountResult{
		Handle: handle,
		Status: domain.StatusUnverified,
		Source: domain.SourceNone,
	}

	if ing.cache != nil && !opts.DryRun && !opts.ForceRefresh {
		rec, err := ing.cache.Get(ctx, handle)
		switch {
		case err == nil && rec.ContainsSynthetic():
			// Poisoned legacy record: treat as a miss and refetch.
			result.SyntheticSeen = true
			ing.logger.Printf("cache hygiene handle=%s: synthetic markers present, treating as miss", handle)
		case err == nil:
			result.CacheHit = true
			result.Source = rec.Source
			result.Posts = rec.Posts
			if len(rec.Posts) > 0 {
				result.Status = domain.StatusVerified
			} else {
				result.Reason = "cached record has no posts"
			}
			return result
		case !errors.Is(err, storage.ErrNotFound):
			ing.logger.Printf("cache read failed handle=%s err=%v", handle, err)
		}
	}

	outcome, err := ing.fetcher.FetchPosts(ctx, handle, fetch.FetchOptions{
		UseXAPI:        opts.UseXAPI,
		AllowGenerated: opts.AllowGenerated,
	})
	if err != nil {
		result.Reason = err.Error()
		observability.RecordFetchOutcome(domain.SourceNone.String(), "exhausted")
		return result
	}

	result.Source = outcome.Source
	result.Posts = outcome.Posts

	if outcome.ContainsSynthetic() {
		// Sources never emit synthetic markers; a marked outcome is untrusted.
		result.SyntheticSeen = true
		result.Reason = "outcome contains synthetic markers"
		observability.RecordFetchOutcome(outcome.Source.String(), "synthetic")
		return result
	}

	if !outcome.HasRealPosts() {
		result.Reason = "no real posts from any source"
		observability.RecordFetchOutcome(outcome.Source.String(), "empty")
		return result
	}

	result.Status = domain.StatusVerified
	observability.RecordFetchOutcome(outcome.Source.String(), "ok")
	observability.RecordPostsFetched(outcome.Source.String(), len(outcome.Posts))

	if ing.cache != nil && !opts.DryRun {
		rec := &domain.CachedAccount{
			Handle:    handle,
			Posts:     outcome.Posts,
			Source:    outcome.Source,
			FetchedAt: outcome.FetchedAt,
		}
		if err := ing.cache.Put(ctx, rec); err != nil {
			ing.logger.Printf("cache write failed handle=%s err=%v", handle, err)
		}
	}

	return result
}

// recordBatch emits batch-level counters.
func (ing *Ingestor) recordBatch(batch []*AccountResult) {
	verified, unverified, cacheHits := 0, 0, 0
	for _, r := range batch {
		if r.Status == domain.StatusVerified {
			verified++
		} else {
			unverified++
		}
		if r.CacheHit {
			cacheHits++
		}
	}
	observability.RecordBatch(verified, unverified, cacheHits)
}

// summarize builds the run summary from per-handle results.
func (ing *Ingestor) summarize(results []*AccountResult) *reporting.RunSummary {
	summary := &reporting.RunSummary{
		Mode:      "ingest",
		Processed: len(results),
		PerSource: make(map[string]int),
	}

	for _, r := range results {
		if r.Status == domain.StatusVerified {
			summary.Verified++
		} else {
			summary.Unverified++
		}
		if r.CacheHit {
			summary.CacheHits++
		} else if r.Status == domain.StatusVerified {
			summary.PerSource[r.Source.String()]++
		}
		if r.SyntheticSeen {
			summary.GeneratedSeen++
		}
	}

	if summary.Processed > 0 {
		summary.RealDataRatio = float64(summary.Processed-summary.GeneratedSeen) / float64(summary.Processed)
	}

	return summary
}

// flushDecisions persists buffered fetch decisions. Dry runs discard them.
func (ing *Ingestor) flushDecisions(ctx context.Context, dryRun bool) {
	if ing.decisions == nil {
		return
	}
	entries := ing.decisions.Drain()
	if dryRun || ing.fetchLog == nil || len(entries) == 0 {
		return
	}
	if err := ing.fetchLog.InsertBulk(ctx, entries); err != nil {
		ing.logger.Printf("fetch log write failed entries=%d err=%v", len(entries), err)
	}
}

// dedupeHandles normalizes and deduplicates input handles, preserving the
// first-seen order.
func dedupeHandles(handles []string) []string {
	seen := make(map[string]bool, len(handles))
	var out []string
	for _, h := range handles {
		normalized := domain.NormalizeHandle(h)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// sleepFor blocks for the duration or until context cancellation.
func sleepFor(ctx context.Context, d time.Duration) error {
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
