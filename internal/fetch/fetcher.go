// Package fetch implements the multi-source post retrieval chain.
package fetch

import (
	"context"
	"errors"
	"log"
	"time"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/observability"
	"social-account-lab/internal/ratelimit"
)

// Each stage is attempted at most twice: one initial call plus one retry for
// transient errors.
const maxStageAttempts = 2

// DefaultPostLimit is the number of posts requested per account.
const DefaultPostLimit = 20

// RateLimiter is the budget gate consulted before every external call.
type RateLimiter interface {
	CheckAndReserve(source domain.FetchSource) ratelimit.Reservation
	Record(source domain.FetchSource, remaining int, resetAt time.Time)
}

// DecisionSink receives one entry per completed source call. Implementations
// must be safe for concurrent use; the fetcher may be shared across goroutines.
type DecisionSink interface {
	RecordDecision(entry *domain.FetchLogEntry)
}

// Fetcher runs the fixed-priority source chain for one handle at a time:
// primary timeline fetch, secondary from:<handle> search, tertiary web search.
type Fetcher struct {
	timeline  TimelineSource
	search    SearchSource
	webSearch WebSearchSource
	limiter   RateLimiter
	sink      DecisionSink
	logger    *log.Logger
	clock     func() time.Time
	sleep     func(ctx context.Context, until time.Time) error
}

// FetcherOptions contains configuration for creating a Fetcher.
type FetcherOptions struct {
	Timeline  TimelineSource  // nil when the X API capability is absent
	Search    SearchSource    // nil when the X API capability is absent
	WebSearch WebSearchSource // always-available tertiary stage
	Limiter   RateLimiter
	Sink      DecisionSink // optional per-decision log receiver
	Logger    *log.Logger
	Clock     func() time.Time
	// Sleep waits until the given time or context cancellation. Overridable
	// in tests; defaults to a timer-based wait.
	Sleep func(ctx context.Context, until time.Time) error
}

// NewFetcher creates a new source-chain fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepUntil
	}

	return &Fetcher{
		timeline:  opts.Timeline,
		search:    opts.Search,
		webSearch: opts.WebSearch,
		limiter:   opts.Limiter,
		sink:      opts.Sink,
		logger:    logger,
		clock:     clock,
		sleep:     sleep,
	}
}

// FetchOptions controls a single FetchPosts invocation.
type FetchOptions struct {
	// UseXAPI enables the primary and secondary X-sourced stages.
	UseXAPI bool
	// Limit is the number of posts requested; defaults to DefaultPostLimit.
	Limit int
	// AllowGenerated is a deprecated legacy flag. It is accepted for
	// compatibility, produces a warning and is always ignored: no synthetic
	// content is ever substituted for missing real data.
	AllowGenerated bool
}

// stage is one step of the source chain.
type stage struct {
	source domain.FetchSource
	call   func(ctx context.Context, limit int) ([]*domain.Post, RateLimitInfo, error)
}

// FetchPosts runs the source chain for a handle.
//
// Returns a FetchOutcome with the first stage that yielded posts. When every
// stage failed or was skipped the outcome has Source none and empty posts,
// and the error is ErrAllSourcesExhausted: the account must be marked
// unverified, never backfilled with generated content.
func (f *Fetcher) FetchPosts(ctx context.Context, handle string, opts FetchOptions) (*domain.FetchOutcome, error) {
	handle = domain.NormalizeHandle(handle)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPostLimit
	}

	if opts.AllowGenerated {
		f.logger.Printf("WARN handle=%s allow_generated is deprecated and ignored: synthetic fallback has been removed", handle)
	}

	var stages []stage
	if opts.UseXAPI && f.timeline != nil {
		stages = append(stages, stage{
			source: domain.SourcePrimaryAPI,
			call: func(ctx context.Context, limit int) ([]*domain.Post, RateLimitInfo, error) {
				return f.timeline.FetchTimeline(ctx, handle, limit)
			},
		})
	}
	if opts.UseXAPI && f.search != nil {
		stages = append(stages, stage{
			source: domain.SourceSearchAPI,
			call: func(ctx context.Context, limit int) ([]*domain.Post, RateLimitInfo, error) {
				return f.search.SearchPosts(ctx, "from:"+handle+" -is:retweet -is:reply", limit)
			},
		})
	}
	if f.webSearch != nil {
		stages = append(stages, stage{
			source: domain.SourceWebSearch,
			call: func(ctx context.Context, limit int) ([]*domain.Post, RateLimitInfo, error) {
				return f.webSearch.SearchWebPosts(ctx, handle, limit)
			},
		})
	}

	attempts := 0
	for _, st := range stages {
		posts, ok := f.runStage(ctx, st, handle, limit, &attempts)
		if ok && len(posts) > 0 {
			return &domain.FetchOutcome{
				Handle:    handle,
				Posts:     posts,
				Source:    st.source,
				Attempts:  attempts,
				FetchedAt: f.clock().UnixMilli(),
			}, nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	return &domain.FetchOutcome{
		Handle:    handle,
		Posts:     nil,
		Source:    domain.SourceNone,
		Attempts:  attempts,
		FetchedAt: f.clock().UnixMilli(),
	}, ErrAllSourcesExhausted
}

// runStage attempts one stage at most twice. Returns the posts and whether a
// call completed successfully. Transient errors are retried exactly once;
// permanent errors fall through to the next stage immediately.
func (f *Fetcher) runStage(ctx context.Context, st stage, handle string, limit int, attempts *int) ([]*domain.Post, bool) {
	for attempt := 0; attempt < maxStageAttempts; attempt++ {
		if !f.reserve(ctx, st.source, handle) {
			return nil, false
		}

		observability.RecordFetchAttempt(st.source.String())
		posts, info, err := st.call(ctx, limit)
		*attempts++
		f.limiter.Record(st.source, info.Remaining, info.ResetAt)
		if info.Remaining >= 0 {
			observability.UpdateRateLimitRemaining(st.source.String(), info.Remaining)
		}

		f.logger.Printf("fetch decision handle=%s source=%s attempt=%d rate_limit_remaining=%d reset_at=%s generated_flag=false err=%v",
			handle, st.source, attempt+1, info.Remaining, formatResetAt(info.ResetAt), err)

		if f.sink != nil {
			f.sink.RecordDecision(&domain.FetchLogEntry{
				Handle:             handle,
				Source:             st.source,
				Attempt:            attempt + 1,
				Status:             statusOf(err),
				RateLimitRemaining: info.Remaining,
				ResetAt:            resetMillis(info.ResetAt),
				GeneratedFlag:      false,
				Error:              errString(err),
				OccurredAt:         f.clock().UnixMilli(),
			})
		}

		if err == nil {
			return posts, true
		}
		if IsPermanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false
		}
		// Transient: loop once more for the single retry.
	}
	return nil, false
}

// reserve consults the rate limiter, blocking within the configured ceiling.
// Returns false when the source is unavailable or the context was cancelled.
func (f *Fetcher) reserve(ctx context.Context, source domain.FetchSource, handle string) bool {
	res := f.limiter.CheckAndReserve(source)
	if res.Allowed {
		return true
	}

	if res.WaitUntil.IsZero() {
		f.logger.Printf("fetch skip handle=%s source=%s reason=%v", handle, source, ErrSourceUnavailable)
		observability.RecordRateLimitDenied(source.String())
		return false
	}

	f.logger.Printf("fetch wait handle=%s source=%s until=%s", handle, source, res.WaitUntil.Format(time.RFC3339))
	observability.RecordRateLimitWait(source.String())
	if err := f.sleep(ctx, res.WaitUntil); err != nil {
		return false
	}

	res = f.limiter.CheckAndReserve(source)
	return res.Allowed
}

// sleepUntil blocks until the deadline or context cancellation.
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

func formatResetAt(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func resetMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func statusOf(err error) int {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
