package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/fetch/stub"
	"social-account-lab/internal/ratelimit"
)

func newTestLimiter() *ratelimit.Tracker {
	return ratelimit.New(ratelimit.Options{
		InitialRemaining: 100,
		MaxWait:          0,
		Clock:            func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
}

func realPosts(n int) []*domain.Post {
	posts := make([]*domain.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, &domain.Post{
			ID:   fmt.Sprintf("17295%05d", i),
			Text: fmt.Sprintf("post %d", i),
		})
	}
	return posts
}

func TestFetchPosts_PrimarySucceeds(t *testing.T) {
	timeline := &stub.TimelineSource{Posts: realPosts(3), Info: fetch.NoRateLimitInfo}
	search := &stub.SearchSource{Posts: realPosts(3)}
	web := &stub.WebSearchSource{Posts: realPosts(3)}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  timeline,
		Search:    search,
		WebSearch: web,
		Limiter:   newTestLimiter(),
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "@Alice", fetch.FetchOptions{UseXAPI: true})
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}

	if outcome.Source != domain.SourcePrimaryAPI {
		t.Errorf("expected source %s, got %s", domain.SourcePrimaryAPI, outcome.Source)
	}
	if outcome.Handle != "alice" {
		t.Errorf("expected normalized handle alice, got %s", outcome.Handle)
	}
	if len(outcome.Posts) != 3 {
		t.Errorf("expected 3 posts, got %d", len(outcome.Posts))
	}
	if outcome.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", outcome.Attempts)
	}
	if search.Calls != 0 || web.Calls != 0 {
		t.Errorf("later stages must not run after primary success: search=%d web=%d", search.Calls, web.Calls)
	}
}

func TestFetchPosts_PermanentErrorNeverRetried(t *testing.T) {
	// 429 is terminal: the stage must not be retried.
	timeline := &stub.TimelineSource{Err: &fetch.SourceError{
		Source: domain.SourcePrimaryAPI,
		Status: 429,
		Err:    errors.New("rate limited"),
	}}
	web := &stub.WebSearchSource{Posts: realPosts(2)}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  timeline,
		WebSearch: web,
		Limiter:   newTestLimiter(),
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{UseXAPI: true})
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}

	if timeline.Calls != 1 {
		t.Errorf("permanent error must not be retried: timeline called %d times", timeline.Calls)
	}
	if outcome.Source != domain.SourceWebSearch {
		t.Errorf("expected fallthrough to web search, got %s", outcome.Source)
	}
}

func TestFetchPosts_TransientErrorRetriedExactlyOnce(t *testing.T) {
	// First call times out, retry succeeds.
	timeline := &stub.ErrSequenceSource{
		Errs:  []error{&fetch.SourceError{Source: domain.SourcePrimaryAPI, Err: errors.New("timeout")}, nil},
		Posts: realPosts(2),
	}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  timeline,
		WebSearch: &stub.WebSearchSource{Posts: realPosts(2)},
		Limiter:   newTestLimiter(),
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{UseXAPI: true})
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}

	if timeline.Calls != 2 {
		t.Errorf("transient error must be retried exactly once: got %d calls", timeline.Calls)
	}
	if outcome.Source != domain.SourcePrimaryAPI {
		t.Errorf("expected primary source after retry, got %s", outcome.Source)
	}
	if outcome.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", outcome.Attempts)
	}
}

func TestFetchPosts_TransientTwiceFallsThrough(t *testing.T) {
	transient := &fetch.SourceError{Source: domain.SourcePrimaryAPI, Err: errors.New("connection reset")}
	timeline := &stub.ErrSequenceSource{Errs: []error{transient, transient}}
	web := &stub.WebSearchSource{Posts: realPosts(2)}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  timeline,
		WebSearch: web,
		Limiter:   newTestLimiter(),
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{UseXAPI: true})
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}

	if timeline.Calls != 2 {
		t.Errorf("expected 2 attempts on failing stage, got %d", timeline.Calls)
	}
	if outcome.Source != domain.SourceWebSearch {
		t.Errorf("expected fallthrough to web search, got %s", outcome.Source)
	}
}

func TestFetchPosts_NoXAPI_SkipsXStages(t *testing.T) {
	timeline := &stub.TimelineSource{Posts: realPosts(3)}
	search := &stub.SearchSource{Posts: realPosts(3)}
	web := &stub.WebSearchSource{Posts: realPosts(3)}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  timeline,
		Search:    search,
		WebSearch: web,
		Limiter:   newTestLimiter(),
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{UseXAPI: false})
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}

	if timeline.Calls != 0 || search.Calls != 0 {
		t.Errorf("X stages must never run without use_x_api: timeline=%d search=%d", timeline.Calls, search.Calls)
	}
	if outcome.Source != domain.SourceWebSearch {
		t.Errorf("expected web search source, got %s", outcome.Source)
	}
}

func TestFetchPosts_AllStagesFail_MarksExhausted(t *testing.T) {
	boom := &fetch.SourceError{Source: domain.SourceWebSearch, Status: 404, Err: errors.New("nope")}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  &stub.TimelineSource{Err: boom},
		Search:    &stub.SearchSource{Err: boom},
		WebSearch: &stub.WebSearchSource{Err: boom},
		Limiter:   newTestLimiter(),
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{UseXAPI: true})
	if !errors.Is(err, fetch.ErrAllSourcesExhausted) {
		t.Fatalf("expected ErrAllSourcesExhausted, got %v", err)
	}

	if outcome.Source != domain.SourceNone {
		t.Errorf("expected source none, got %s", outcome.Source)
	}
	if len(outcome.Posts) != 0 {
		t.Errorf("exhausted outcome must carry no posts, got %d: no synthetic substitution", len(outcome.Posts))
	}
}

func TestFetchPosts_RateBudgetExhausted_SkipsSource(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := ratelimit.New(ratelimit.Options{
		InitialRemaining: 100,
		MaxWait:          0, // interactive: never block
		Clock:            func() time.Time { return now },
	})
	limiter.Record(domain.SourcePrimaryAPI, 0, now.Add(10*time.Minute))

	timeline := &stub.TimelineSource{Posts: realPosts(3)}
	web := &stub.WebSearchSource{Posts: realPosts(3)}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		Timeline:  timeline,
		WebSearch: web,
		Limiter:   limiter,
		Logger:    log.New(bytes.NewBuffer(nil), "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{UseXAPI: true})
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}

	if timeline.Calls != 0 {
		t.Errorf("exhausted source must be skipped without a call, got %d calls", timeline.Calls)
	}
	if outcome.Source != domain.SourceWebSearch {
		t.Errorf("expected web search fallthrough, got %s", outcome.Source)
	}
}

func TestFetchPosts_AllowGeneratedIsNoOp(t *testing.T) {
	var logBuf bytes.Buffer
	boom := &fetch.SourceError{Source: domain.SourceWebSearch, Status: 404, Err: errors.New("nope")}

	f := fetch.NewFetcher(fetch.FetcherOptions{
		WebSearch: &stub.WebSearchSource{Err: boom},
		Limiter:   newTestLimiter(),
		Logger:    log.New(&logBuf, "", 0),
	})

	outcome, err := f.FetchPosts(context.Background(), "alice", fetch.FetchOptions{AllowGenerated: true})
	if !errors.Is(err, fetch.ErrAllSourcesExhausted) {
		t.Fatalf("expected ErrAllSourcesExhausted, got %v", err)
	}

	// The legacy flag must warn and change nothing.
	if !bytes.Contains(logBuf.Bytes(), []byte("deprecated")) {
		t.Error("expected deprecation warning for allow_generated")
	}
	if len(outcome.Posts) != 0 || outcome.Source != domain.SourceNone {
		t.Errorf("allow_generated must not resurrect synthetic fallback: %+v", outcome)
	}
}
