package discovery_test

import (
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"testing"
	"time"

	"social-account-lab/internal/discovery"
	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/fetch/stub"
	"social-account-lab/internal/quality"
	"social-account-lab/internal/ratelimit"
)

// scriptedSearcher returns a fixed account list, recording queries.
type scriptedSearcher struct {
	accounts []fetch.DiscoveredAccount
	err      error
	queries  []string
}

func (s *scriptedSearcher) DiscoverAccounts(_ context.Context, keyword string, _ int) ([]fetch.DiscoveredAccount, fetch.RateLimitInfo, error) {
	s.queries = append(s.queries, keyword)
	if s.err != nil {
		return nil, fetch.NoRateLimitInfo, s.err
	}
	return s.accounts, fetch.NoRateLimitInfo, nil
}

func newTestDiscoverer(searcher discovery.AccountSearcher) *discovery.Discoverer {
	return discovery.New(discovery.Options{
		Searcher: searcher,
		Logger:   log.New(io.Discard, "", 0),
		Clock:    func() time.Time { return time.Unix(1_700_000_000, 0) },
		Rand:     rand.New(rand.NewSource(7)),
	})
}

func TestDiscoverByKeyword_PlaceholderCandidates(t *testing.T) {
	d := newTestDiscoverer(stub.NewPlaceholder(1))

	got, err := d.DiscoverByKeyword(context.Background(), "AI engineer", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(got))
	}

	for i, c := range got {
		if c.Origin != domain.OriginKeyword {
			t.Errorf("candidate %d: expected keyword origin, got %s", i, c.Origin)
		}
		if len(c.CandidateID) != 64 {
			t.Errorf("candidate %d: expected 64-char candidate ID, got %d", i, len(c.CandidateID))
		}
		if c.Quality == nil || !c.Quality.Passed {
			t.Errorf("candidate %d: expected a passing quality assessment", i)
		}
		if c.Confidence < discovery.MinConfidence {
			t.Errorf("candidate %d: confidence %.2f below the discovery floor", i, c.Confidence)
		}
		if i > 0 && got[i-1].Confidence < c.Confidence {
			t.Errorf("candidates not sorted by descending confidence at index %d", i)
		}
	}
}

func TestDiscoverByKeyword_FiltersLowConfidence(t *testing.T) {
	searcher := &scriptedSearcher{accounts: []fetch.DiscoveredAccount{
		{Handle: "strong", DisplayName: "Strong", Description: "verified profile with a real posting history", Confidence: 0.9},
		{Handle: "weak", DisplayName: "Weak", Description: "possibly this person", Confidence: 0.5},
	}}
	d := newTestDiscoverer(searcher)

	got, err := d.DiscoverByKeyword(context.Background(), "distributed systems", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 surviving candidate, got %d", len(got))
	}
	if got[0].Handle != "strong" {
		t.Errorf("expected handle strong, got %s", got[0].Handle)
	}
}

func TestDiscoverByKeyword_NormalizesHandles(t *testing.T) {
	searcher := &scriptedSearcher{accounts: []fetch.DiscoveredAccount{
		{Handle: "@Alice_Dev", Confidence: 0.9, Description: "building developer tooling and writing about it"},
	}}
	d := newTestDiscoverer(searcher)

	got, err := d.DiscoverByKeyword(context.Background(), "devtools", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Handle != "alice_dev" {
		t.Errorf("expected normalized handle alice_dev, got %s", got[0].Handle)
	}
}

func TestDiscoverByKeyword_ResolvesPreset(t *testing.T) {
	searcher := &scriptedSearcher{}
	d := newTestDiscoverer(searcher)

	if _, err := d.DiscoverByKeyword(context.Background(), "tech", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) != 1 {
		t.Fatalf("expected 1 search call, got %d", len(searcher.queries))
	}
	if searcher.queries[0] == "tech" {
		t.Errorf("expected the short preset name to be expanded, got %q", searcher.queries[0])
	}
}

func TestDiscoverByKeyword_SearchError(t *testing.T) {
	wantErr := errors.New("upstream unavailable")
	d := newTestDiscoverer(&scriptedSearcher{err: wantErr})

	_, err := d.DiscoverByKeyword(context.Background(), "climate", 5)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped search error, got %v", err)
	}
}

func TestDiscoverByKeyword_RateBudgetExhausted(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tracker := ratelimit.New(ratelimit.Options{
		InitialRemaining: 10,
		MaxWait:          0,
		Clock:            func() time.Time { return now },
	})
	tracker.Record(domain.SourceWebSearch, 0, now.Add(10*time.Minute))

	searcher := &scriptedSearcher{}
	d := discovery.New(discovery.Options{
		Searcher: searcher,
		Limiter:  tracker,
		Logger:   log.New(io.Discard, "", 0),
	})

	_, err := d.DiscoverByKeyword(context.Background(), "robotics", 5)
	if !errors.Is(err, fetch.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if len(searcher.queries) != 0 {
		t.Errorf("expected no search calls with an exhausted budget, got %d", len(searcher.queries))
	}
}

func TestDiscoverRandom_UniqueHandles(t *testing.T) {
	d := newTestDiscoverer(stub.NewPlaceholder(1))

	got, err := d.DiscoverRandom(context.Background(), 8, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected candidates from the preset pool")
	}
	if len(got) > 8 {
		t.Fatalf("expected at most 8 candidates, got %d", len(got))
	}

	seen := make(map[string]bool)
	for _, c := range got {
		if c.Origin != domain.OriginRandom {
			t.Errorf("expected random origin, got %s", c.Origin)
		}
		if seen[c.Handle] {
			t.Errorf("duplicate handle %s in random discovery output", c.Handle)
		}
		seen[c.Handle] = true
	}
}

func TestDiscoverRandom_UnknownCategory(t *testing.T) {
	d := newTestDiscoverer(stub.NewPlaceholder(1))

	_, err := d.DiscoverRandom(context.Background(), 5, "astrology")
	if !errors.Is(err, discovery.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestDiscoverRandom_PresetOverrides(t *testing.T) {
	searcher := &scriptedSearcher{}
	d := discovery.New(discovery.Options{
		Searcher: searcher,
		Presets: discovery.MergedPresets(map[string][]string{
			discovery.CategoryHealth: {"sleep researchers"},
		}),
		Logger: log.New(io.Discard, "", 0),
		Rand:   rand.New(rand.NewSource(7)),
	})

	if _, err := d.DiscoverRandom(context.Background(), 5, discovery.CategoryHealth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "sleep researchers" {
		t.Fatalf("expected the override query only, got %v", searcher.queries)
	}

	// Categories absent from the overrides keep the built-in queries.
	if _, err := d.DiscoverRandom(context.Background(), 1, discovery.CategoryAI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) < 2 {
		t.Fatal("expected a built-in query for an untouched category")
	}
}

// scriptedMetrics resolves fixed metrics per handle.
type scriptedMetrics struct {
	metrics map[string]*domain.AccountMetrics
	err     error
	handles []string
}

func (s *scriptedMetrics) AccountMetrics(_ context.Context, handle string) (*domain.AccountMetrics, error) {
	s.handles = append(s.handles, handle)
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.metrics[handle]
	if !ok {
		return nil, errors.New("unknown handle")
	}
	return m, nil
}

func TestDiscoverByKeyword_MetricsEnrichment(t *testing.T) {
	searcher := &scriptedSearcher{accounts: []fetch.DiscoveredAccount{
		{Handle: "alice", Confidence: 0.9, Description: "writes long essays about compilers and tooling"},
	}}
	provider := &scriptedMetrics{metrics: map[string]*domain.AccountMetrics{
		"alice": {FollowersCount: 50_000, PostCount: 2_000, InactiveDays: 3},
	}}
	d := discovery.New(discovery.Options{
		Searcher: searcher,
		Metrics:  provider,
		Logger:   log.New(io.Discard, "", 0),
	})

	got, err := d.DiscoverByKeyword(context.Background(), "compilers", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Metrics == nil || got[0].Metrics.FollowersCount != 50_000 {
		t.Fatalf("expected resolved metrics on the candidate, got %+v", got[0].Metrics)
	}
	if got[0].Quality.Mode != domain.ScoreModeMetric {
		t.Errorf("expected metric scoring mode, got %s", got[0].Quality.Mode)
	}
	if len(provider.handles) != 1 || provider.handles[0] != "alice" {
		t.Errorf("expected one lookup for alice, got %v", provider.handles)
	}
}

func TestDiscoverByKeyword_ConfiguredThresholds(t *testing.T) {
	searcher := &scriptedSearcher{accounts: []fetch.DiscoveredAccount{
		{Handle: "carol", Confidence: 0.95, Description: "daily threads on database internals and storage engines"},
	}}
	provider := &scriptedMetrics{metrics: map[string]*domain.AccountMetrics{
		"carol": {FollowersCount: 5_000, PostCount: 100, InactiveDays: 10},
	}}
	d := discovery.New(discovery.Options{
		Searcher: searcher,
		Scorer:   quality.NewScorer(quality.Thresholds{MinFollowers: 10_000}),
		Metrics:  provider,
		Logger:   log.New(io.Discard, "", 0),
	})

	got, err := d.DiscoverByKeyword(context.Background(), "databases", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected the raised follower floor to exclude the candidate, got %d", len(got))
	}
}

func TestDiscoverByKeyword_MetricsLookupFailureFallsBack(t *testing.T) {
	searcher := &scriptedSearcher{accounts: []fetch.DiscoveredAccount{
		{Handle: "bob", Confidence: 0.85, Description: "covers infrastructure outages with detailed writeups"},
	}}
	d := discovery.New(discovery.Options{
		Searcher: searcher,
		Metrics:  &scriptedMetrics{err: errors.New("user endpoint down")},
		Logger:   log.New(io.Discard, "", 0),
	})

	got, err := d.DiscoverByKeyword(context.Background(), "sre", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Quality.Mode != domain.ScoreModeFallback {
		t.Errorf("expected fallback scoring mode after a failed lookup, got %s", got[0].Quality.Mode)
	}
}
