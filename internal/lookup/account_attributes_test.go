package lookup

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/ratelimit"
)

type scriptedUserSource struct {
	user    *fetch.UserInfo
	err     error
	handles []string
}

func (s *scriptedUserSource) LookupUser(_ context.Context, handle string) (*fetch.UserInfo, fetch.RateLimitInfo, error) {
	s.handles = append(s.handles, handle)
	if s.err != nil {
		return nil, fetch.NoRateLimitInfo, s.err
	}
	return s.user, fetch.NoRateLimitInfo, nil
}

func newTestLookup(source UserSource, limiter fetch.RateLimiter) *AttributeLookup {
	return New(Options{
		Source:  source,
		Limiter: limiter,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func TestAccountAttributesDerivesTier(t *testing.T) {
	source := &scriptedUserSource{user: &fetch.UserInfo{
		Handle:  "alice",
		Metrics: domain.AccountMetrics{FollowersCount: 50_000},
	}}
	l := newTestLookup(source, nil)

	attrs, err := l.AccountAttributes(context.Background(), "@Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.FollowersTier != domain.TierLarge {
		t.Errorf("expected large tier, got %s", attrs.FollowersTier)
	}
	// Signals the endpoint cannot supply stay empty for the enricher.
	if attrs.Region != "" || attrs.Language != "" || attrs.Sentiment != "" {
		t.Errorf("expected empty region/language/sentiment, got %+v", attrs)
	}
	if len(source.handles) != 1 || source.handles[0] != "alice" {
		t.Errorf("handle not normalized before lookup: %v", source.handles)
	}
}

func TestAccountMetrics(t *testing.T) {
	source := &scriptedUserSource{user: &fetch.UserInfo{
		Handle: "alice",
		Metrics: domain.AccountMetrics{
			FollowersCount: 5_000,
			PostCount:      700,
			Verified:       true,
		},
	}}
	l := newTestLookup(source, nil)

	m, err := l.AccountMetrics(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.FollowersCount != 5_000 || m.PostCount != 700 || !m.Verified {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestLookupErrorWrapped(t *testing.T) {
	wantErr := errors.New("boom")
	l := newTestLookup(&scriptedUserSource{err: wantErr}, nil)

	_, err := l.AccountAttributes(context.Background(), "alice")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestLookupRespectsRateBudget(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tracker := ratelimit.New(ratelimit.Options{
		InitialRemaining: 10,
		MaxWait:          0,
		Clock:            func() time.Time { return now },
	})
	tracker.Record(domain.SourcePrimaryAPI, 0, now.Add(10*time.Minute))

	source := &scriptedUserSource{user: &fetch.UserInfo{Handle: "alice"}}
	l := newTestLookup(source, tracker)

	_, err := l.AccountAttributes(context.Background(), "alice")
	if !errors.Is(err, fetch.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if len(source.handles) != 0 {
		t.Errorf("lookup called despite exhausted budget: %v", source.handles)
	}
}
