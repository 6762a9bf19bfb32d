// Package stub provides deterministic in-memory sources for dry-run mode and
// tests. Placeholder data is always labeled and never enters real result sets.
package stub

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
)

// TimelineSource returns fixed posts or a fixed error.
// Implements fetch.TimelineSource.
type TimelineSource struct {
	Posts []*domain.Post
	Info  fetch.RateLimitInfo
	Err   error
	Calls int
}

// FetchTimeline returns the configured posts, recording the call.
func (s *TimelineSource) FetchTimeline(_ context.Context, _ string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Info, s.Err
	}
	return copyPosts(s.Posts, limit), s.Info, nil
}

// SearchSource returns fixed posts or a fixed error.
// Implements fetch.SearchSource.
type SearchSource struct {
	Posts []*domain.Post
	Info  fetch.RateLimitInfo
	Err   error
	Calls int
}

// SearchPosts returns the configured posts, recording the call.
func (s *SearchSource) SearchPosts(_ context.Context, _ string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Info, s.Err
	}
	return copyPosts(s.Posts, limit), s.Info, nil
}

// WebSearchSource returns fixed posts or a fixed error.
// Implements fetch.WebSearchSource.
type WebSearchSource struct {
	Posts []*domain.Post
	Info  fetch.RateLimitInfo
	Err   error
	Calls int
}

// SearchWebPosts returns the configured posts, recording the call.
func (s *WebSearchSource) SearchWebPosts(_ context.Context, _ string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Info, s.Err
	}
	return copyPosts(s.Posts, limit), s.Info, nil
}

// ErrSequenceSource fails with a sequence of errors before succeeding.
// Used to exercise the retry classification of the fetch chain.
type ErrSequenceSource struct {
	Errs  []error // consumed in order; nil entry means success
	Posts []*domain.Post
	Info  fetch.RateLimitInfo
	Calls int
}

// FetchTimeline pops the next scripted result.
func (s *ErrSequenceSource) FetchTimeline(_ context.Context, _ string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	return s.next(limit)
}

// SearchPosts pops the next scripted result.
func (s *ErrSequenceSource) SearchPosts(_ context.Context, _ string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	return s.next(limit)
}

// SearchWebPosts pops the next scripted result.
func (s *ErrSequenceSource) SearchWebPosts(_ context.Context, _ string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	return s.next(limit)
}

func (s *ErrSequenceSource) next(limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	idx := s.Calls
	s.Calls++
	if idx < len(s.Errs) && s.Errs[idx] != nil {
		return nil, s.Info, s.Errs[idx]
	}
	return copyPosts(s.Posts, limit), s.Info, nil
}

// Placeholder generates labeled dry-run data: posts with the dry_run_ ID
// prefix and candidate accounts with dry_run_ handles. Output is stable for
// a given seed and inputs.
type Placeholder struct {
	seed int64
}

// NewPlaceholder creates a placeholder generator with a fixed seed.
func NewPlaceholder(seed int64) *Placeholder {
	return &Placeholder{seed: seed}
}

// Compile-time interface check.
var _ fetch.WebSearchSource = (*Placeholder)(nil)

// SearchWebPosts returns labeled placeholder posts for pipeline wiring tests.
func (p *Placeholder) SearchWebPosts(_ context.Context, handle string, limit int) ([]*domain.Post, fetch.RateLimitInfo, error) {
	handle = domain.NormalizeHandle(handle)
	rng := rand.New(rand.NewSource(p.seed ^ int64(hashString(handle))))

	posts := make([]*domain.Post, 0, limit)
	for i := 0; i < limit; i++ {
		posts = append(posts, &domain.Post{
			ID:        fmt.Sprintf("%s%s_%d", domain.PlaceholderIDPrefix, handle, i),
			Text:      fmt.Sprintf("[dry-run placeholder] post %d for @%s", i+1, handle),
			Link:      fmt.Sprintf("https://x.com/%s", handle),
			CreatedAt: 1_700_000_000_000 + int64(rng.Intn(86_400_000)),
		})
	}
	return posts, fetch.NoRateLimitInfo, nil
}

// DiscoverAccounts returns labeled placeholder candidates with confidences
// spread across [0.70, 0.95].
func (p *Placeholder) DiscoverAccounts(_ context.Context, keyword string, maxResults int) ([]fetch.DiscoveredAccount, fetch.RateLimitInfo, error) {
	slug := slugify(keyword)

	accounts := make([]fetch.DiscoveredAccount, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		handle := fmt.Sprintf("dry_run_%s_%d", slug, i+1)
		accounts = append(accounts, fetch.DiscoveredAccount{
			Handle:      handle,
			DisplayName: fmt.Sprintf("[dry-run placeholder] %s %d", keyword, i+1),
			Description: fmt.Sprintf("Placeholder account for keyword %q, generated for pipeline wiring tests.", keyword),
			Confidence:  0.95 - 0.25*float64(i)/float64(max(maxResults-1, 1)),
			ProfileURL:  "https://x.com/" + handle,
		})
	}
	return accounts, fetch.NoRateLimitInfo, nil
}

func copyPosts(posts []*domain.Post, limit int) []*domain.Post {
	var result []*domain.Post
	for _, p := range posts {
		if len(result) >= limit {
			break
		}
		postCopy := *p
		result = append(result, &postCopy)
	}
	return result
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
