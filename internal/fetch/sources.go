package fetch

import (
	"context"
	"time"

	"social-account-lab/internal/domain"
)

// RateLimitInfo carries rate-limit signals parsed from a source response.
// Remaining is -1 when the source did not announce a budget.
type RateLimitInfo struct {
	Remaining int
	ResetAt   time.Time
}

// NoRateLimitInfo is returned by sources that announce no budget signals.
var NoRateLimitInfo = RateLimitInfo{Remaining: -1}

// TimelineSource fetches an account's own timeline by identifier.
// This is the primary stage of the source chain.
type TimelineSource interface {
	// FetchTimeline returns recent original posts for a handle.
	// Posts may be empty when the account has no recent activity.
	FetchTimeline(ctx context.Context, handle string, limit int) ([]*domain.Post, RateLimitInfo, error)
}

// SearchSource fetches posts through a query-based search endpoint.
// This is the secondary stage, queried as from:<handle>.
type SearchSource interface {
	// SearchPosts returns recent posts matching the query.
	SearchPosts(ctx context.Context, query string, limit int) ([]*domain.Post, RateLimitInfo, error)
}

// WebSearchSource finds real posts by a handle through open web search.
// This is the tertiary stage and is always available.
type WebSearchSource interface {
	// SearchWebPosts returns real posts attributed to the handle, or an
	// empty slice when none could be found.
	SearchWebPosts(ctx context.Context, handle string, limit int) ([]*domain.Post, RateLimitInfo, error)
}
