package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"social-account-lab/internal/domain"
)

// Default X API client configuration.
const (
	DefaultXAPIBaseURL = "https://api.twitter.com/2"
	DefaultXAPITimeout = 15 * time.Second
)

// XAPIClient talks to the X API v2. It implements TimelineSource and
// SearchSource, and exposes a user lookup for attribute enrichment.
type XAPIClient struct {
	baseURL     string
	bearerToken string
	client      *http.Client
}

// XAPIOption configures XAPIClient.
type XAPIOption func(*XAPIClient)

// WithXAPIBaseURL overrides the API base URL (used in tests).
func WithXAPIBaseURL(u string) XAPIOption {
	return func(c *XAPIClient) {
		c.baseURL = u
	}
}

// WithXAPITimeout sets the HTTP client timeout.
func WithXAPITimeout(d time.Duration) XAPIOption {
	return func(c *XAPIClient) {
		c.client.Timeout = d
	}
}

// WithXAPIHTTPClient sets a custom http.Client.
func WithXAPIHTTPClient(client *http.Client) XAPIOption {
	return func(c *XAPIClient) {
		c.client = client
	}
}

// NewXAPIClient creates a new X API v2 client.
func NewXAPIClient(bearerToken string, opts ...XAPIOption) *XAPIClient {
	c := &XAPIClient{
		baseURL:     DefaultXAPIBaseURL,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: DefaultXAPITimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface checks.
var (
	_ TimelineSource = (*XAPIClient)(nil)
	_ SearchSource   = (*XAPIClient)(nil)
)

// tweetPayload is the wire shape of a tweet object.
type tweetPayload struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

// userPayload is the wire shape of a user object.
type userPayload struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Verified      bool   `json:"verified"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

// UserInfo is the enrichment-relevant slice of an X user object.
type UserInfo struct {
	ID          string
	Handle      string
	DisplayName string
	Description string
	Metrics     domain.AccountMetrics
}

// FetchTimeline returns recent original posts for a handle (primary stage).
// Retweets and replies are excluded at the API level.
func (c *XAPIClient) FetchTimeline(ctx context.Context, handle string, limit int) ([]*domain.Post, RateLimitInfo, error) {
	user, info, err := c.lookupUser(ctx, handle)
	if err != nil {
		return nil, info, err
	}

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(clampMaxResults(limit)))
	q.Set("tweet.fields", "created_at,text,id,public_metrics")
	q.Set("exclude", "retweets,replies")

	var body struct {
		Data []tweetPayload `json:"data"`
	}
	info, err = c.get(ctx, fmt.Sprintf("/users/%s/tweets", user.ID), q, &body)
	if err != nil {
		return nil, info, err
	}

	return decodePosts(handle, body.Data, limit), info, nil
}

// SearchPosts returns recent posts matching the query (secondary stage).
func (c *XAPIClient) SearchPosts(ctx context.Context, query string, limit int) ([]*domain.Post, RateLimitInfo, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(clampMaxResults(limit)))
	q.Set("tweet.fields", "created_at,text,id,public_metrics")

	var body struct {
		Data []tweetPayload `json:"data"`
	}
	info, err := c.get(ctx, "/tweets/search/recent", q, &body)
	if err != nil {
		return nil, info, err
	}

	return decodePosts("", body.Data, limit), info, nil
}

// LookupUser returns profile and hard metrics for a handle. Used by the
// diversity enrichment step.
func (c *XAPIClient) LookupUser(ctx context.Context, handle string) (*UserInfo, RateLimitInfo, error) {
	return c.lookupUser(ctx, handle)
}

func (c *XAPIClient) lookupUser(ctx context.Context, handle string) (*UserInfo, RateLimitInfo, error) {
	handle = domain.NormalizeHandle(handle)

	q := url.Values{}
	q.Set("user.fields", "description,public_metrics,verified")

	var body struct {
		Data *userPayload `json:"data"`
	}
	info, err := c.get(ctx, "/users/by/username/"+url.PathEscape(handle), q, &body)
	if err != nil {
		return nil, info, err
	}
	if body.Data == nil {
		return nil, info, &SourceError{
			Source: domain.SourcePrimaryAPI,
			Status: http.StatusNotFound,
			Err:    fmt.Errorf("user %q not found", handle),
		}
	}

	return &UserInfo{
		ID:          body.Data.ID,
		Handle:      body.Data.Username,
		DisplayName: body.Data.Name,
		Description: body.Data.Description,
		Metrics: domain.AccountMetrics{
			FollowersCount: body.Data.PublicMetrics.FollowersCount,
			PostCount:      body.Data.PublicMetrics.TweetCount,
			Verified:       body.Data.Verified,
		},
	}, info, nil
}

// get performs one GET request and decodes the JSON body into out.
// Non-2xx statuses become SourceError carrying the status for retry
// classification. Rate-limit headers are parsed from every response.
func (c *XAPIClient) get(ctx context.Context, path string, query url.Values, out interface{}) (RateLimitInfo, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NoRateLimitInfo, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return NoRateLimitInfo, &SourceError{Source: domain.SourcePrimaryAPI, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	info := parseRateLimitHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return info, &SourceError{
			Source: domain.SourcePrimaryAPI,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return info, &SourceError{Source: domain.SourcePrimaryAPI, Err: fmt.Errorf("decode response: %w", err)}
	}

	return info, nil
}

// parseRateLimitHeaders extracts x-rate-limit-remaining / x-rate-limit-reset.
func parseRateLimitHeaders(h http.Header) RateLimitInfo {
	info := NoRateLimitInfo

	if v := h.Get("x-rate-limit-remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			info.Remaining = n
		}
	}
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.ResetAt = time.Unix(ts, 0)
		}
	}

	return info
}

// decodePosts converts tweet payloads into domain posts.
func decodePosts(handle string, tweets []tweetPayload, limit int) []*domain.Post {
	posts := make([]*domain.Post, 0, len(tweets))
	for _, tw := range tweets {
		if len(posts) >= limit {
			break
		}

		var createdAt int64
		if t, err := time.Parse(time.RFC3339, tw.CreatedAt); err == nil {
			createdAt = t.UnixMilli()
		}

		link := fmt.Sprintf("https://x.com/i/status/%s", tw.ID)
		if handle != "" {
			link = fmt.Sprintf("https://x.com/%s/status/%s", handle, tw.ID)
		}

		posts = append(posts, &domain.Post{
			ID:        tw.ID,
			Text:      tw.Text,
			Link:      link,
			CreatedAt: createdAt,
			Likes:     tw.PublicMetrics.LikeCount,
			Reposts:   tw.PublicMetrics.RetweetCount,
		})
	}
	return posts
}

// clampMaxResults keeps max_results within the API's 5-100 window.
func clampMaxResults(n int) int {
	if n < 5 {
		return 5
	}
	if n > 100 {
		return 100
	}
	return n
}
