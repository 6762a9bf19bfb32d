package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"social-account-lab/internal/domain"
)

// Default web-search client configuration.
const (
	DefaultWebSearchBaseURL = "https://api.x.ai/v1"
	DefaultWebSearchModel   = "grok-4-fast-reasoning"
	DefaultWebSearchTimeout = 30 * time.Second
)

// WebSearchClient drives the live web-search collaborator through its
// chat-completions endpoint. It implements WebSearchSource (tertiary fetch
// stage) and serves account discovery queries.
type WebSearchClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// WebSearchOption configures WebSearchClient.
type WebSearchOption func(*WebSearchClient)

// WithWebSearchBaseURL overrides the API base URL (used in tests).
func WithWebSearchBaseURL(u string) WebSearchOption {
	return func(c *WebSearchClient) {
		c.baseURL = u
	}
}

// WithWebSearchModel sets the model name.
func WithWebSearchModel(model string) WebSearchOption {
	return func(c *WebSearchClient) {
		c.model = model
	}
}

// WithWebSearchHTTPClient sets a custom http.Client.
func WithWebSearchHTTPClient(client *http.Client) WebSearchOption {
	return func(c *WebSearchClient) {
		c.client = client
	}
}

// NewWebSearchClient creates a new web-search client.
func NewWebSearchClient(apiKey string, opts ...WebSearchOption) *WebSearchClient {
	c := &WebSearchClient{
		baseURL: DefaultWebSearchBaseURL,
		apiKey:  apiKey,
		model:   DefaultWebSearchModel,
		client:  &http.Client{Timeout: DefaultWebSearchTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ WebSearchSource = (*WebSearchClient)(nil)

// SearchWebPosts searches the open web for real posts by the handle.
// Returned post IDs carry a web_search_ prefix; these are real-data posts,
// not synthetic ones.
func (c *WebSearchClient) SearchWebPosts(ctx context.Context, handle string, limit int) ([]*domain.Post, RateLimitInfo, error) {
	handle = domain.NormalizeHandle(handle)

	prompt := fmt.Sprintf(`Search X (Twitter) for the %d most recent posts by the account "@%s".

Rules:
- Return only posts that actually exist. Never invent posts.
- Capture the exact post text and post date.
- Exclude reposts and replies.

Output a JSON array only, no prose:
[{"text": "...", "date": "YYYY-MM-DD"}, ...]

Return [] if no posts can be found.`, limit, handle)

	raw, info, err := c.complete(ctx, prompt, 0.3, 2500, true)
	if err != nil {
		return nil, info, err
	}

	var found []struct {
		Text string `json:"text"`
		Date string `json:"date"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &found); err != nil {
		return nil, info, &SourceError{Source: domain.SourceWebSearch, Err: fmt.Errorf("parse post list: %w", err)}
	}

	posts := make([]*domain.Post, 0, len(found))
	for i, p := range found {
		if p.Text == "" || len(posts) >= limit {
			continue
		}
		var createdAt int64
		if t, err := time.Parse("2006-01-02", p.Date); err == nil {
			createdAt = t.UnixMilli()
		}
		posts = append(posts, &domain.Post{
			ID:        fmt.Sprintf("web_search_%s_%d", handle, i),
			Text:      p.Text,
			Link:      fmt.Sprintf("https://x.com/%s", handle),
			CreatedAt: createdAt,
		})
	}

	return posts, info, nil
}

// DiscoveredAccount is the wire shape of one account in a discovery response.
type DiscoveredAccount struct {
	Handle      string  `json:"handle"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	ProfileURL  string  `json:"profile_url"`
}

// DiscoverAccounts searches the web for real, active X accounts matching the
// keyword. The prompt embeds the confidence rubric so the collaborator grades
// its own certainty per account.
func (c *WebSearchClient) DiscoverAccounts(ctx context.Context, keyword string, maxResults int) ([]DiscoveredAccount, RateLimitInfo, error) {
	prompt := fmt.Sprintf(`Search the web for up to %d real, currently active X (Twitter) accounts relevant to: %q.

Rules:
- Real accounts only. Exclude spam, parody and inactive accounts.
- Grade each account with a confidence score:
  >= 0.95 top-tier authority on the topic
  0.85 - 0.94 influential, widely cited
  0.70 - 0.84 active expert
  0.60 - 0.69 marginal relevance
  < 0.60 exclude from the output entirely

Output a JSON array only, no prose:
[{"handle": "...", "display_name": "...", "description": "...", "confidence": 0.0, "profile_url": "https://x.com/..."}, ...]`,
		maxResults, keyword)

	raw, info, err := c.complete(ctx, prompt, 0.3, 2500, true)
	if err != nil {
		return nil, info, err
	}

	var accounts []DiscoveredAccount
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &accounts); err != nil {
		return nil, info, &SourceError{Source: domain.SourceWebSearch, Err: fmt.Errorf("parse account list: %w", err)}
	}

	return accounts, info, nil
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	LiveSearch  bool          `json:"live_search,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat-completions response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete performs one chat-completions call and returns the raw content.
func (c *WebSearchClient) complete(ctx context.Context, prompt string, temperature float64, maxTokens int, liveSearch bool) (string, RateLimitInfo, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		LiveSearch:  liveSearch,
	})
	if err != nil {
		return "", NoRateLimitInfo, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", NoRateLimitInfo, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", NoRateLimitInfo, &SourceError{Source: domain.SourceWebSearch, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	info := parseRateLimitHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return "", info, &SourceError{
			Source: domain.SourceWebSearch,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", info, &SourceError{Source: domain.SourceWebSearch, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(chat.Choices) == 0 {
		return "", info, &SourceError{Source: domain.SourceWebSearch, Err: fmt.Errorf("empty completion")}
	}

	return chat.Choices[0].Message.Content, info, nil
}

// stripCodeFences removes a surrounding markdown code fence, if present.
// Collaborator output sometimes wraps JSON in ```json ... ``` blocks.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
