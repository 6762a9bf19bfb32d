package domain

import "strings"

// AccountStatus is the lifecycle tag derived from fetch and quality results.
// Unverified accounts are excluded from any downstream debate/aggregation use.
type AccountStatus string

const (
	StatusUnverified AccountStatus = "unverified"
	StatusVerified   AccountStatus = "verified"
)

// String returns the string representation of AccountStatus.
func (s AccountStatus) String() string {
	return string(s)
}

// NormalizeHandle strips the leading @ and lowercases a handle for use as a
// dedup/storage key.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// AccountMetrics holds hard metrics for an account when a metric-capable
// source supplied them. Nil pointer fields mean the signal was unavailable.
type AccountMetrics struct {
	FollowersCount int
	PostCount      int
	InactiveDays   int
	Verified       bool
}

// CandidateAccount is a discovered account candidate. Created by discovery,
// mutated in place as enrichment and scoring append fields.
type CandidateAccount struct {
	CandidateID string // deterministic hash, see idhash
	Handle      string
	DisplayName string
	Description string
	Confidence  float64 // [0,1] discovery-time confidence
	Origin      SourceOrigin
	ProfileURL  string
	Query       string // discovery query that produced this candidate

	Metrics    *AccountMetrics // nil when hard metrics are unavailable
	Quality    *QualityAssessment
	Attributes *DiversityAttributes

	DiversityScore *float64 // set only by hybrid diversity sampling
	DiscoveredAt   int64    // Unix timestamp in milliseconds
}

// FollowersTier is a categorical band of follower counts.
type FollowersTier string

const (
	TierMicro   FollowersTier = "micro"  // < 100
	TierSmall   FollowersTier = "small"  // 100 .. 1k
	TierMedium  FollowersTier = "medium" // 1k .. 10k
	TierLarge   FollowersTier = "large"  // 10k .. 100k
	TierMacro   FollowersTier = "macro"  // 100k .. 1M
	TierMega    FollowersTier = "mega"   // >= 1M
	TierUnknown FollowersTier = "unknown"
)

// TierForFollowers maps a follower count onto its tier band.
func TierForFollowers(followers int) FollowersTier {
	switch {
	case followers < 0:
		return TierUnknown
	case followers < 100:
		return TierMicro
	case followers < 1_000:
		return TierSmall
	case followers < 10_000:
		return TierMedium
	case followers < 100_000:
		return TierLarge
	case followers < 1_000_000:
		return TierMacro
	default:
		return TierMega
	}
}

// Sentiment is the dominant sentiment category of an account's public text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown" // no signal available
)

// IsValid checks if the sentiment is a valid value.
func (s Sentiment) IsValid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative || s == SentimentUnknown
}

// DiversityAttributes are categorical attributes attached to a candidate
// during enrichment. Absent signals default to unknown/neutral categories.
type DiversityAttributes struct {
	FollowersTier FollowersTier
	Region        string // ISO-ish region code or "unknown"
	Language      string // BCP47-ish language code or "unknown"
	Sentiment     Sentiment
}

// CachedAccount is the record shape of the account cache collaborator.
type CachedAccount struct {
	Handle    string
	Posts     []*Post
	Source    FetchSource
	FetchedAt int64 // Unix timestamp in milliseconds
}

// ContainsSynthetic reports whether any cached post carries a synthetic marker.
// Such records must be treated as cache misses.
func (c *CachedAccount) ContainsSynthetic() bool {
	for _, p := range c.Posts {
		if p.IsSynthetic() {
			return true
		}
	}
	return false
}
