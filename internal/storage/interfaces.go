package storage

import (
	"context"

	"social-account-lab/internal/domain"
)

// AccountCacheStore provides access to the fetched-posts cache.
// Records are keyed by normalized handle and overwritten on refresh.
type AccountCacheStore interface {
	// Get retrieves the cached record for a handle. Returns ErrNotFound if
	// absent. Callers must treat records containing synthetic post IDs as
	// absent; see domain.CachedAccount.ContainsSynthetic.
	Get(ctx context.Context, handle string) (*domain.CachedAccount, error)

	// Put stores or replaces the cached record for a handle.
	Put(ctx context.Context, rec *domain.CachedAccount) error

	// Delete removes the cached record for a handle, if present.
	Delete(ctx context.Context, handle string) error
}

// CandidateStore provides access to discovered candidate accounts.
type CandidateStore interface {
	// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
	Insert(ctx context.Context, c *domain.CandidateAccount) error

	// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, candidateID string) (*domain.CandidateAccount, error)

	// GetByHandle retrieves all candidates for a handle, ordered by
	// discovered_at ASC. One handle may appear under multiple origins.
	GetByHandle(ctx context.Context, handle string) ([]*domain.CandidateAccount, error)

	// GetByOrigin retrieves all candidates of a given discovery origin.
	GetByOrigin(ctx context.Context, origin domain.SourceOrigin) ([]*domain.CandidateAccount, error)

	// GetByTimeRange retrieves candidates discovered within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CandidateAccount, error)
}

// FetchLogStore provides access to the append-only fetch decision log.
type FetchLogStore interface {
	// InsertBulk appends a batch of decision entries.
	InsertBulk(ctx context.Context, entries []*domain.FetchLogEntry) error

	// GetByHandle retrieves all entries for a handle, ordered by occurred_at ASC.
	GetByHandle(ctx context.Context, handle string) ([]*domain.FetchLogEntry, error)

	// GetByTimeRange retrieves entries within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.FetchLogEntry, error)
}
