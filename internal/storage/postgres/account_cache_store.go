package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// AccountCacheStore implements storage.AccountCacheStore using PostgreSQL.
// Posts are stored as a jsonb document; the cache is an upsert surface,
// unlike the append-only candidate table.
type AccountCacheStore struct {
	pool *Pool
}

// NewAccountCacheStore creates a new AccountCacheStore.
func NewAccountCacheStore(pool *Pool) *AccountCacheStore {
	return &AccountCacheStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountCacheStore = (*AccountCacheStore)(nil)

// Get retrieves the cached record for a handle. Returns ErrNotFound if absent.
func (s *AccountCacheStore) Get(ctx context.Context, handle string) (*domain.CachedAccount, error) {
	query := `
		SELECT handle, posts, source, fetched_at
		FROM account_cache
		WHERE handle = $1
	`

	var rec domain.CachedAccount
	var postsJSON []byte
	var sourceStr string

	row := s.pool.QueryRow(ctx, query, domain.NormalizeHandle(handle))
	if err := row.Scan(&rec.Handle, &postsJSON, &sourceStr, &rec.FetchedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cached account: %w", err)
	}

	if err := json.Unmarshal(postsJSON, &rec.Posts); err != nil {
		return nil, fmt.Errorf("decode cached posts: %w", err)
	}
	rec.Source = domain.FetchSource(sourceStr)
	return &rec, nil
}

// Put stores or replaces the cached record for a handle.
func (s *AccountCacheStore) Put(ctx context.Context, rec *domain.CachedAccount) error {
	if rec == nil || rec.Handle == "" {
		return storage.ErrInvalidInput
	}

	postsJSON, err := json.Marshal(rec.Posts)
	if err != nil {
		return fmt.Errorf("encode cached posts: %w", err)
	}

	query := `
		INSERT INTO account_cache (handle, posts, source, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (handle) DO UPDATE
		SET posts = EXCLUDED.posts, source = EXCLUDED.source, fetched_at = EXCLUDED.fetched_at
	`

	_, err = s.pool.Exec(ctx, query,
		domain.NormalizeHandle(rec.Handle),
		postsJSON,
		string(rec.Source),
		rec.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("put cached account: %w", err)
	}
	return nil
}

// Delete removes the cached record for a handle, if present.
func (s *AccountCacheStore) Delete(ctx context.Context, handle string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM account_cache WHERE handle = $1`, domain.NormalizeHandle(handle))
	if err != nil {
		return fmt.Errorf("delete cached account: %w", err)
	}
	return nil
}
