package memory

import (
	"context"
	"sync"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// AccountCacheStore is an in-memory implementation of storage.AccountCacheStore.
type AccountCacheStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CachedAccount // keyed by normalized handle
}

// NewAccountCacheStore creates a new in-memory account cache store.
func NewAccountCacheStore() *AccountCacheStore {
	return &AccountCacheStore{
		data: make(map[string]*domain.CachedAccount),
	}
}

// Compile-time interface check.
var _ storage.AccountCacheStore = (*AccountCacheStore)(nil)

// Get retrieves the cached record for a handle. Returns ErrNotFound if absent.
func (s *AccountCacheStore) Get(_ context.Context, handle string) (*domain.CachedAccount, error) {
	key := domain.NormalizeHandle(handle)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyCached(rec), nil
}

// Put stores or replaces the cached record for a handle.
func (s *AccountCacheStore) Put(_ context.Context, rec *domain.CachedAccount) error {
	if rec == nil || rec.Handle == "" {
		return storage.ErrInvalidInput
	}
	key := domain.NormalizeHandle(rec.Handle)

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyCached(rec)
	stored.Handle = key
	s.data[key] = stored
	return nil
}

// Delete removes the cached record for a handle, if present.
func (s *AccountCacheStore) Delete(_ context.Context, handle string) error {
	key := domain.NormalizeHandle(handle)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// copyCached makes a deep copy to prevent external mutation.
func copyCached(rec *domain.CachedAccount) *domain.CachedAccount {
	recCopy := *rec
	recCopy.Posts = make([]*domain.Post, len(rec.Posts))
	for i, p := range rec.Posts {
		postCopy := *p
		recCopy.Posts[i] = &postCopy
	}
	return &recCopy
}
