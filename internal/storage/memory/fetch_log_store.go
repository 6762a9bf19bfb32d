package memory

import (
	"context"
	"sort"
	"sync"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// FetchLogStore is an in-memory implementation of storage.FetchLogStore.
type FetchLogStore struct {
	mu      sync.RWMutex
	entries []*domain.FetchLogEntry
}

// NewFetchLogStore creates a new in-memory fetch log store.
func NewFetchLogStore() *FetchLogStore {
	return &FetchLogStore{}
}

// Compile-time interface check.
var _ storage.FetchLogStore = (*FetchLogStore)(nil)

// InsertBulk appends a batch of decision entries.
func (s *FetchLogStore) InsertBulk(_ context.Context, entries []*domain.FetchLogEntry) error {
	for _, e := range entries {
		if e == nil || e.Handle == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		entryCopy := *e
		s.entries = append(s.entries, &entryCopy)
	}
	return nil
}

// GetByHandle retrieves all entries for a handle, ordered by occurred_at ASC.
func (s *FetchLogStore) GetByHandle(_ context.Context, handle string) ([]*domain.FetchLogEntry, error) {
	key := domain.NormalizeHandle(handle)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FetchLogEntry
	for _, e := range s.entries {
		if e.Handle == key {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}
	sortByOccurredAt(result)
	return result, nil
}

// GetByTimeRange retrieves entries within [start, end] (inclusive).
func (s *FetchLogStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.FetchLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FetchLogEntry
	for _, e := range s.entries {
		if e.OccurredAt >= start && e.OccurredAt <= end {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}
	sortByOccurredAt(result)
	return result, nil
}

func sortByOccurredAt(entries []*domain.FetchLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OccurredAt < entries[j].OccurredAt
	})
}
