package memory

import (
	"context"
	"sort"
	"sync"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CandidateAccount // keyed by candidate_id
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.CandidateAccount),
	}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
func (s *CandidateStore) Insert(_ context.Context, c *domain.CandidateAccount) error {
	if c == nil || c.CandidateID == "" || c.Handle == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CandidateID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[c.CandidateID] = copyCandidate(c)
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(_ context.Context, candidateID string) (*domain.CandidateAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[candidateID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyCandidate(c), nil
}

// GetByHandle retrieves all candidates for a handle, ordered by discovered_at ASC.
func (s *CandidateStore) GetByHandle(_ context.Context, handle string) ([]*domain.CandidateAccount, error) {
	key := domain.NormalizeHandle(handle)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CandidateAccount
	for _, c := range s.data {
		if c.Handle == key {
			result = append(result, copyCandidate(c))
		}
	}
	sortByDiscoveredAt(result)
	return result, nil
}

// GetByOrigin retrieves all candidates of a given discovery origin.
func (s *CandidateStore) GetByOrigin(_ context.Context, origin domain.SourceOrigin) ([]*domain.CandidateAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CandidateAccount
	for _, c := range s.data {
		if c.Origin == origin {
			result = append(result, copyCandidate(c))
		}
	}
	sortByDiscoveredAt(result)
	return result, nil
}

// GetByTimeRange retrieves candidates discovered within [start, end] (inclusive).
func (s *CandidateStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.CandidateAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CandidateAccount
	for _, c := range s.data {
		if c.DiscoveredAt >= start && c.DiscoveredAt <= end {
			result = append(result, copyCandidate(c))
		}
	}
	sortByDiscoveredAt(result)
	return result, nil
}

func sortByDiscoveredAt(candidates []*domain.CandidateAccount) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DiscoveredAt != candidates[j].DiscoveredAt {
			return candidates[i].DiscoveredAt < candidates[j].DiscoveredAt
		}
		return candidates[i].CandidateID < candidates[j].CandidateID
	})
}

// copyCandidate makes a deep copy to prevent external mutation.
func copyCandidate(c *domain.CandidateAccount) *domain.CandidateAccount {
	cCopy := *c
	if c.Metrics != nil {
		m := *c.Metrics
		cCopy.Metrics = &m
	}
	if c.Quality != nil {
		q := *c.Quality
		q.Reasons = append([]string(nil), c.Quality.Reasons...)
		cCopy.Quality = &q
	}
	if c.Attributes != nil {
		a := *c.Attributes
		cCopy.Attributes = &a
	}
	if c.DiversityScore != nil {
		d := *c.DiversityScore
		cCopy.DiversityScore = &d
	}
	return &cCopy
}
