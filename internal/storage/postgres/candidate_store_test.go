package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
	"social-account-lab/internal/storage/postgres"
)

func TestCandidateStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	candidate := &domain.CandidateAccount{
		CandidateID: "cand-001",
		Handle:      "alice",
		DisplayName: "Alice",
		Description: "Distributed systems engineer posting about Go and databases.",
		Confidence:  0.92,
		Origin:      domain.OriginKeyword,
		ProfileURL:  "https://x.com/alice",
		Query:       "distributed systems",
		Metrics: &domain.AccountMetrics{
			FollowersCount: 5000,
			PostCount:      1200,
			InactiveDays:   5,
			Verified:       true,
		},
		Quality: &domain.QualityAssessment{
			Score:   0.86,
			Passed:  true,
			Reasons: []string{"quality score 0.86"},
			Mode:    domain.ScoreModeMetric,
		},
		Attributes: &domain.DiversityAttributes{
			FollowersTier: domain.TierMedium,
			Region:        "us",
			Language:      "en",
			Sentiment:     domain.SentimentNeutral,
		},
		DiversityScore: ptr(0.74),
		DiscoveredAt:   1700000000000,
	}

	require.NoError(t, store.Insert(ctx, candidate))

	got, err := store.GetByID(ctx, "cand-001")
	require.NoError(t, err)

	assert.Equal(t, candidate.CandidateID, got.CandidateID)
	assert.Equal(t, candidate.Handle, got.Handle)
	assert.Equal(t, candidate.Confidence, got.Confidence)
	assert.Equal(t, candidate.Origin, got.Origin)
	assert.Equal(t, candidate.Query, got.Query)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, 5000, got.Metrics.FollowersCount)
	assert.True(t, got.Metrics.Verified)
	require.NotNil(t, got.Quality)
	assert.InDelta(t, 0.86, got.Quality.Score, 1e-9)
	assert.True(t, got.Quality.Passed)
	require.NotNil(t, got.Attributes)
	assert.Equal(t, domain.TierMedium, got.Attributes.FollowersTier)
	require.NotNil(t, got.DiversityScore)
	assert.InDelta(t, 0.74, *got.DiversityScore, 1e-9)
}

func TestCandidateStore_InsertWithoutMetrics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	// Fallback-scored candidate carries no hard metrics.
	require.NoError(t, store.Insert(ctx, &domain.CandidateAccount{
		CandidateID:  "cand-fallback",
		Handle:       "bob",
		Confidence:   0.75,
		Origin:       domain.OriginRandom,
		DiscoveredAt: 1700000000000,
	}))

	got, err := store.GetByID(ctx, "cand-fallback")
	require.NoError(t, err)
	assert.Nil(t, got.Metrics)
	assert.Nil(t, got.Quality)
	assert.Nil(t, got.Attributes)
	assert.Nil(t, got.DiversityScore)
}

func TestCandidateStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	candidate := &domain.CandidateAccount{
		CandidateID:  "cand-dup",
		Handle:       "alice",
		Confidence:   0.9,
		Origin:       domain.OriginKeyword,
		DiscoveredAt: 1700000000000,
	}

	require.NoError(t, store.Insert(ctx, candidate))

	err := store.Insert(ctx, candidate)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCandidateStore_GetByHandleAndOrigin(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	inserts := []*domain.CandidateAccount{
		{CandidateID: "c1", Handle: "alice", Confidence: 0.9, Origin: domain.OriginKeyword, DiscoveredAt: 2000},
		{CandidateID: "c2", Handle: "alice", Confidence: 0.8, Origin: domain.OriginRandom, DiscoveredAt: 1000},
		{CandidateID: "c3", Handle: "bob", Confidence: 0.7, Origin: domain.OriginKeyword, DiscoveredAt: 1500},
	}
	for _, c := range inserts {
		require.NoError(t, store.Insert(ctx, c))
	}

	byHandle, err := store.GetByHandle(ctx, "@Alice")
	require.NoError(t, err)
	require.Len(t, byHandle, 2)
	assert.Equal(t, "c2", byHandle[0].CandidateID)
	assert.Equal(t, "c1", byHandle[1].CandidateID)

	byOrigin, err := store.GetByOrigin(ctx, domain.OriginKeyword)
	require.NoError(t, err)
	assert.Len(t, byOrigin, 2)
}

func TestCandidateStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	for i, at := range []int64{100, 200, 300} {
		require.NoError(t, store.Insert(ctx, &domain.CandidateAccount{
			CandidateID:  string(rune('a' + i)),
			Handle:       "alice",
			Confidence:   0.9,
			Origin:       domain.OriginKeyword,
			DiscoveredAt: at,
		}))
	}

	got, err := store.GetByTimeRange(ctx, 200, 300)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(200), got[0].DiscoveredAt)
	assert.Equal(t, int64(300), got[1].DiscoveredAt)
}

func TestCandidateStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
