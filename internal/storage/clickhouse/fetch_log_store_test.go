package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
	"social-account-lab/internal/storage/clickhouse"
)

func TestFetchLogStore_InsertBulkAndGetByHandle(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewFetchLogStore(conn)
	ctx := context.Background()

	entries := []*domain.FetchLogEntry{
		{
			Handle:             "@Alice",
			Source:             domain.SourcePrimaryAPI,
			Attempt:            1,
			Status:             200,
			RateLimitRemaining: 14,
			ResetAt:            1700000900000,
			OccurredAt:         1700000000000,
		},
		{
			Handle:             "alice",
			Source:             domain.SourceSearchAPI,
			Attempt:            2,
			Status:             503,
			RateLimitRemaining: -1,
			Error:              "upstream timeout",
			OccurredAt:         1700000100000,
		},
		{
			Handle:     "bob",
			Source:     domain.SourceWebSearch,
			Attempt:    1,
			OccurredAt: 1700000200000,
		},
	}

	require.NoError(t, store.InsertBulk(ctx, entries))

	got, err := store.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "alice", got[0].Handle)
	assert.Equal(t, domain.SourcePrimaryAPI, got[0].Source)
	assert.Equal(t, 200, got[0].Status)
	assert.Equal(t, 14, got[0].RateLimitRemaining)
	assert.False(t, got[0].GeneratedFlag)

	assert.Equal(t, domain.SourceSearchAPI, got[1].Source)
	assert.Equal(t, -1, got[1].RateLimitRemaining)
	assert.Equal(t, "upstream timeout", got[1].Error)
}

func TestFetchLogStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewFetchLogStore(conn)
	ctx := context.Background()

	entries := []*domain.FetchLogEntry{
		{Handle: "alice", Source: domain.SourcePrimaryAPI, Attempt: 1, OccurredAt: 100},
		{Handle: "alice", Source: domain.SourceSearchAPI, Attempt: 1, OccurredAt: 200},
		{Handle: "alice", Source: domain.SourceWebSearch, Attempt: 1, OccurredAt: 300},
	}
	require.NoError(t, store.InsertBulk(ctx, entries))

	got, err := store.GetByTimeRange(ctx, 100, 200)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetchLogStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewFetchLogStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestFetchLogStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewFetchLogStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.FetchLogEntry{{}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
