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

func TestAccountCacheStore_PutAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAccountCacheStore(pool)
	ctx := context.Background()

	rec := &domain.CachedAccount{
		Handle: "alice",
		Posts: []*domain.Post{
			{ID: "1001", Text: "first post", Link: "https://x.com/alice/status/1001", CreatedAt: 1700000000000, Likes: 4},
			{ID: "1002", Text: "second post", CreatedAt: 1700000100000},
		},
		Source:    domain.SourcePrimaryAPI,
		FetchedAt: 1700000200000,
	}

	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", got.Handle)
	assert.Equal(t, domain.SourcePrimaryAPI, got.Source)
	assert.Equal(t, rec.FetchedAt, got.FetchedAt)
	require.Len(t, got.Posts, 2)
	assert.Equal(t, "1001", got.Posts[0].ID)
	assert.Equal(t, "first post", got.Posts[0].Text)
	assert.Equal(t, 4, got.Posts[0].Likes)
}

func TestAccountCacheStore_GetMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAccountCacheStore(pool)

	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountCacheStore_PutOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAccountCacheStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &domain.CachedAccount{
		Handle:    "alice",
		Posts:     []*domain.Post{{ID: "old"}},
		Source:    domain.SourceWebSearch,
		FetchedAt: 1700000000000,
	}))
	require.NoError(t, store.Put(ctx, &domain.CachedAccount{
		Handle:    "@Alice",
		Posts:     []*domain.Post{{ID: "new1"}, {ID: "new2"}},
		Source:    domain.SourcePrimaryAPI,
		FetchedAt: 1700000300000,
	}))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got.Posts, 2)
	assert.Equal(t, "new1", got.Posts[0].ID)
	assert.Equal(t, domain.SourcePrimaryAPI, got.Source)
}

func TestAccountCacheStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAccountCacheStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &domain.CachedAccount{
		Handle: "alice",
		Posts:  []*domain.Post{{ID: "1001"}},
		Source: domain.SourcePrimaryAPI,
	}))
	require.NoError(t, store.Delete(ctx, "alice"))

	_, err := store.Get(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
