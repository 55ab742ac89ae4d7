package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
)

func newCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), srv
}

func TestCacheSetGet(t *testing.T) {
	repo, srv := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "tasks:course:c1", []string{"a", "b"}, time.Minute))

	var got []string
	require.NoError(t, repo.Get(ctx, "tasks:course:c1", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	srv.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "tasks:course:c1", &got), appErrors.ErrCacheMiss)
}

func TestCacheDelete(t *testing.T) {
	repo, srv := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "tasks:course:c1", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "tasks:course:c2", 2, time.Minute))
	require.NoError(t, repo.Delete(ctx, "tasks:course:c1"))

	assert.False(t, srv.Exists("tasks:course:c1"))
	assert.True(t, srv.Exists("tasks:course:c2"))
}

func TestCacheDropsCorruptEntries(t *testing.T) {
	repo, srv := newCache(t)
	require.NoError(t, srv.Set("tasks:course:c1", "{not json"))

	var got []string
	err := repo.Get(context.Background(), "tasks:course:c1", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.False(t, srv.Exists("tasks:course:c1"))
}

func TestNilClientIsAlwaysEmpty(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	var got int
	assert.ErrorIs(t, repo.Get(ctx, "k", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.Ping(ctx))
}
