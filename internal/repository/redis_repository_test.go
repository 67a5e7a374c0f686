package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPostedGuard(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	guard := NewPostedGuardRepository(client, "test:")

	ok, err := guard.Acquire(ctx, "2026-03-02-P1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("test:slate:posted:2026-03-02-P1"))

	ok, err = guard.Acquire(ctx, "2026-03-02-P1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	require.NoError(t, guard.Release(ctx, "2026-03-02-P1"))
	ok, err = guard.Acquire(ctx, "2026-03-02-P1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("test:slate:posted:2026-03-02-P1"))
}

func TestRecentTexts(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRecentTextRepository(client, "")

	texts, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, texts)

	for _, s := range []string{"one", "two", "three", "four"} {
		require.NoError(t, repo.Push(ctx, s, 3))
	}
	texts, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"four", "three", "two"}, texts)

	texts, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"four"}, texts)
}

func TestQuota(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewQuotaRepository(client, "")

	used, err := repo.Used(ctx, "newsapi", "2026-03-02")
	require.NoError(t, err)
	assert.Zero(t, used)

	n, err := repo.Increment(ctx, "newsapi", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.Increment(ctx, "newsapi", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	used, err = repo.Used(ctx, "newsapi", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 2, used)

	used, err = repo.Used(ctx, "newsapi", "2026-03-03")
	require.NoError(t, err)
	assert.Zero(t, used)

	assert.Greater(t, mr.TTL("slate:quota:newsapi:2026-03-02"), time.Duration(0))
}
