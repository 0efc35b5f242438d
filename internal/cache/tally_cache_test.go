package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"community-interaction-api/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (TallyCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTallyCache(client, ttl, zap.NewNop()), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tally:comment:12", Key(domain.TargetRef{Kind: domain.TargetKindComment, ID: 12}))
	assert.Equal(t, "tally:post:1", Key(domain.TargetRef{Kind: domain.TargetKindPost, ID: 1}))
}

func TestRedisTallyCache_FillGet(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: 3}

	lookup, err := c.Get(ctx, target)
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.Zero(t, lookup.Generation)

	require.NoError(t, c.Fill(ctx, target, lookup.Generation, domain.Tally{Up: 4, Down: 1}))
	lookup, err = c.Get(ctx, target)
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.Equal(t, domain.Tally{Up: 4, Down: 1}, lookup.Tally)

	// an existing entry is never overwritten by a fill
	require.NoError(t, c.Fill(ctx, target, lookup.Generation, domain.Tally{Up: 99}))
	lookup, err = c.Get(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(4), lookup.Tally.Up)

	mr.FastForward(31 * time.Second)
	lookup, err = c.Get(ctx, target)
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
}

func TestRedisTallyCache_FillAfterInvalidateIsSkipped(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()
	target := domain.TargetRef{Kind: domain.TargetKindComment, ID: 5}

	lookup, err := c.Get(ctx, target)
	require.NoError(t, err)
	require.False(t, lookup.Hit)

	// a writer commits between the reader's lookup and its fill
	require.NoError(t, c.Invalidate(ctx, target))
	require.NoError(t, c.Fill(ctx, target, lookup.Generation, domain.Tally{Up: 0}))
	assert.False(t, mr.Exists(Key(target)))

	// the next reader sees the new generation and may fill
	lookup, err = c.Get(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lookup.Generation)
	require.NoError(t, c.Fill(ctx, target, lookup.Generation, domain.Tally{Up: 1}))

	lookup, err = c.Get(ctx, target)
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.Equal(t, int64(1), lookup.Tally.Up)
}

func TestRedisTallyCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()
	a := domain.TargetRef{Kind: domain.TargetKindComment, ID: 1}
	b := domain.TargetRef{Kind: domain.TargetKindComment, ID: 2}
	keep := domain.TargetRef{Kind: domain.TargetKindComment, ID: 3}

	for _, target := range []domain.TargetRef{a, b, keep} {
		require.NoError(t, c.Fill(ctx, target, 0, domain.Tally{Up: 1}))
	}
	require.NoError(t, c.Invalidate(ctx, a, b))
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists(Key(a)))
	assert.False(t, mr.Exists(Key(b)))
	assert.True(t, mr.Exists(Key(keep)))
	assert.True(t, mr.Exists(generationKey(a)))
	assert.False(t, mr.Exists(generationKey(keep)))
}

func TestRedisTallyCache_CorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t, 0)
	target := domain.TargetRef{Kind: domain.TargetKindEvent, ID: 9}
	require.NoError(t, mr.Set(Key(target), "not-json"))

	lookup, err := c.Get(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.False(t, mr.Exists(Key(target)))
}

func TestNoopTallyCache(t *testing.T) {
	c := NewNoopTallyCache()
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: 1}

	require.NoError(t, c.Fill(context.Background(), target, 0, domain.Tally{Up: 1}))
	lookup, err := c.Get(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	require.NoError(t, c.Invalidate(context.Background(), target))
}
