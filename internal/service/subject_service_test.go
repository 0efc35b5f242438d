package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/response"
)

func TestSubjectService_CreateEvent(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		req      *dto.CreateEventRequest
		wantCode string
	}{
		{name: "성공: 이벤트 생성", req: &dto.CreateEventRequest{Title: "Board game night", Capacity: 8}},
		{name: "실패: 제목 없음", req: &dto.CreateEventRequest{Title: "  ", Capacity: 8}, wantCode: response.ErrCodeValidation},
		{name: "실패: 정원 0", req: &dto.CreateEventRequest{Title: "x", Capacity: 0}, wantCode: response.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.subjects.CreateEvent(context.Background(), 3, tt.req)
			if tt.wantCode != "" {
				requireAppError(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(3), resp.OwnerID)
			assert.Equal(t, tt.req.Capacity, resp.Capacity)

			got, err := e.subjects.GetEvent(context.Background(), resp.ID)
			require.NoError(t, err)
			assert.Equal(t, resp.Title, got.Title)
		})
	}

	_, err := e.subjects.GetEvent(context.Background(), 999)
	requireAppError(t, err, response.ErrCodeNotFound)
}

func TestSubjectService_CreatePost(t *testing.T) {
	e := newTestEngine(t)

	resp, err := e.subjects.CreatePost(context.Background(), 4, &dto.CreatePostRequest{Title: " hello ", Body: "body"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Title)

	_, err = e.subjects.CreatePost(context.Background(), 4, &dto.CreatePostRequest{Title: ""})
	requireAppError(t, err, response.ErrCodeValidation)
}

func TestSubjectService_GetTally_ReadThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := setupTestDB(t)
	logger := zap.NewNop()
	tallyCache := cache.NewRedisTallyCache(rdb, 0, logger)
	subjects := NewSubjectService(db, tallyCache, logger)
	votes := NewVoteService(db, database.NewTransactor(db, logger), tallyCache, nil, logger)

	post := &domain.Post{OwnerID: 1, Title: "p"}
	require.NoError(t, db.Create(post).Error)
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID}

	tally, err := subjects.GetTally(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{}, tally)
	assert.True(t, mr.Exists(cache.Key(target)))

	// a vote drops the cached value and the next read refills it
	_, err = votes.CastVote(context.Background(), target, 2, domain.VoteUp)
	require.NoError(t, err)
	tally, err = subjects.GetTally(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{Up: 1}, tally)

	// the cache answers while it is warm
	require.NoError(t, db.Model(&domain.Post{}).Where("id = ?", post.ID).Update("votes_up", 50).Error)
	tally, err = subjects.GetTally(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.Up)

	// redis down falls back to the database
	mr.Close()
	tally, err = subjects.GetTally(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(50), tally.Up)
}

// interleavingCache runs beforeFill once, between the database read and the fill
type interleavingCache struct {
	cache.TallyCache
	beforeFill func()
}

func (c *interleavingCache) Fill(ctx context.Context, target domain.TargetRef, generation int64, tally domain.Tally) error {
	if c.beforeFill != nil {
		hook := c.beforeFill
		c.beforeFill = nil
		hook()
	}
	return c.TallyCache.Fill(ctx, target, generation, tally)
}

func TestSubjectService_GetTally_VoteDuringFillIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := setupTestDB(t)
	logger := zap.NewNop()
	ctx := context.Background()
	redisCache := cache.NewRedisTallyCache(rdb, 0, logger)
	votes := NewVoteService(db, database.NewTransactor(db, logger), redisCache, nil, logger)

	post := &domain.Post{OwnerID: 1, Title: "p"}
	require.NoError(t, db.Create(post).Error)
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID}

	wrapped := &interleavingCache{TallyCache: redisCache, beforeFill: func() {
		_, err := votes.CastVote(ctx, target, 2, domain.VoteUp)
		require.NoError(t, err)
	}}
	subjects := NewSubjectService(db, wrapped, logger)

	// this read loaded the tally before the vote committed
	tally, err := subjects.GetTally(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{}, tally)
	assert.False(t, mr.Exists(cache.Key(target)))

	tally, err = subjects.GetTally(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{Up: 1}, tally)
}

func TestSubjectService_GetTally_NotFound(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.subjects.GetTally(context.Background(), domain.TargetRef{Kind: domain.TargetKindEvent, ID: 77})
	requireAppError(t, err, response.ErrCodeNotFound)

	_, err = e.subjects.GetTally(context.Background(), domain.TargetRef{Kind: "user", ID: 77})
	requireAppError(t, err, response.ErrCodeValidation)
}
