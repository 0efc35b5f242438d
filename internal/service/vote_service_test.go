package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/response"
)

func TestVoteService_CastVote_ToggleSequence(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	post := e.createPost(t, 1)
	commentID := e.addComment(t, domain.SubjectRef{Kind: domain.SubjectKindPost, ID: post.ID}, 2, nil)
	target := domain.TargetRef{Kind: domain.TargetKindComment, ID: commentID}
	const voter = uint(7)

	steps := []struct {
		name      string
		direction domain.VoteDirection
		wantUp    int64
		wantDown  int64
		wantVote  *string
	}{
		{name: "첫 up 투표는 생성", direction: domain.VoteUp, wantUp: 1, wantDown: 0, wantVote: strPtr("up")},
		{name: "같은 방향 재투표는 취소", direction: domain.VoteUp, wantUp: 0, wantDown: 0, wantVote: nil},
		{name: "취소 후 down 투표는 생성", direction: domain.VoteDown, wantUp: 0, wantDown: 1, wantVote: strPtr("down")},
		{name: "반대 방향은 뒤집기", direction: domain.VoteUp, wantUp: 1, wantDown: 0, wantVote: strPtr("up")},
	}

	for _, step := range steps {
		resp, err := e.votes.CastVote(ctx, target, voter, step.direction)
		require.NoError(t, err, step.name)
		assert.Equal(t, step.wantUp, resp.Up, step.name)
		assert.Equal(t, step.wantDown, resp.Down, step.name)
		assert.Equal(t, step.wantVote, resp.Vote, step.name)

		tally, err := e.subjects.GetTally(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, domain.Tally{Up: step.wantUp, Down: step.wantDown}, tally, step.name)
	}
}

// comment with tally (0,0): up -> (1,0), up again -> (0,0) and no vote, down -> (0,1)
func TestVoteService_CommentScenario(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	post := e.createPost(t, 1)
	commentID := e.addComment(t, domain.SubjectRef{Kind: domain.SubjectKindPost, ID: post.ID}, 2, nil)
	target := domain.TargetRef{Kind: domain.TargetKindComment, ID: commentID}

	resp, err := e.votes.CastVote(ctx, target, 9, domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Up)
	assert.Equal(t, int64(0), resp.Down)

	resp, err = e.votes.CastVote(ctx, target, 9, domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Up)
	assert.Equal(t, int64(0), resp.Down)
	vote, err := e.votes.GetVote(ctx, target, 9)
	require.NoError(t, err)
	assert.Nil(t, vote)

	resp, err = e.votes.CastVote(ctx, target, 9, domain.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Up)
	assert.Equal(t, int64(1), resp.Down)

	var comment domain.Comment
	require.NoError(t, e.db.First(&comment, commentID).Error)
	assert.Equal(t, int64(0), comment.ThumbsUp)
	assert.Equal(t, int64(1), comment.ThumbsDown)
}

func TestVoteService_CastVote_Errors(t *testing.T) {
	e := newTestEngine(t)
	post := e.createPost(t, 1)

	tests := []struct {
		name      string
		target    domain.TargetRef
		voterID   uint
		direction domain.VoteDirection
		wantCode  string
	}{
		{
			name:      "실패: 알 수 없는 대상 종류",
			target:    domain.TargetRef{Kind: "photo", ID: post.ID},
			voterID:   1,
			direction: domain.VoteUp,
			wantCode:  response.ErrCodeValidation,
		},
		{
			name:      "실패: 잘못된 방향",
			target:    domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID},
			voterID:   1,
			direction: "sideways",
			wantCode:  response.ErrCodeValidation,
		},
		{
			name:      "실패: 투표자 없음",
			target:    domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID},
			voterID:   0,
			direction: domain.VoteUp,
			wantCode:  response.ErrCodeValidation,
		},
		{
			name:      "실패: 존재하지 않는 게시글",
			target:    domain.TargetRef{Kind: domain.TargetKindPost, ID: 999},
			voterID:   1,
			direction: domain.VoteUp,
			wantCode:  response.ErrCodeNotFound,
		},
		{
			name:      "실패: 존재하지 않는 댓글",
			target:    domain.TargetRef{Kind: domain.TargetKindComment, ID: 999},
			voterID:   1,
			direction: domain.VoteDown,
			wantCode:  response.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.votes.CastVote(context.Background(), tt.target, tt.voterID, tt.direction)
			requireAppError(t, err, tt.wantCode)
		})
	}

	assert.Equal(t, int64(0), e.countRows(t, &domain.Vote{}, "1 = 1"))
}

func TestVoteService_CastVote_RollsBackOnTallyFailure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	post := e.createPost(t, 1)
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID}

	_, err := e.votes.CastVote(ctx, target, 7, domain.VoteUp)
	require.NoError(t, err)
	outboxBefore := e.countRows(t, &domain.OutboxEvent{}, "1 = 1")

	failTally := true
	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("test:fail_tally", func(tx *gorm.DB) {
		if failTally && tx.Statement.Table == "posts" {
			_ = tx.AddError(errors.New("boom"))
		}
	}))

	tests := []struct {
		name      string
		voterID   uint
		direction domain.VoteDirection
	}{
		{name: "실패: 새 투표", voterID: 8, direction: domain.VoteDown},
		{name: "실패: 투표 취소", voterID: 7, direction: domain.VoteUp},
		{name: "실패: 방향 전환", voterID: 7, direction: domain.VoteDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.votes.CastVote(ctx, target, tt.voterID, tt.direction)
			requireAppError(t, err, response.ErrCodeInternal)

			tally, err := e.subjects.GetTally(ctx, target)
			require.NoError(t, err)
			assert.Equal(t, domain.Tally{Up: 1}, tally)
			assert.Equal(t, int64(1), e.countRows(t, &domain.Vote{}, "target_id = ?", post.ID))
			assert.Equal(t, int64(1), e.countRows(t, &domain.Vote{}, "voter_id = ? AND direction = ?", 7, domain.VoteUp))
			assert.Equal(t, outboxBefore, e.countRows(t, &domain.OutboxEvent{}, "1 = 1"))
		})
	}

	failTally = false
	resp, err := e.votes.CastVote(ctx, target, 8, domain.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Down)
}

func TestVoteService_CastVote_WritesOutbox(t *testing.T) {
	e := newTestEngine(t)
	event := e.createEvent(t, 1, 5)
	target := domain.TargetRef{Kind: domain.TargetKindEvent, ID: event.ID}

	_, err := e.votes.CastVote(context.Background(), target, 3, domain.VoteDown)
	require.NoError(t, err)

	var rows []domain.OutboxEvent
	require.NoError(t, e.db.Where("type = ?", domain.EventVoteCast).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "event", rows[0].AggregateKind)
	assert.Equal(t, event.ID, rows[0].AggregateID)
	assert.Contains(t, string(rows[0].Payload), `"outcome":"created"`)
}

func TestVoteService_ConcurrentVoters(t *testing.T) {
	e := newTestEngine(t)
	post := e.createPost(t, 1)
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID}
	const voters = 40

	p := pool.New().WithMaxGoroutines(8).WithErrors()
	for i := 1; i <= voters; i++ {
		voterID := uint(i)
		direction := domain.VoteUp
		if i%4 == 0 {
			direction = domain.VoteDown
		}
		p.Go(func() error {
			_, err := e.votes.CastVote(context.Background(), target, voterID, direction)
			return err
		})
	}
	require.NoError(t, p.Wait())

	tally, err := e.subjects.GetTally(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(30), tally.Up)
	assert.Equal(t, int64(10), tally.Down)
	assert.Equal(t, e.countRows(t, &domain.Vote{}, "direction = ?", domain.VoteUp), tally.Up)
	assert.Equal(t, e.countRows(t, &domain.Vote{}, "direction = ?", domain.VoteDown), tally.Down)
}

func TestVoteService_GetVote(t *testing.T) {
	e := newTestEngine(t)
	post := e.createPost(t, 1)
	target := domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID}

	vote, err := e.votes.GetVote(context.Background(), target, 4)
	require.NoError(t, err)
	assert.Nil(t, vote)

	_, err = e.votes.CastVote(context.Background(), target, 4, domain.VoteDown)
	require.NoError(t, err)

	vote, err = e.votes.GetVote(context.Background(), target, 4)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, domain.VoteDown, *vote)
}

func strPtr(s string) *string {
	return &s
}
