package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
)

func setupRepoTestDB(t *testing.T) *Repositories {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return New(db)
}

func TestParticipantRepository_FIFOOrder(t *testing.T) {
	repos := setupRepoTestDB(t)
	ctx := context.Background()

	event := &domain.Event{OwnerID: 1, Title: "meetup", Capacity: 1}
	require.NoError(t, repos.Events.Create(ctx, event))

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	// member 30 joins at the same instant as 20 but gets a higher id
	rows := []struct {
		member uint
		state  domain.ParticipantState
		at     time.Time
	}{
		{10, domain.ParticipantConfirmed, base},
		{20, domain.ParticipantWaiting, base.Add(time.Second)},
		{30, domain.ParticipantWaiting, base.Add(time.Second)},
		{40, domain.ParticipantWaiting, base.Add(-time.Hour)},
	}
	created := map[uint]*domain.Participant{}
	for _, r := range rows {
		p := &domain.Participant{EventID: event.ID, MemberID: r.member, State: r.state, JoinedAt: r.at}
		require.NoError(t, repos.Participants.Create(ctx, p))
		created[r.member] = p
	}

	head, err := repos.Participants.FindEarliestWaiting(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(40), head.MemberID, "earliest joined_at wins")

	tests := []struct {
		name   string
		member uint
		ahead  int64
	}{
		{"가장 먼저 대기", 40, 0},
		{"같은 시각 중 id가 작은 쪽", 20, 1},
		{"같은 시각 중 id가 큰 쪽", 30, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repos.Participants.CountWaitingAhead(ctx, created[tt.member])
			require.NoError(t, err)
			assert.Equal(t, tt.ahead, n)
		})
	}

	waiting, err := repos.Participants.CountByState(ctx, event.ID, domain.ParticipantWaiting)
	require.NoError(t, err)
	assert.Equal(t, int64(3), waiting)

	confirmed, err := repos.Participants.CountConfirmedByEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{event.ID: 1}, confirmed)

	// the full roster is FIFO across states, not grouped by state
	all, err := repos.Participants.FindByEvent(ctx, event.ID)
	require.NoError(t, err)
	order := make([]uint, len(all))
	for i, p := range all {
		order[i] = p.MemberID
	}
	assert.Equal(t, []uint{40, 10, 20, 30}, order)

	_, err = repos.Participants.FindEarliestWaiting(ctx, event.ID+1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestParticipantRepository_DuplicateMember(t *testing.T) {
	repos := setupRepoTestDB(t)
	ctx := context.Background()

	p := &domain.Participant{EventID: 1, MemberID: 5, State: domain.ParticipantConfirmed, JoinedAt: time.Now()}
	require.NoError(t, repos.Participants.Create(ctx, p))

	err := repos.Participants.Create(ctx, &domain.Participant{EventID: 1, MemberID: 5, State: domain.ParticipantWaiting, JoinedAt: time.Now()})
	require.Error(t, err)
	reason, conflict := database.ConflictReason(err)
	assert.True(t, conflict)
	assert.Equal(t, "unique_violation", reason)
}

func TestVoteRepository_Counts(t *testing.T) {
	repos := setupRepoTestDB(t)
	ctx := context.Background()

	votes := []domain.Vote{
		{TargetKind: domain.TargetKindComment, TargetID: 1, VoterID: 1, Direction: domain.VoteUp},
		{TargetKind: domain.TargetKindComment, TargetID: 1, VoterID: 2, Direction: domain.VoteUp},
		{TargetKind: domain.TargetKindComment, TargetID: 1, VoterID: 3, Direction: domain.VoteDown},
		{TargetKind: domain.TargetKindComment, TargetID: 2, VoterID: 1, Direction: domain.VoteDown},
		{TargetKind: domain.TargetKindPost, TargetID: 1, VoterID: 1, Direction: domain.VoteUp},
	}
	for i := range votes {
		require.NoError(t, repos.Votes.Create(ctx, &votes[i]))
	}

	byKind, err := repos.Votes.CountByKind(ctx, domain.TargetKindComment)
	require.NoError(t, err)
	assert.Equal(t, map[uint]domain.Tally{1: {Up: 2, Down: 1}, 2: {Down: 1}}, byKind)

	one, err := repos.Votes.CountByTarget(ctx, domain.TargetRef{Kind: domain.TargetKindPost, ID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{Up: 1}, one)

	none, err := repos.Votes.CountByTarget(ctx, domain.TargetRef{Kind: domain.TargetKindPost, ID: 99})
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{}, none)

	removed, err := repos.Votes.DeleteByTargets(ctx, domain.TargetKindComment, []uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	removed, err = repos.Votes.DeleteByTargets(ctx, domain.TargetKindComment, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// post votes on the same id are untouched
	_, err = repos.Votes.FindByTargetAndVoter(ctx, domain.TargetRef{Kind: domain.TargetKindPost, ID: 1}, 1)
	assert.NoError(t, err)
}

func TestTallyRepository(t *testing.T) {
	repos := setupRepoTestDB(t)
	ctx := context.Background()

	post := &domain.Post{OwnerID: 1, Title: "hello"}
	require.NoError(t, repos.Posts.Create(ctx, post))
	comment := &domain.Comment{SubjectKind: domain.SubjectKindPost, SubjectID: post.ID, AuthorID: 2, Content: "hi"}
	require.NoError(t, repos.Comments.Create(ctx, comment))

	postRef := domain.TargetRef{Kind: domain.TargetKindPost, ID: post.ID}
	commentRef := domain.TargetRef{Kind: domain.TargetKindComment, ID: comment.ID}

	require.NoError(t, repos.Tallies.ApplyDelta(ctx, postRef, 2, 1))
	require.NoError(t, repos.Tallies.ApplyDelta(ctx, postRef, -1, 0))
	require.NoError(t, repos.Tallies.ApplyDelta(ctx, commentRef, 0, 3))

	got, err := repos.Tallies.Get(ctx, postRef)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{Up: 1, Down: 1}, got)

	got, err = repos.Tallies.GetForUpdate(ctx, commentRef)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{Down: 3}, got)

	missing := domain.TargetRef{Kind: domain.TargetKindPost, ID: 999}
	assert.ErrorIs(t, repos.Tallies.ApplyDelta(ctx, missing, 1, 0), gorm.ErrRecordNotFound)
	_, err = repos.Tallies.Get(ctx, missing)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repos.Tallies.Set(ctx, commentRef, domain.Tally{Up: 7}))
	page, err := repos.Tallies.List(ctx, domain.TargetKindComment, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, TargetTally{ID: comment.ID, Up: 7}, page[0])
}

func TestOutboxRepository(t *testing.T) {
	repos := setupRepoTestDB(t)
	ctx := context.Background()

	ids := make([]uint, 0, 3)
	for i := 0; i < 3; i++ {
		e := &domain.OutboxEvent{
			EventID:       uuid.New(),
			Type:          domain.EventVoteCast,
			AggregateKind: "post",
			AggregateID:   uint(i + 1),
			Payload:       datatypes.JSON(`{}`),
		}
		require.NoError(t, repos.Outbox.Append(ctx, e))
		ids = append(ids, e.ID)
	}

	// first row exhausted its attempts
	require.NoError(t, repos.Outbox.IncrementAttempts(ctx, ids[0]))
	require.NoError(t, repos.Outbox.IncrementAttempts(ctx, ids[0]))

	pending, err := repos.Outbox.FindPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[1], pending[0].ID, "pending rows come back in insertion order")
	assert.Equal(t, ids[2], pending[1].ID)

	require.NoError(t, repos.Outbox.MarkPublished(ctx, []uint{ids[1]}, time.Now()))
	require.NoError(t, repos.Outbox.MarkPublished(ctx, nil, time.Now()))

	count, err := repos.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "exhausted rows still count as pending")

	pending, err = repos.Outbox.FindPending(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[0], pending[0].ID)
}
