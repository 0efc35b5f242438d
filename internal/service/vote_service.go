package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/events"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/repository"
	"community-interaction-api/internal/response"
)

// Vote toggle outcomes
const (
	VoteOutcomeCreated   = "created"
	VoteOutcomeRetracted = "retracted"
	VoteOutcomeFlipped   = "flipped"
)

// VoteService applies tri-state vote toggles to posts, events and comments
type VoteService interface {
	CastVote(ctx context.Context, target domain.TargetRef, voterID uint, direction domain.VoteDirection) (*dto.VoteResponse, error)
	GetVote(ctx context.Context, target domain.TargetRef, voterID uint) (*domain.VoteDirection, error)
}

type voteServiceImpl struct {
	repos   *repository.Repositories
	tx      database.Transactor
	cache   cache.TallyCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewVoteService creates a new instance of VoteService
func NewVoteService(db *gorm.DB, tx database.Transactor, tallyCache cache.TallyCache, m *metrics.Metrics, logger *zap.Logger) VoteService {
	return &voteServiceImpl{
		repos:   repository.New(db),
		tx:      tx,
		cache:   tallyCache,
		metrics: m,
		logger:  logger,
	}
}

func validateTarget(target domain.TargetRef) error {
	if !target.Kind.IsValid() {
		return response.NewValidationError("Invalid target kind", string(target.Kind))
	}
	if target.ID == 0 {
		return response.NewValidationError("Target id is required", "")
	}
	return nil
}

// voteDelta returns the counter change for adding n votes in direction d
func voteDelta(d domain.VoteDirection, n int64) (up, down int64) {
	if d == domain.VoteUp {
		return n, 0
	}
	return 0, n
}

// CastVote toggles the voter's vote on target:
// no vote -> insert, same direction -> retract, opposite direction -> flip.
func (s *voteServiceImpl) CastVote(ctx context.Context, target domain.TargetRef, voterID uint, direction domain.VoteDirection) (*dto.VoteResponse, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	if !direction.IsValid() {
		return nil, response.NewValidationError("Invalid vote direction", string(direction))
	}
	if voterID == 0 {
		return nil, response.NewValidationError("Voter id is required", "")
	}

	var (
		tally   domain.Tally
		current *domain.VoteDirection
		outcome string
	)

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)

		before, err := repos.Tallies.GetForUpdate(ctx, target)
		if err != nil {
			if isNotFound(err) {
				return targetNotFound(target)
			}
			return fmt.Errorf("lock target: %w", err)
		}

		existing, err := repos.Votes.FindByTargetAndVoter(ctx, target, voterID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("find vote: %w", err)
		}

		var dUp, dDown int64
		switch {
		case existing == nil:
			if err := repos.Votes.Create(ctx, &domain.Vote{
				TargetKind: target.Kind,
				TargetID:   target.ID,
				VoterID:    voterID,
				Direction:  direction,
			}); err != nil {
				return fmt.Errorf("create vote: %w", err)
			}
			dUp, dDown = voteDelta(direction, 1)
			d := direction
			current, outcome = &d, VoteOutcomeCreated

		case existing.Direction == direction:
			if err := repos.Votes.Delete(ctx, existing.ID); err != nil {
				return fmt.Errorf("delete vote: %w", err)
			}
			dUp, dDown = voteDelta(direction, -1)
			current, outcome = nil, VoteOutcomeRetracted

		default:
			if err := repos.Votes.UpdateDirection(ctx, existing.ID, direction); err != nil {
				return fmt.Errorf("update vote: %w", err)
			}
			addUp, addDown := voteDelta(direction, 1)
			subUp, subDown := voteDelta(existing.Direction, -1)
			dUp, dDown = addUp+subUp, addDown+subDown
			d := direction
			current, outcome = &d, VoteOutcomeFlipped
		}

		if err := repos.Tallies.ApplyDelta(ctx, target, dUp, dDown); err != nil {
			return fmt.Errorf("update tally: %w", err)
		}
		tally = domain.Tally{Up: before.Up + dUp, Down: before.Down + dDown}

		return appendOutbox(ctx, repos, domain.EventVoteCast, string(target.Kind), target.ID, events.VoteCastPayload{
			TargetKind: target.Kind,
			TargetID:   target.ID,
			VoterID:    voterID,
			Outcome:    outcome,
			Direction:  current,
			Up:         tally.Up,
			Down:       tally.Down,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, target); err != nil {
		s.logger.Warn("Failed to invalidate cached tally", zap.String("key", cache.Key(target)), zap.Error(err))
	}
	s.metrics.RecordVote(string(target.Kind), outcome)

	s.logger.Debug("Vote cast",
		zap.String("target_kind", string(target.Kind)),
		zap.Uint("target_id", target.ID),
		zap.Uint("voter_id", voterID),
		zap.String("outcome", outcome),
	)

	resp := &dto.VoteResponse{
		TargetKind: string(target.Kind),
		TargetID:   target.ID,
		Up:         tally.Up,
		Down:       tally.Down,
	}
	if current != nil {
		v := string(*current)
		resp.Vote = &v
	}
	return resp, nil
}

// GetVote returns the voter's current direction on target, nil when there is none
func (s *voteServiceImpl) GetVote(ctx context.Context, target domain.TargetRef, voterID uint) (*domain.VoteDirection, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	vote, err := s.repos.Votes.FindByTargetAndVoter(ctx, target, voterID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storageError("Failed to load vote", err)
	}
	d := vote.Direction
	return &d, nil
}
