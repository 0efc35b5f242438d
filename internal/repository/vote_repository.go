package repository

import (
	"context"

	"gorm.io/gorm"

	"community-interaction-api/internal/domain"
)

// VoteRepository defines the interface for the vote ledger
type VoteRepository interface {
	Create(ctx context.Context, vote *domain.Vote) error
	FindByTargetAndVoter(ctx context.Context, target domain.TargetRef, voterID uint) (*domain.Vote, error)
	UpdateDirection(ctx context.Context, id uint, direction domain.VoteDirection) error
	Delete(ctx context.Context, id uint) error
	// DeleteByTargets removes every vote on the given targets of one kind
	DeleteByTargets(ctx context.Context, kind domain.TargetKind, targetIDs []uint) (int64, error)
	// CountByTarget returns the ledger tally of a single target
	CountByTarget(ctx context.Context, target domain.TargetRef) (domain.Tally, error)
	// CountByKind returns ledger tallies for every target of a kind that has votes
	CountByKind(ctx context.Context, kind domain.TargetKind) (map[uint]domain.Tally, error)
}

type voteRepositoryImpl struct {
	db *gorm.DB
}

// NewVoteRepository creates a new instance of VoteRepository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepositoryImpl{db: db}
}

func (r *voteRepositoryImpl) Create(ctx context.Context, vote *domain.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepositoryImpl) FindByTargetAndVoter(ctx context.Context, target domain.TargetRef, voterID uint) (*domain.Vote, error) {
	var vote domain.Vote
	if err := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ? AND voter_id = ?", target.Kind, target.ID, voterID).
		Take(&vote).Error; err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepositoryImpl) UpdateDirection(ctx context.Context, id uint, direction domain.VoteDirection) error {
	return r.db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("id = ?", id).
		Update("direction", direction).Error
}

func (r *voteRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Vote{}, id).Error
}

func (r *voteRepositoryImpl) DeleteByTargets(ctx context.Context, kind domain.TargetKind, targetIDs []uint) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN ?", kind, targetIDs).
		Delete(&domain.Vote{})
	return res.RowsAffected, res.Error
}

type directionCount struct {
	TargetID  uint
	Direction domain.VoteDirection
	Total     int64
}

func (r *voteRepositoryImpl) countQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("target_id, direction, COUNT(*) AS total").
		Group("target_id, direction")
}

func (r *voteRepositoryImpl) CountByTarget(ctx context.Context, target domain.TargetRef) (domain.Tally, error) {
	var rows []directionCount
	if err := r.countQuery(ctx).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Scan(&rows).Error; err != nil {
		return domain.Tally{}, err
	}
	return foldCounts(rows)[target.ID], nil
}

func (r *voteRepositoryImpl) CountByKind(ctx context.Context, kind domain.TargetKind) (map[uint]domain.Tally, error) {
	var rows []directionCount
	if err := r.countQuery(ctx).
		Where("target_kind = ?", kind).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return foldCounts(rows), nil
}

func foldCounts(rows []directionCount) map[uint]domain.Tally {
	tallies := make(map[uint]domain.Tally, len(rows))
	for _, row := range rows {
		t := tallies[row.TargetID]
		switch row.Direction {
		case domain.VoteUp:
			t.Up += row.Total
		case domain.VoteDown:
			t.Down += row.Total
		}
		tallies[row.TargetID] = t
	}
	return tallies
}
