package repository

import (
	"context"

	"gorm.io/gorm"

	"community-interaction-api/internal/domain"
)

// ParticipantRepository defines the interface for roster data access
type ParticipantRepository interface {
	Create(ctx context.Context, participant *domain.Participant) error
	FindByEventAndMember(ctx context.Context, eventID, memberID uint) (*domain.Participant, error)
	// FindEarliestWaiting returns the head of the waiting list, gorm.ErrRecordNotFound when empty
	FindEarliestWaiting(ctx context.Context, eventID uint) (*domain.Participant, error)
	// FindByEvent returns every row of the roster in FIFO order; callers split it by state
	FindByEvent(ctx context.Context, eventID uint) ([]*domain.Participant, error)
	UpdateState(ctx context.Context, id uint, state domain.ParticipantState) error
	Delete(ctx context.Context, id uint) error
	// CountWaitingAhead counts waiting rows that joined before p
	CountWaitingAhead(ctx context.Context, p *domain.Participant) (int64, error)
	CountByState(ctx context.Context, eventID uint, state domain.ParticipantState) (int64, error)
	// CountConfirmedByEvent returns the ledger confirmed count per event that has confirmed rows
	CountConfirmedByEvent(ctx context.Context) (map[uint]int, error)
	CountWaitingTotal(ctx context.Context) (int64, error)
}

type participantRepositoryImpl struct {
	db *gorm.DB
}

// NewParticipantRepository creates a new instance of ParticipantRepository
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepositoryImpl{db: db}
}

func (r *participantRepositoryImpl) Create(ctx context.Context, participant *domain.Participant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *participantRepositoryImpl) FindByEventAndMember(ctx context.Context, eventID, memberID uint) (*domain.Participant, error) {
	var participant domain.Participant
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND member_id = ?", eventID, memberID).
		Take(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepositoryImpl) FindEarliestWaiting(ctx context.Context, eventID uint) (*domain.Participant, error) {
	var participant domain.Participant
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND state = ?", eventID, domain.ParticipantWaiting).
		Order("joined_at ASC, id ASC").
		Take(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepositoryImpl) FindByEvent(ctx context.Context, eventID uint) ([]*domain.Participant, error) {
	var participants []*domain.Participant
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *participantRepositoryImpl) UpdateState(ctx context.Context, id uint, state domain.ParticipantState) error {
	return r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *participantRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Participant{}, id).Error
}

func (r *participantRepositoryImpl) CountWaitingAhead(ctx context.Context, p *domain.Participant) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("event_id = ? AND state = ?", p.EventID, domain.ParticipantWaiting).
		Where("joined_at < ? OR (joined_at = ? AND id < ?)", p.JoinedAt, p.JoinedAt, p.ID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *participantRepositoryImpl) CountByState(ctx context.Context, eventID uint, state domain.ParticipantState) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("event_id = ? AND state = ?", eventID, state).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *participantRepositoryImpl) CountConfirmedByEvent(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		EventID uint
		Total   int
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Select("event_id, COUNT(*) AS total").
		Where("state = ?", domain.ParticipantConfirmed).
		Group("event_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}

func (r *participantRepositoryImpl) CountWaitingTotal(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("state = ?", domain.ParticipantWaiting).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
