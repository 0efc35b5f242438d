package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"community-interaction-api/internal/domain"
)

// OutboxRepository defines the interface for the transactional outbox
type OutboxRepository interface {
	Append(ctx context.Context, event *domain.OutboxEvent) error
	// FindPending returns unpublished events in insertion order, skipping rows that hit maxAttempts
	FindPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []uint, at time.Time) error
	IncrementAttempts(ctx context.Context, id uint) error
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepositoryImpl struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new instance of OutboxRepository
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepositoryImpl{db: db}
}

func (r *outboxRepositoryImpl) Append(ctx context.Context, event *domain.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *outboxRepositoryImpl) FindPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND attempts < ?", maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepositoryImpl) MarkPublished(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("published_at", at).Error
}

func (r *outboxRepositoryImpl) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *outboxRepositoryImpl) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("published_at IS NULL").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
