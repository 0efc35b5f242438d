package repository

import (
	"context"

	"gorm.io/gorm"

	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
)

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, id uint) (*domain.Post, error)
}

type postRepositoryImpl struct {
	db *gorm.DB
}

// NewPostRepository creates a new instance of PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepositoryImpl{db: db}
}

func (r *postRepositoryImpl) Create(ctx context.Context, post *domain.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	FindByID(ctx context.Context, id uint) (*domain.Event, error)
	// FindByIDForUpdate locks the event row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uint) (*domain.Event, error)
	AdjustConfirmedCount(ctx context.Context, id uint, delta int) error
	SetConfirmedCount(ctx context.Context, id uint, count int) error
	UpdateCapacity(ctx context.Context, id uint, capacity int) error
	// ListConfirmedCounts pages through (id, confirmed_count) ordered by id
	ListConfirmedCounts(ctx context.Context, afterID uint, limit int) ([]ConfirmedCountRow, error)
}

// ConfirmedCountRow is an event id with its cached confirmed count
type ConfirmedCountRow struct {
	ID             uint
	ConfirmedCount int
}

type eventRepositoryImpl struct {
	db *gorm.DB
}

// NewEventRepository creates a new instance of EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepositoryImpl{db: db}
}

func (r *eventRepositoryImpl) Create(ctx context.Context, event *domain.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Event, error) {
	var event domain.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Event, error) {
	var event domain.Event
	if err := database.ForUpdate(r.db.WithContext(ctx)).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepositoryImpl) AdjustConfirmedCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ?", id).
		UpdateColumn("confirmed_count", gorm.Expr("confirmed_count + ?", delta)).Error
}

func (r *eventRepositoryImpl) SetConfirmedCount(ctx context.Context, id uint, count int) error {
	return r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ?", id).
		UpdateColumn("confirmed_count", count).Error
}

func (r *eventRepositoryImpl) UpdateCapacity(ctx context.Context, id uint, capacity int) error {
	return r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ?", id).
		Update("capacity", capacity).Error
}

func (r *eventRepositoryImpl) ListConfirmedCounts(ctx context.Context, afterID uint, limit int) ([]ConfirmedCountRow, error) {
	var rows []ConfirmedCountRow
	if err := r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Select("id, confirmed_count").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
