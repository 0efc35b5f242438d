package repository

import (
	"context"

	"gorm.io/gorm"

	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
)

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	FindByID(ctx context.Context, id uint) (*domain.Comment, error)
	// FindByIDForUpdate locks the comment row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uint) (*domain.Comment, error)
	// FindChildIDsForUpdate returns and locks the direct replies of a comment, oldest first
	FindChildIDsForUpdate(ctx context.Context, parentID uint) ([]uint, error)
	FindBySubject(ctx context.Context, subject domain.SubjectRef) ([]*domain.Comment, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type commentRepositoryImpl struct {
	db *gorm.DB
}

// NewCommentRepository creates a new instance of CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepositoryImpl{db: db}
}

func (r *commentRepositoryImpl) Create(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Comment, error) {
	var comment domain.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Comment, error) {
	var comment domain.Comment
	if err := database.ForUpdate(r.db.WithContext(ctx)).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepositoryImpl) FindChildIDsForUpdate(ctx context.Context, parentID uint) ([]uint, error) {
	var ids []uint
	if err := database.ForUpdate(r.db.WithContext(ctx)).
		Model(&domain.Comment{}).
		Where("parent_comment_id = ?", parentID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *commentRepositoryImpl) FindBySubject(ctx context.Context, subject domain.SubjectRef) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := r.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ?", subject.Kind, subject.ID).
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Comment{}, id).Error
}

func (r *commentRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Comment{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
