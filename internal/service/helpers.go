package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/events"
	"community-interaction-api/internal/repository"
	"community-interaction-api/internal/response"
)

// storageError wraps an unexpected repository error outside a transaction
func storageError(message string, err error) *response.AppError {
	return response.NewAppError(response.ErrCodeInternal, message, err.Error())
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// appendOutbox writes a domain event through the transaction-bound repositories
func appendOutbox(ctx context.Context, repos *repository.Repositories, eventType, aggregateKind string, aggregateID uint, payload interface{}) error {
	event, err := events.NewOutboxEvent(eventType, aggregateKind, aggregateID, payload)
	if err != nil {
		return err
	}
	if err := repos.Outbox.Append(ctx, event); err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	return nil
}

// subjectOwner returns the owner of a post or event, gorm.ErrRecordNotFound when it does not exist
func subjectOwner(ctx context.Context, repos *repository.Repositories, subject domain.SubjectRef) (uint, error) {
	switch subject.Kind {
	case domain.SubjectKindPost:
		post, err := repos.Posts.FindByID(ctx, subject.ID)
		if err != nil {
			return 0, err
		}
		return post.OwnerID, nil
	case domain.SubjectKindEvent:
		event, err := repos.Events.FindByID(ctx, subject.ID)
		if err != nil {
			return 0, err
		}
		return event.OwnerID, nil
	}
	return 0, gorm.ErrRecordNotFound
}

func targetNotFound(target domain.TargetRef) *response.AppError {
	return response.NewNotFoundError(fmt.Sprintf("%s not found", capitalize(string(target.Kind))), fmt.Sprintf("id=%d", target.ID))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func toCommentResponse(c *domain.Comment) *dto.CommentResponse {
	return &dto.CommentResponse{
		ID:              c.ID,
		SubjectKind:     string(c.SubjectKind),
		SubjectID:       c.SubjectID,
		AuthorID:        c.AuthorID,
		Content:         c.Content,
		ThumbsUp:        c.ThumbsUp,
		ThumbsDown:      c.ThumbsDown,
		ParentCommentID: c.ParentCommentID,
		CreatedAt:       c.CreatedAt,
	}
}
