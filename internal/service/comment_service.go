package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/client"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/events"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/repository"
	"community-interaction-api/internal/response"
)

// MaxCommentLength is the longest comment accepted, in runes
const MaxCommentLength = 5000

// DeleteAuthorizer decides whether actorID may delete comment.
// subjectOwnerID is 0 when the subject no longer exists.
type DeleteAuthorizer func(comment *domain.Comment, subjectOwnerID, actorID uint) bool

// AuthorOrSubjectOwner allows the comment author and the owner of the post or event
func AuthorOrSubjectOwner(comment *domain.Comment, subjectOwnerID, actorID uint) bool {
	if actorID == 0 {
		return false
	}
	return actorID == comment.AuthorID || actorID == subjectOwnerID
}

// AddCommentInput holds the fields of a new comment
type AddCommentInput struct {
	Subject         domain.SubjectRef
	AuthorID        uint
	Content         string
	ParentCommentID *uint
}

// CommentService manages comment trees
type CommentService interface {
	AddComment(ctx context.Context, input AddCommentInput) (*dto.CommentResponse, error)
	DeleteComment(ctx context.Context, commentID, actorID uint, authorize DeleteAuthorizer) (*dto.DeleteCommentResponse, error)
	GetComment(ctx context.Context, commentID uint) (*dto.CommentResponse, error)
	GetThread(ctx context.Context, subject domain.SubjectRef) ([]*dto.CommentNode, error)
}

type commentServiceImpl struct {
	repos    *repository.Repositories
	tx       database.Transactor
	cache    cache.TallyCache
	notifier client.NotificationClient
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCommentService creates a new instance of CommentService
func NewCommentService(db *gorm.DB, tx database.Transactor, tallyCache cache.TallyCache, notifier client.NotificationClient, m *metrics.Metrics, logger *zap.Logger) CommentService {
	return &commentServiceImpl{
		repos:    repository.New(db),
		tx:       tx,
		cache:    tallyCache,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

func validateSubject(subject domain.SubjectRef) error {
	if !subject.Kind.IsValid() {
		return response.NewValidationError("Invalid subject kind", string(subject.Kind))
	}
	if subject.ID == 0 {
		return response.NewValidationError("Subject id is required", "")
	}
	return nil
}

// AddComment creates a top-level comment or a reply on the same subject
func (s *commentServiceImpl) AddComment(ctx context.Context, input AddCommentInput) (*dto.CommentResponse, error) {
	if err := validateSubject(input.Subject); err != nil {
		return nil, err
	}
	if input.AuthorID == 0 {
		return nil, response.NewValidationError("Author id is required", "")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, response.NewValidationError("Comment content is required", "")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, response.NewValidationError(fmt.Sprintf("Comment content exceeds %d characters", MaxCommentLength), "")
	}

	var (
		comment *domain.Comment
		parent  *domain.Comment
	)

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)

		if _, err := subjectOwner(ctx, repos, input.Subject); err != nil {
			if isNotFound(err) {
				return targetNotFound(input.Subject.TargetRef())
			}
			return fmt.Errorf("find subject: %w", err)
		}

		parent = nil
		if input.ParentCommentID != nil {
			p, err := repos.Comments.FindByIDForUpdate(ctx, *input.ParentCommentID)
			if err != nil && !isNotFound(err) {
				return fmt.Errorf("lock parent comment: %w", err)
			}
			if p == nil || p.Subject() != input.Subject {
				return response.NewNotFoundError("Parent comment not found on this subject", fmt.Sprintf("parent_comment_id=%d", *input.ParentCommentID))
			}
			parent = p
		}

		comment = &domain.Comment{
			SubjectKind:     input.Subject.Kind,
			SubjectID:       input.Subject.ID,
			AuthorID:        input.AuthorID,
			Content:         content,
			ParentCommentID: input.ParentCommentID,
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}

		return appendOutbox(ctx, repos, domain.EventCommentAdded, string(domain.TargetKindComment), comment.ID, events.CommentAddedPayload{
			CommentID:       comment.ID,
			SubjectKind:     comment.SubjectKind,
			SubjectID:       comment.SubjectID,
			AuthorID:        comment.AuthorID,
			ParentCommentID: comment.ParentCommentID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCommentCreated()

	if parent != nil && parent.AuthorID != comment.AuthorID {
		if err := s.notifier.SendNotification(ctx, client.NotificationEvent{
			Type:         client.NotificationCommentReplied,
			ActorID:      comment.AuthorID,
			TargetUserID: parent.AuthorID,
			ResourceType: "comment",
			ResourceID:   comment.ID,
			Metadata: map[string]interface{}{
				"parentCommentId": parent.ID,
				"subjectKind":     comment.SubjectKind,
				"subjectId":       comment.SubjectID,
			},
		}); err != nil {
			s.logger.Warn("Failed to send reply notification", zap.Uint("comment_id", comment.ID), zap.Error(err))
		}
	}

	return toCommentResponse(comment), nil
}

// DeleteComment removes a comment, every descendant and every vote on them in one transaction.
// Nodes are collected with an explicit stack and deleted in reverse visit order so no
// row outlives a descendant and the root goes last.
func (s *commentServiceImpl) DeleteComment(ctx context.Context, commentID, actorID uint, authorize DeleteAuthorizer) (*dto.DeleteCommentResponse, error) {
	if commentID == 0 {
		return nil, response.NewValidationError("Comment id is required", "")
	}
	if authorize == nil {
		authorize = AuthorOrSubjectOwner
	}

	var (
		visited      []uint
		deletedVotes int64
		root         *domain.Comment
	)

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)

		var err error
		root, err = repos.Comments.FindByIDForUpdate(ctx, commentID)
		if err != nil {
			if isNotFound(err) {
				return response.NewNotFoundError("Comment not found", fmt.Sprintf("id=%d", commentID))
			}
			return fmt.Errorf("lock comment: %w", err)
		}

		ownerID, err := subjectOwner(ctx, repos, root.Subject())
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("find subject owner: %w", err)
		}
		if !authorize(root, ownerID, actorID) {
			return response.NewForbiddenError("Not allowed to delete this comment", fmt.Sprintf("actor_id=%d", actorID))
		}

		visited, err = collectSubtree(ctx, repos.Comments, root.ID)
		if err != nil {
			return err
		}

		deletedVotes = 0
		for i := len(visited) - 1; i >= 0; i-- {
			id := visited[i]
			n, err := repos.Votes.DeleteByTargets(ctx, domain.TargetKindComment, []uint{id})
			if err != nil {
				return fmt.Errorf("delete votes of comment %d: %w", id, err)
			}
			deletedVotes += n
			if err := repos.Comments.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete comment %d: %w", id, err)
			}
		}

		return appendOutbox(ctx, repos, domain.EventCommentDeleted, string(domain.TargetKindComment), root.ID, events.CommentDeletedPayload{
			RootCommentID: root.ID,
			SubjectKind:   root.SubjectKind,
			SubjectID:     root.SubjectID,
			ActorID:       actorID,
			CommentIDs:    visited,
			VotesRemoved:  deletedVotes,
		})
	})
	if err != nil {
		return nil, err
	}

	targets := make([]domain.TargetRef, len(visited))
	for i, id := range visited {
		targets[i] = domain.TargetRef{Kind: domain.TargetKindComment, ID: id}
	}
	if err := s.cache.Invalidate(ctx, targets...); err != nil {
		s.logger.Warn("Failed to invalidate cached comment tallies", zap.Int("count", len(targets)), zap.Error(err))
	}
	s.metrics.AddCommentsDeleted(len(visited))

	s.logger.Info("Comment subtree deleted",
		zap.Uint("root_comment_id", commentID),
		zap.Uint("actor_id", actorID),
		zap.Int("comments", len(visited)),
		zap.Int64("votes", deletedVotes),
	)

	return &dto.DeleteCommentResponse{
		DeletedComments: len(visited),
		DeletedVotes:    deletedVotes,
		CommentIDs:      visited,
	}, nil
}

// collectSubtree walks the tree under rootID depth-first with an explicit stack,
// locking every visited node. The result is in visit order, root first.
func collectSubtree(ctx context.Context, comments repository.CommentRepository, rootID uint) ([]uint, error) {
	var (
		order = []uint{}
		stack = []uint{rootID}
		seen  = map[uint]bool{}
	)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)

		children, err := comments.FindChildIDsForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load replies of comment %d: %w", id, err)
		}
		// push in reverse so the oldest reply is visited first
		for i := len(children) - 1; i >= 0; i-- {
			if !seen[children[i]] {
				stack = append(stack, children[i])
			}
		}
	}
	return order, nil
}

// GetComment returns a single comment
func (s *commentServiceImpl) GetComment(ctx context.Context, commentID uint) (*dto.CommentResponse, error) {
	comment, err := s.repos.Comments.FindByID(ctx, commentID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Comment not found", fmt.Sprintf("id=%d", commentID))
		}
		return nil, storageError("Failed to load comment", err)
	}
	return toCommentResponse(comment), nil
}

// GetThread returns the subject's comments as a forest, roots and replies oldest first
func (s *commentServiceImpl) GetThread(ctx context.Context, subject domain.SubjectRef) ([]*dto.CommentNode, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if _, err := subjectOwner(ctx, s.repos, subject); err != nil {
		if isNotFound(err) {
			return nil, targetNotFound(subject.TargetRef())
		}
		return nil, storageError("Failed to load subject", err)
	}

	comments, err := s.repos.Comments.FindBySubject(ctx, subject)
	if err != nil {
		return nil, storageError("Failed to load comments", err)
	}
	return buildThread(comments), nil
}

// buildThread links comments sorted by id into nested nodes.
// A reply whose parent is missing is promoted to a root.
func buildThread(comments []*domain.Comment) []*dto.CommentNode {
	nodes := make(map[uint]*dto.CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &dto.CommentNode{CommentResponse: *toCommentResponse(c), Replies: []*dto.CommentNode{}}
	}

	roots := make([]*dto.CommentNode, 0)
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentCommentID != nil {
			if parent, ok := nodes[*c.ParentCommentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
