package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/repository"
	"community-interaction-api/internal/response"
)

// SubjectService creates posts and events and serves vote tallies
type SubjectService interface {
	CreatePost(ctx context.Context, ownerID uint, req *dto.CreatePostRequest) (*dto.PostResponse, error)
	CreateEvent(ctx context.Context, ownerID uint, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	GetEvent(ctx context.Context, eventID uint) (*dto.EventResponse, error)
	GetTally(ctx context.Context, target domain.TargetRef) (domain.Tally, error)
}

type subjectServiceImpl struct {
	repos  *repository.Repositories
	cache  cache.TallyCache
	logger *zap.Logger
}

// NewSubjectService creates a new instance of SubjectService
func NewSubjectService(db *gorm.DB, tallyCache cache.TallyCache, logger *zap.Logger) SubjectService {
	return &subjectServiceImpl{
		repos:  repository.New(db),
		cache:  tallyCache,
		logger: logger,
	}
}

func (s *subjectServiceImpl) CreatePost(ctx context.Context, ownerID uint, req *dto.CreatePostRequest) (*dto.PostResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, response.NewValidationError("Title is required", "")
	}

	post := &domain.Post{OwnerID: ownerID, Title: title, Body: req.Body}
	if err := s.repos.Posts.Create(ctx, post); err != nil {
		return nil, storageError("Failed to create post", err)
	}

	s.logger.Info("Post created", zap.Uint("post_id", post.ID), zap.Uint("owner_id", ownerID))
	return toPostResponse(post), nil
}

func (s *subjectServiceImpl) CreateEvent(ctx context.Context, ownerID uint, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, response.NewValidationError("Title is required", "")
	}
	if req.Capacity < 1 {
		return nil, response.NewValidationError("Capacity must be at least 1", fmt.Sprintf("capacity=%d", req.Capacity))
	}

	event := &domain.Event{
		OwnerID:  ownerID,
		Title:    title,
		Capacity: req.Capacity,
		StartsAt: req.StartsAt,
	}
	if err := s.repos.Events.Create(ctx, event); err != nil {
		return nil, storageError("Failed to create event", err)
	}

	s.logger.Info("Event created", zap.Uint("event_id", event.ID), zap.Int("capacity", event.Capacity))
	return toEventResponse(event), nil
}

func (s *subjectServiceImpl) GetEvent(ctx context.Context, eventID uint) (*dto.EventResponse, error) {
	event, err := s.repos.Events.FindByID(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return nil, eventNotFound(eventID)
		}
		return nil, storageError("Failed to load event", err)
	}
	return toEventResponse(event), nil
}

// GetTally reads through the tally cache; cache failures fall back to the database.
// The fill is tied to the generation seen by the lookup, so a vote committed
// after the database read leaves the cache empty instead of stale.
func (s *subjectServiceImpl) GetTally(ctx context.Context, target domain.TargetRef) (domain.Tally, error) {
	if err := validateTarget(target); err != nil {
		return domain.Tally{}, err
	}

	lookup, err := s.cache.Get(ctx, target)
	cacheUp := err == nil
	if err != nil {
		s.logger.Warn("Tally cache read failed", zap.String("key", cache.Key(target)), zap.Error(err))
	}
	if lookup.Hit {
		return lookup.Tally, nil
	}

	tally, err := s.repos.Tallies.Get(ctx, target)
	if err != nil {
		if isNotFound(err) {
			return domain.Tally{}, targetNotFound(target)
		}
		return domain.Tally{}, storageError("Failed to load tally", err)
	}

	if cacheUp {
		if err := s.cache.Fill(ctx, target, lookup.Generation, tally); err != nil {
			s.logger.Warn("Tally cache write failed", zap.String("key", cache.Key(target)), zap.Error(err))
		}
	}
	return tally, nil
}

func toPostResponse(p *domain.Post) *dto.PostResponse {
	return &dto.PostResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Body:      p.Body,
		VotesUp:   p.VotesUp,
		VotesDown: p.VotesDown,
		CreatedAt: p.CreatedAt,
	}
}

func toEventResponse(e *domain.Event) *dto.EventResponse {
	return &dto.EventResponse{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		Title:          e.Title,
		Capacity:       e.Capacity,
		ConfirmedCount: e.ConfirmedCount,
		VotesUp:        e.VotesUp,
		VotesDown:      e.VotesDown,
		StartsAt:       e.StartsAt,
		CreatedAt:      e.CreatedAt,
	}
}
