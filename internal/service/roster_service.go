package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/client"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/events"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/repository"
	"community-interaction-api/internal/response"
)

// RosterService admits members to events up to capacity and keeps a FIFO waiting list
type RosterService interface {
	Join(ctx context.Context, eventID, memberID uint) (*dto.JoinResponse, error)
	Leave(ctx context.Context, eventID, memberID uint) (*dto.LeaveResponse, error)
	UpdateCapacity(ctx context.Context, eventID, actorID uint, capacity int) (*dto.CapacityResponse, error)
	GetRoster(ctx context.Context, eventID uint) (*dto.RosterResponse, error)
	GetPosition(ctx context.Context, eventID, memberID uint) (*dto.ParticipantResponse, error)
}

type rosterServiceImpl struct {
	repos    *repository.Repositories
	tx       database.Transactor
	notifier client.NotificationClient
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// RosterOption configures the roster service
type RosterOption func(*rosterServiceImpl)

// WithClock overrides the clock used for joined_at
func WithClock(now func() time.Time) RosterOption {
	return func(s *rosterServiceImpl) {
		s.now = now
	}
}

// NewRosterService creates a new instance of RosterService
func NewRosterService(db *gorm.DB, tx database.Transactor, notifier client.NotificationClient, m *metrics.Metrics, logger *zap.Logger, opts ...RosterOption) RosterService {
	s := &rosterServiceImpl{
		repos:    repository.New(db),
		tx:       tx,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func eventNotFound(eventID uint) *response.AppError {
	return response.NewNotFoundError("Event not found", fmt.Sprintf("id=%d", eventID))
}

func lockEvent(ctx context.Context, repos *repository.Repositories, eventID uint) (*domain.Event, error) {
	event, err := repos.Events.FindByIDForUpdate(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return nil, eventNotFound(eventID)
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	return event, nil
}

// Join confirms the member when a seat is free, otherwise appends them to the waiting list
func (s *rosterServiceImpl) Join(ctx context.Context, eventID, memberID uint) (*dto.JoinResponse, error) {
	if eventID == 0 || memberID == 0 {
		return nil, response.NewValidationError("Event id and member id are required", "")
	}

	var (
		state    domain.ParticipantState
		position int64
	)

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)

		event, err := lockEvent(ctx, repos, eventID)
		if err != nil {
			return err
		}

		existing, err := repos.Participants.FindByEventAndMember(ctx, eventID, memberID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("find participant: %w", err)
		}
		if existing != nil {
			if existing.State == domain.ParticipantConfirmed {
				return response.NewConflictError("Member is already confirmed", fmt.Sprintf("member_id=%d", memberID))
			}
			return response.NewConflictError("Member is already on the waiting list", fmt.Sprintf("member_id=%d", memberID))
		}

		p := &domain.Participant{
			EventID:  eventID,
			MemberID: memberID,
			State:    domain.ParticipantWaiting,
			JoinedAt: s.now(),
		}
		if event.HasFreeSeat() {
			p.State = domain.ParticipantConfirmed
		}
		if err := repos.Participants.Create(ctx, p); err != nil {
			return fmt.Errorf("create participant: %w", err)
		}

		confirmed := event.ConfirmedCount
		position = 0
		if p.State == domain.ParticipantConfirmed {
			if err := repos.Events.AdjustConfirmedCount(ctx, eventID, 1); err != nil {
				return fmt.Errorf("increment confirmed count: %w", err)
			}
			confirmed++
		} else {
			ahead, err := repos.Participants.CountWaitingAhead(ctx, p)
			if err != nil {
				return fmt.Errorf("count waiting list: %w", err)
			}
			position = ahead + 1
		}
		state = p.State

		return appendOutbox(ctx, repos, domain.EventRosterJoined, string(domain.SubjectKindEvent), eventID, events.RosterPayload{
			EventID:        eventID,
			MemberID:       memberID,
			State:          p.State,
			ConfirmedCount: confirmed,
			Capacity:       event.Capacity,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRosterTransition("joined_" + string(state))
	s.logger.Info("Member joined event",
		zap.Uint("event_id", eventID),
		zap.Uint("member_id", memberID),
		zap.String("state", string(state)),
		zap.Int64("position", position),
	)

	return &dto.JoinResponse{
		EventID:  eventID,
		MemberID: memberID,
		State:    string(state),
		Position: position,
	}, nil
}

// Leave removes the member; a confirmed departure promotes the earliest waiting member
func (s *rosterServiceImpl) Leave(ctx context.Context, eventID, memberID uint) (*dto.LeaveResponse, error) {
	if eventID == 0 || memberID == 0 {
		return nil, response.NewValidationError("Event id and member id are required", "")
	}

	var (
		previous domain.ParticipantState
		promoted []uint
		event    *domain.Event
	)

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)
		promoted = nil

		var err error
		event, err = lockEvent(ctx, repos, eventID)
		if err != nil {
			return err
		}

		p, err := repos.Participants.FindByEventAndMember(ctx, eventID, memberID)
		if err != nil {
			if isNotFound(err) {
				return response.NewNotFoundError("Member is not on the roster", fmt.Sprintf("member_id=%d", memberID))
			}
			return fmt.Errorf("find participant: %w", err)
		}
		previous = p.State

		if err := repos.Participants.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}

		if p.State == domain.ParticipantConfirmed {
			if err := repos.Events.AdjustConfirmedCount(ctx, eventID, -1); err != nil {
				return fmt.Errorf("decrement confirmed count: %w", err)
			}
			event.ConfirmedCount--
			if promoted, err = promoteWaiting(ctx, repos, event); err != nil {
				return err
			}
		}

		return appendOutbox(ctx, repos, domain.EventRosterLeft, string(domain.SubjectKindEvent), eventID, events.RosterPayload{
			EventID:        eventID,
			MemberID:       memberID,
			State:          previous,
			ConfirmedCount: event.ConfirmedCount,
			Capacity:       event.Capacity,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRosterTransition("left_" + string(previous))
	s.afterPromotion(ctx, event, memberID, promoted)

	resp := &dto.LeaveResponse{
		EventID:       eventID,
		MemberID:      memberID,
		PreviousState: string(previous),
	}
	if len(promoted) > 0 {
		id := promoted[0]
		resp.PromotedMemberID = &id
	}
	return resp, nil
}

// UpdateCapacity changes the event capacity; growth promotes waiting members in FIFO order
func (s *rosterServiceImpl) UpdateCapacity(ctx context.Context, eventID, actorID uint, capacity int) (*dto.CapacityResponse, error) {
	if capacity < 1 {
		return nil, response.NewValidationError("Capacity must be at least 1", fmt.Sprintf("capacity=%d", capacity))
	}

	var (
		promoted []uint
		event    *domain.Event
	)

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repos := repository.New(tx)
		promoted = nil

		var err error
		event, err = lockEvent(ctx, repos, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID != actorID {
			return response.NewForbiddenError("Only the event owner can change capacity", fmt.Sprintf("actor_id=%d", actorID))
		}
		if capacity < event.ConfirmedCount {
			return response.NewValidationError("Capacity cannot be below the confirmed count",
				fmt.Sprintf("capacity=%d confirmed=%d", capacity, event.ConfirmedCount))
		}

		if err := repos.Events.UpdateCapacity(ctx, eventID, capacity); err != nil {
			return fmt.Errorf("update capacity: %w", err)
		}
		event.Capacity = capacity

		if promoted, err = promoteWaiting(ctx, repos, event); err != nil {
			return err
		}

		return appendOutbox(ctx, repos, domain.EventCapacityChanged, string(domain.SubjectKindEvent), eventID, events.RosterPayload{
			EventID:        eventID,
			MemberID:       actorID,
			ConfirmedCount: event.ConfirmedCount,
			Capacity:       event.Capacity,
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterPromotion(ctx, event, actorID, promoted)

	return &dto.CapacityResponse{
		EventID:         eventID,
		Capacity:        event.Capacity,
		ConfirmedCount:  event.ConfirmedCount,
		PromotedMembers: append([]uint{}, promoted...),
	}, nil
}

// promoteWaiting confirms waiting members, earliest first, while the locked event has a free seat.
// event.ConfirmedCount is kept in step with the row.
func promoteWaiting(ctx context.Context, repos *repository.Repositories, event *domain.Event) ([]uint, error) {
	var promoted []uint
	for event.HasFreeSeat() {
		next, err := repos.Participants.FindEarliestWaiting(ctx, event.ID)
		if err != nil {
			if isNotFound(err) {
				break
			}
			return nil, fmt.Errorf("find earliest waiting member: %w", err)
		}
		if err := repos.Participants.UpdateState(ctx, next.ID, domain.ParticipantConfirmed); err != nil {
			return nil, fmt.Errorf("promote member %d: %w", next.MemberID, err)
		}
		if err := repos.Events.AdjustConfirmedCount(ctx, event.ID, 1); err != nil {
			return nil, fmt.Errorf("increment confirmed count: %w", err)
		}
		event.ConfirmedCount++
		promoted = append(promoted, next.MemberID)

		if err := appendOutbox(ctx, repos, domain.EventRosterPromoted, string(domain.SubjectKindEvent), event.ID, events.RosterPayload{
			EventID:        event.ID,
			MemberID:       next.MemberID,
			State:          domain.ParticipantConfirmed,
			ConfirmedCount: event.ConfirmedCount,
			Capacity:       event.Capacity,
		}); err != nil {
			return nil, err
		}
	}
	return promoted, nil
}

// afterPromotion records metrics and notifies promoted members once the transaction has committed.
// A capacity increase can promote several members, so notices go out in one bulk call.
func (s *rosterServiceImpl) afterPromotion(ctx context.Context, event *domain.Event, actorID uint, promoted []uint) {
	if len(promoted) == 0 {
		return
	}

	notices := make([]client.NotificationEvent, 0, len(promoted))
	for _, memberID := range promoted {
		s.metrics.RecordRosterTransition("promoted")
		s.logger.Info("Waiting member promoted",
			zap.Uint("event_id", event.ID),
			zap.Uint("member_id", memberID),
		)
		notices = append(notices, client.NotificationEvent{
			Type:         client.NotificationRosterPromoted,
			ActorID:      actorID,
			TargetUserID: memberID,
			ResourceType: "event",
			ResourceID:   event.ID,
			Metadata: map[string]interface{}{
				"eventTitle": event.Title,
			},
		})
	}

	if err := s.notifier.SendBulkNotifications(ctx, notices); err != nil {
		s.logger.Warn("Failed to send promotion notifications", zap.Int("count", len(notices)), zap.Error(err))
	}
}

// GetRoster returns confirmed members and the waiting list in FIFO order
func (s *rosterServiceImpl) GetRoster(ctx context.Context, eventID uint) (*dto.RosterResponse, error) {
	event, err := s.repos.Events.FindByID(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return nil, eventNotFound(eventID)
		}
		return nil, storageError("Failed to load event", err)
	}

	participants, err := s.repos.Participants.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, storageError("Failed to load roster", err)
	}

	roster := &dto.RosterResponse{
		EventID:        event.ID,
		Capacity:       event.Capacity,
		ConfirmedCount: event.ConfirmedCount,
		Confirmed:      make([]*dto.ParticipantResponse, 0),
		Waiting:        make([]*dto.ParticipantResponse, 0),
	}
	for _, p := range participants {
		entry := &dto.ParticipantResponse{
			MemberID: p.MemberID,
			State:    string(p.State),
			JoinedAt: p.JoinedAt,
		}
		if p.State == domain.ParticipantConfirmed {
			roster.Confirmed = append(roster.Confirmed, entry)
			continue
		}
		entry.Position = int64(len(roster.Waiting) + 1)
		roster.Waiting = append(roster.Waiting, entry)
	}
	return roster, nil
}

// GetPosition returns the member's roster row; Position is 0 for confirmed members
func (s *rosterServiceImpl) GetPosition(ctx context.Context, eventID, memberID uint) (*dto.ParticipantResponse, error) {
	p, err := s.repos.Participants.FindByEventAndMember(ctx, eventID, memberID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Member is not on the roster", fmt.Sprintf("member_id=%d", memberID))
		}
		return nil, storageError("Failed to load participant", err)
	}

	resp := &dto.ParticipantResponse{
		MemberID: p.MemberID,
		State:    string(p.State),
		JoinedAt: p.JoinedAt,
	}
	if p.State == domain.ParticipantWaiting {
		ahead, err := s.repos.Participants.CountWaitingAhead(ctx, p)
		if err != nil {
			return nil, storageError("Failed to load waiting position", err)
		}
		resp.Position = ahead + 1
	}
	return resp, nil
}
