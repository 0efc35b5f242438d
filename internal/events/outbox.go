package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"community-interaction-api/internal/domain"
)

// VoteCastPayload describes a vote toggle
type VoteCastPayload struct {
	TargetKind domain.TargetKind     `json:"targetKind"`
	TargetID   uint                  `json:"targetId"`
	VoterID    uint                  `json:"voterId"`
	Outcome    string                `json:"outcome"`
	Direction  *domain.VoteDirection `json:"direction"`
	Up         int64                 `json:"up"`
	Down       int64                 `json:"down"`
}

// CommentAddedPayload describes a new comment
type CommentAddedPayload struct {
	CommentID       uint               `json:"commentId"`
	SubjectKind     domain.SubjectKind `json:"subjectKind"`
	SubjectID       uint               `json:"subjectId"`
	AuthorID        uint               `json:"authorId"`
	ParentCommentID *uint              `json:"parentCommentId,omitempty"`
}

// CommentDeletedPayload describes a removed subtree
type CommentDeletedPayload struct {
	RootCommentID uint               `json:"rootCommentId"`
	SubjectKind   domain.SubjectKind `json:"subjectKind"`
	SubjectID     uint               `json:"subjectId"`
	ActorID       uint               `json:"actorId"`
	CommentIDs    []uint             `json:"commentIds"`
	VotesRemoved  int64              `json:"votesRemoved"`
}

// RosterPayload describes a roster transition
type RosterPayload struct {
	EventID        uint                    `json:"eventId"`
	MemberID       uint                    `json:"memberId"`
	State          domain.ParticipantState `json:"state"`
	ConfirmedCount int                     `json:"confirmedCount"`
	Capacity       int                     `json:"capacity"`
}

// NewOutboxEvent builds an outbox row with a fresh event id and a JSON payload
func NewOutboxEvent(eventType, aggregateKind string, aggregateID uint, payload interface{}) (*domain.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &domain.OutboxEvent{
		EventID:       uuid.New(),
		Type:          eventType,
		AggregateKind: aggregateKind,
		AggregateID:   aggregateID,
		Payload:       datatypes.JSON(body),
	}, nil
}
