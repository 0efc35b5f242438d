package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Domain event types written to the outbox
const (
	EventVoteCast        = "vote.cast"
	EventCommentAdded    = "comment.added"
	EventCommentDeleted  = "comment.deleted"
	EventRosterJoined    = "roster.joined"
	EventRosterLeft      = "roster.left"
	EventRosterPromoted  = "roster.promoted"
	EventCapacityChanged = "roster.capacity_changed"
)

// OutboxEvent is a domain event stored in the same transaction as the change it describes.
// ID gives relay order, EventID is the identifier consumers deduplicate on.
type OutboxEvent struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_outbox_event_id" json:"event_id"`
	Type          string         `gorm:"type:varchar(64);not null" json:"type"`
	AggregateKind string         `gorm:"type:varchar(16);not null" json:"aggregate_kind"`
	AggregateID   uint           `gorm:"not null" json:"aggregate_id"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	PublishedAt   *time.Time     `gorm:"index:idx_outbox_published_at" json:"published_at,omitempty"`
}

// TableName specifies the table name for OutboxEvent
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
