package domain

import "time"

// ParticipantState is the roster state of a member
type ParticipantState string

const (
	ParticipantConfirmed ParticipantState = "confirmed"
	ParticipantWaiting   ParticipantState = "waiting"
)

// Participant is a member's row on an event roster.
// Waiting rows are ordered by (joined_at, id).
type Participant struct {
	ID       uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID  uint             `gorm:"not null;uniqueIndex:uq_participants_event_member;index:idx_participants_event_state" json:"event_id"`
	MemberID uint             `gorm:"not null;uniqueIndex:uq_participants_event_member;index:idx_participants_member_id" json:"member_id"`
	State    ParticipantState `gorm:"type:varchar(16);not null;index:idx_participants_event_state" json:"state"`
	JoinedAt time.Time        `gorm:"not null" json:"joined_at"`
}

// TableName specifies the table name for Participant
func (Participant) TableName() string {
	return "participants"
}
