package domain

import "time"

// SubjectKind identifies a commentable top-level entity
type SubjectKind string

const (
	SubjectKindPost  SubjectKind = "post"
	SubjectKindEvent SubjectKind = "event"
)

// IsValid reports whether the kind is known
func (k SubjectKind) IsValid() bool {
	return k == SubjectKindPost || k == SubjectKindEvent
}

// SubjectRef points at a post or an event
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   uint        `json:"id"`
}

// TargetRef returns the vote target for the subject itself
func (s SubjectRef) TargetRef() TargetRef {
	return TargetRef{Kind: TargetKind(s.Kind), ID: s.ID}
}

// Post is a top-level votable and commentable entry
type Post struct {
	BaseModel
	OwnerID   uint   `gorm:"not null;index:idx_posts_owner_id" json:"owner_id"`
	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	Body      string `gorm:"type:text" json:"body"`
	VotesUp   int64  `gorm:"not null;default:0" json:"votes_up"`
	VotesDown int64  `gorm:"not null;default:0" json:"votes_down"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Event is a capacity-bound entity with a roster
type Event struct {
	BaseModel
	OwnerID        uint       `gorm:"not null;index:idx_events_owner_id" json:"owner_id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Capacity       int        `gorm:"not null" json:"capacity"`
	ConfirmedCount int        `gorm:"not null;default:0" json:"confirmed_count"`
	VotesUp        int64      `gorm:"not null;default:0" json:"votes_up"`
	VotesDown      int64      `gorm:"not null;default:0" json:"votes_down"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "events"
}

// HasFreeSeat reports whether another member can be confirmed
func (e *Event) HasFreeSeat() bool {
	return e.ConfirmedCount < e.Capacity
}
