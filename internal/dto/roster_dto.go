package dto

import "time"

// JoinResponse represents the roster placement after join
// @Description position is the 1-based waiting list position, 0 when confirmed
type JoinResponse struct {
	EventID  uint   `json:"eventId" example:"3"`
	MemberID uint   `json:"memberId" example:"5"`
	State    string `json:"state" example:"waiting"`
	Position int64  `json:"position" example:"2"`
}

// LeaveResponse reports a departure and any promotion it caused
type LeaveResponse struct {
	EventID          uint   `json:"eventId" example:"3"`
	MemberID         uint   `json:"memberId" example:"5"`
	PreviousState    string `json:"previousState" example:"confirmed"`
	PromotedMemberID *uint  `json:"promotedMemberId,omitempty" example:"9"`
}

// UpdateCapacityRequest changes an event's capacity
type UpdateCapacityRequest struct {
	Capacity int `json:"capacity" binding:"required,min=1" example:"20"`
}

// CapacityResponse reports the capacity change and promotions
type CapacityResponse struct {
	EventID         uint   `json:"eventId" example:"3"`
	Capacity        int    `json:"capacity" example:"20"`
	ConfirmedCount  int    `json:"confirmedCount" example:"20"`
	PromotedMembers []uint `json:"promotedMembers"`
}

// ParticipantResponse represents one roster row
type ParticipantResponse struct {
	MemberID uint      `json:"memberId" example:"5"`
	State    string    `json:"state" example:"confirmed"`
	Position int64     `json:"position" example:"0"`
	JoinedAt time.Time `json:"joinedAt" example:"2024-01-15T10:30:00Z"`
}

// RosterResponse represents an event roster
type RosterResponse struct {
	EventID        uint                   `json:"eventId" example:"3"`
	Capacity       int                    `json:"capacity" example:"20"`
	ConfirmedCount int                    `json:"confirmedCount" example:"18"`
	Confirmed      []*ParticipantResponse `json:"confirmed"`
	Waiting        []*ParticipantResponse `json:"waiting"`
}
