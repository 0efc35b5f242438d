package dto

// CastVoteRequest represents a vote toggle
// @Description Casting the same direction twice retracts the vote
type CastVoteRequest struct {
	TargetKind string `json:"targetKind" binding:"required,oneof=post event comment" example:"comment"`
	TargetID   uint   `json:"targetId" binding:"required" example:"42"`
	Direction  string `json:"direction" binding:"required,oneof=up down" example:"up"`
}

// VoteResponse represents the tally after a toggle
// @Description vote is null when the voter has no vote on the target
type VoteResponse struct {
	TargetKind string  `json:"targetKind" example:"comment"`
	TargetID   uint    `json:"targetId" example:"42"`
	Up         int64   `json:"up" example:"3"`
	Down       int64   `json:"down" example:"1"`
	Vote       *string `json:"vote" example:"up"`
}

// TallyResponse represents the cached counters of a target
type TallyResponse struct {
	TargetKind string `json:"targetKind" example:"post"`
	TargetID   uint   `json:"targetId" example:"7"`
	Up         int64  `json:"up" example:"10"`
	Down       int64  `json:"down" example:"2"`
}
