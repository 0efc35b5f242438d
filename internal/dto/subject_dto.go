package dto

import "time"

// CreatePostRequest represents the request to create a post
type CreatePostRequest struct {
	Title string `json:"title" binding:"required,max=255" example:"Weekend hike"`
	Body  string `json:"body" example:"Who is in?"`
}

// PostResponse represents a post
type PostResponse struct {
	ID        uint      `json:"id" example:"7"`
	OwnerID   uint      `json:"ownerId" example:"5"`
	Title     string    `json:"title" example:"Weekend hike"`
	Body      string    `json:"body" example:"Who is in?"`
	VotesUp   int64     `json:"votesUp" example:"0"`
	VotesDown int64     `json:"votesDown" example:"0"`
	CreatedAt time.Time `json:"createdAt" example:"2024-01-15T10:30:00Z"`
}

// CreateEventRequest represents the request to create an event
type CreateEventRequest struct {
	Title    string     `json:"title" binding:"required,max=255" example:"Board game night"`
	Capacity int        `json:"capacity" binding:"required,min=1" example:"8"`
	StartsAt *time.Time `json:"startsAt,omitempty" example:"2024-02-01T19:00:00Z"`
}

// EventResponse represents an event
type EventResponse struct {
	ID             uint       `json:"id" example:"3"`
	OwnerID        uint       `json:"ownerId" example:"5"`
	Title          string     `json:"title" example:"Board game night"`
	Capacity       int        `json:"capacity" example:"8"`
	ConfirmedCount int        `json:"confirmedCount" example:"6"`
	VotesUp        int64      `json:"votesUp" example:"4"`
	VotesDown      int64      `json:"votesDown" example:"0"`
	StartsAt       *time.Time `json:"startsAt,omitempty" example:"2024-02-01T19:00:00Z"`
	CreatedAt      time.Time  `json:"createdAt" example:"2024-01-15T10:30:00Z"`
}
