package dto

import "time"

// CreateCommentRequest represents the request to add a comment
// @Description parentCommentId must reference a comment on the same subject
type CreateCommentRequest struct {
	SubjectKind     string `json:"subjectKind" binding:"required,oneof=post event" example:"post"`
	SubjectID       uint   `json:"subjectId" binding:"required" example:"7"`
	Content         string `json:"content" binding:"required" example:"Great post!"`
	ParentCommentID *uint  `json:"parentCommentId,omitempty" example:"12"`
}

// CommentResponse represents a single comment
type CommentResponse struct {
	ID              uint      `json:"id" example:"13"`
	SubjectKind     string    `json:"subjectKind" example:"post"`
	SubjectID       uint      `json:"subjectId" example:"7"`
	AuthorID        uint      `json:"authorId" example:"5"`
	Content         string    `json:"content" example:"Great post!"`
	ThumbsUp        int64     `json:"thumbsUp" example:"0"`
	ThumbsDown      int64     `json:"thumbsDown" example:"0"`
	ParentCommentID *uint     `json:"parentCommentId,omitempty" example:"12"`
	CreatedAt       time.Time `json:"createdAt" example:"2024-01-15T10:30:00Z"`
}

// CommentNode is a comment with its nested replies
type CommentNode struct {
	CommentResponse
	Replies []*CommentNode `json:"replies"`
}

// DeleteCommentResponse reports the removed subtree
type DeleteCommentResponse struct {
	DeletedComments int    `json:"deletedComments" example:"3"`
	DeletedVotes    int64  `json:"deletedVotes" example:"4"`
	CommentIDs      []uint `json:"commentIds"`
}
