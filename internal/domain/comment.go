package domain

// Comment is a node in a subject's comment tree.
// The subject link is polymorphic (kind + id) so no foreign key is declared.
type Comment struct {
	BaseModel
	SubjectKind     SubjectKind `gorm:"type:varchar(16);not null;index:idx_comments_subject" json:"subject_kind"`
	SubjectID       uint        `gorm:"not null;index:idx_comments_subject" json:"subject_id"`
	AuthorID        uint        `gorm:"not null;index:idx_comments_author_id" json:"author_id"`
	Content         string      `gorm:"type:text;not null" json:"content"`
	ThumbsUp        int64       `gorm:"not null;default:0" json:"thumbs_up"`
	ThumbsDown      int64       `gorm:"not null;default:0" json:"thumbs_down"`
	ParentCommentID *uint       `gorm:"index:idx_comments_parent_id" json:"parent_comment_id,omitempty"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// Subject returns the subject the comment belongs to
func (c *Comment) Subject() SubjectRef {
	return SubjectRef{Kind: c.SubjectKind, ID: c.SubjectID}
}
