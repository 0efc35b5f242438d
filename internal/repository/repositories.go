package repository

import "gorm.io/gorm"

// Repositories bundles every repository bound to one *gorm.DB.
// Services build one over the base connection for reads and one over tx inside a transaction.
type Repositories struct {
	Posts        PostRepository
	Events       EventRepository
	Comments     CommentRepository
	Votes        VoteRepository
	Tallies      TallyRepository
	Participants ParticipantRepository
	Outbox       OutboxRepository
}

// New creates repositories bound to db
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Posts:        NewPostRepository(db),
		Events:       NewEventRepository(db),
		Comments:     NewCommentRepository(db),
		Votes:        NewVoteRepository(db),
		Tallies:      NewTallyRepository(db),
		Participants: NewParticipantRepository(db),
		Outbox:       NewOutboxRepository(db),
	}
}
