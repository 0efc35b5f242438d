package domain

// TargetKind identifies anything that carries a vote tally
type TargetKind string

const (
	TargetKindPost    TargetKind = "post"
	TargetKindEvent   TargetKind = "event"
	TargetKindComment TargetKind = "comment"
)

// TallyColumns names the table and counter columns holding a target's cached tally
type TallyColumns struct {
	Table string
	Up    string
	Down  string
}

var tallyColumns = map[TargetKind]TallyColumns{
	TargetKindPost:    {Table: "posts", Up: "votes_up", Down: "votes_down"},
	TargetKindEvent:   {Table: "events", Up: "votes_up", Down: "votes_down"},
	TargetKindComment: {Table: "comments", Up: "thumbs_up", Down: "thumbs_down"},
}

// TargetKinds lists every votable kind
func TargetKinds() []TargetKind {
	return []TargetKind{TargetKindPost, TargetKindEvent, TargetKindComment}
}

// IsValid reports whether the kind is known
func (k TargetKind) IsValid() bool {
	_, ok := tallyColumns[k]
	return ok
}

// Columns returns the tally columns for the kind.
// Callers must check IsValid first.
func (k TargetKind) Columns() TallyColumns {
	return tallyColumns[k]
}

// TargetRef points at a votable row
type TargetRef struct {
	Kind TargetKind `json:"kind"`
	ID   uint       `json:"id"`
}

// VoteDirection is the direction of a single vote
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// IsValid reports whether the direction is up or down
func (d VoteDirection) IsValid() bool {
	return d == VoteUp || d == VoteDown
}

// Vote is one voter's current direction on one target
type Vote struct {
	BaseModel
	TargetKind TargetKind    `gorm:"type:varchar(16);not null;uniqueIndex:uq_votes_target_voter;index:idx_votes_target" json:"target_kind"`
	TargetID   uint          `gorm:"not null;uniqueIndex:uq_votes_target_voter;index:idx_votes_target" json:"target_id"`
	VoterID    uint          `gorm:"not null;uniqueIndex:uq_votes_target_voter" json:"voter_id"`
	Direction  VoteDirection `gorm:"type:varchar(8);not null" json:"direction"`
}

// TableName specifies the table name for Vote
func (Vote) TableName() string {
	return "votes"
}

// Tally is a pair of cached counters
type Tally struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}
