package models

import "time"

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "+"
	VoteDown VoteType = "-"
)

// Valid reports whether t is one of the two accepted vote directions.
func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown
}

// Vote is a single user's dated judgment on a song.
type Vote struct {
	ID        int64        `json:"id" db:"id"`
	UserID    string       `json:"userId" db:"user_id"`
	Song      string       `json:"song" db:"song"`
	Artist    string       `json:"artist" db:"artist"`
	VoteType  VoteType     `json:"voteType" db:"vote_type"`
	ImageURL  *string      `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	Voter     *UserSummary `json:"voter,omitempty"`
}

// DeletedVote is the archived copy of a vote removed by an admin.
type DeletedVote struct {
	ID         int64     `json:"id" db:"id"`
	OriginalID int64     `json:"originalId" db:"original_id"`
	UserID     string    `json:"userId" db:"user_id"`
	Song       string    `json:"song" db:"song"`
	Artist     string    `json:"artist" db:"artist"`
	VoteType   VoteType  `json:"voteType" db:"vote_type"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	DeletedAt  time.Time `json:"deletedAt" db:"deleted_at"`
}

// VoteRequest is the payload for casting a vote.
type VoteRequest struct {
	Song     string   `json:"song"`
	Artist   string   `json:"artist"`
	VoteType VoteType `json:"voteType"`
	ImageURL *string  `json:"imageUrl,omitempty"`
}
