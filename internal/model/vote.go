package model

import "time"

// Vote signs as stored in votes.type.
const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote mirrors a row of the `votes` table.  There is at most one row per
// (QuoteID, UserID) pair, enforced by a unique index.
type Vote struct {
	ID        uint64    `json:"id"`
	QuoteID   uint64    `json:"quote_id"`
	UserID    uint64    `json:"user_id"` // the voter
	Type      int       `json:"type"`    // VoteUp or VoteDown
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
