package model

import (
	"encoding/json"
	"time"
)

// MaxQuoteLength is the maximum number of characters a quote may hold.
const MaxQuoteLength = 255

// Quote mirrors a row of the `quotes` table.  UserID is the author and the
// only user allowed to edit or delete the quote.
type Quote struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteView is the read model returned by the ranking engine: the quote, its
// author and the vote aggregates computed at read time.
//
// ViewerVote is only meaningful when Viewed is true, i.e. the request was
// authenticated.  Anonymous views omit the user_vote key entirely while
// authenticated views always carry it (null when the viewer has not voted).
type QuoteView struct {
	Quote
	Author     Author `json:"user"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	Score      int    `json:"score"`
	ViewerVote *int   `json:"-"`
	Viewed     bool   `json:"-"`
}

// MarshalJSON adds the user_vote key for authenticated viewers.
func (v QuoteView) MarshalJSON() ([]byte, error) {
	type plain QuoteView
	if !v.Viewed {
		return json.Marshal(plain(v))
	}
	return json.Marshal(struct {
		plain
		UserVote *int `json:"user_vote"`
	}{plain: plain(v), UserVote: v.ViewerVote})
}

// QuotePage is one page of ranked quotes.  HasMore reports whether a next
// page exists; no total count is computed.
type QuotePage struct {
	CurrentPage int         `json:"current_page"`
	PerPage     int         `json:"per_page"`
	HasMore     bool        `json:"has_more"`
	Data        []QuoteView `json:"data"`
}
