package service

import (
	"context"

	"github.com/iliyamo/quote-board/internal/model"
)

// QueryStore is the read side of the persistence collaborator.  Every view it
// returns must have its aggregates computed from a single statement so that
// upvotes, downvotes and score describe the same snapshot.
type QueryStore interface {
	// QuoteView returns ErrNotFound when the quote does not exist.
	QuoteView(ctx context.Context, id uint64, viewer *uint64) (*model.QuoteView, error)
	// ListQuoteViews returns up to limit views ordered by RankKey.
	ListQuoteViews(ctx context.Context, offset, limit int, viewer *uint64) ([]model.QuoteView, error)
	// RandomQuoteView returns nil, nil when there are no quotes.
	RandomQuoteView(ctx context.Context, viewer *uint64) (*model.QuoteView, error)
	// VotesForQuote returns the vote rows of a quote in insertion order, or
	// ErrNotFound when the quote does not exist.
	VotesForQuote(ctx context.Context, quoteID uint64) ([]model.Vote, error)
}

// Store is the full persistence collaborator used by the core.
type Store interface {
	QueryStore
	InsertQuote(ctx context.Context, authorID uint64, content string) (*model.Quote, error)
	// WithinTx runs fn in a single transaction.  The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes available inside a transaction.
type Tx interface {
	// LockQuote loads the quote and holds a write lock on it until the
	// transaction ends.  Returns ErrNotFound when absent.
	LockQuote(ctx context.Context, id uint64) (*model.Quote, error)
	// FindVote returns nil, nil when the voter has no vote on the quote.
	FindVote(ctx context.Context, quoteID, voterID uint64) (*model.Vote, error)
	InsertVote(ctx context.Context, quoteID, voterID uint64, sign int) error
	UpdateVoteType(ctx context.Context, voteID uint64, sign int) error
	DeleteVote(ctx context.Context, voteID uint64) error
	UpdateQuoteContent(ctx context.Context, id uint64, content string) (*model.Quote, error)
	// DeleteQuote removes the quote together with all of its votes.
	DeleteQuote(ctx context.Context, id uint64) error
}
