package service

import (
	"context"
	"math"

	"github.com/iliyamo/quote-board/internal/model"
)

// Paging defaults and bounds for ListPaged.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// RankKey is the ordering key of a quote in listings: net score descending,
// quotes nobody voted on last (their score sum is NULL, not zero), ties broken
// by insertion order.
type RankKey struct {
	HasVotes bool
	Score    int
	ID       uint64
}

// Less reports whether k sorts before o.
func (k RankKey) Less(o RankKey) bool {
	if k.HasVotes != o.HasVotes {
		return k.HasVotes
	}
	if k.Score != o.Score {
		return k.Score > o.Score
	}
	return k.ID < o.ID
}

// QueryEngine builds quote read models.  It never writes.
type QueryEngine struct {
	store QueryStore
}

// NewQueryEngine returns an engine reading from store.
func NewQueryEngine(store QueryStore) *QueryEngine {
	return &QueryEngine{store: store}
}

// GetByID returns the view of one quote.  viewer is nil for anonymous callers.
func (e *QueryEngine) GetByID(ctx context.Context, quoteID uint64, viewer *uint64) (*model.QuoteView, error) {
	return e.store.QuoteView(ctx, quoteID, viewer)
}

// ListPaged returns page number page of size limit in rank order.  One extra
// row is fetched to tell whether another page exists.
func (e *QueryEngine) ListPaged(ctx context.Context, page, limit int, viewer *uint64) (*model.QuotePage, error) {
	verr := &ValidationError{}
	if page < 1 {
		verr.Add("page", "The page must be at least 1.")
	}
	if limit < 1 || limit > MaxLimit {
		verr.Add("limit", "The limit must be between 1 and 100.")
	}
	if len(verr.Fields) == 0 && page-1 > (math.MaxInt32-limit)/limit {
		verr.Add("page", "The page is too large.")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	views, err := e.store.ListQuoteViews(ctx, (page-1)*limit, limit+1, viewer)
	if err != nil {
		return nil, err
	}
	hasMore := len(views) > limit
	if hasMore {
		views = views[:limit]
	}
	if views == nil {
		views = []model.QuoteView{}
	}
	return &model.QuotePage{
		CurrentPage: page,
		PerPage:     limit,
		HasMore:     hasMore,
		Data:        views,
	}, nil
}

// GetRandom picks a quote uniformly at random over all quotes, including the
// viewer's own.  It returns nil, nil when there are no quotes.
func (e *QueryEngine) GetRandom(ctx context.Context, viewer *uint64) (*model.QuoteView, error) {
	return e.store.RandomQuoteView(ctx, viewer)
}

// Votes lists the individual votes cast on a quote.
func (e *QueryEngine) Votes(ctx context.Context, quoteID uint64) ([]model.Vote, error) {
	votes, err := e.store.VotesForQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = []model.Vote{}
	}
	return votes, nil
}
