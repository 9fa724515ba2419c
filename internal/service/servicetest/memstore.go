// Package servicetest provides an in-memory service.Store for tests.  It
// behaves like the MySQL store: transactions are serialised and roll back
// completely when the callback fails.
package servicetest

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/quote-board/internal/model"
	"github.com/iliyamo/quote-board/internal/service"
)

type state struct {
	users     map[uint64]model.User
	quotes    map[uint64]model.Quote
	votes     map[uint64]model.Vote
	nextQuote uint64
	nextVote  uint64
	nextUser  uint64
}

func (s *state) clone() *state {
	c := &state{
		users:     make(map[uint64]model.User, len(s.users)),
		quotes:    make(map[uint64]model.Quote, len(s.quotes)),
		votes:     make(map[uint64]model.Vote, len(s.votes)),
		nextQuote: s.nextQuote,
		nextVote:  s.nextVote,
		nextUser:  s.nextUser,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.quotes {
		c.quotes[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	return c
}

// Store is an in-memory service.Store.
type Store struct {
	mu  sync.Mutex
	cur *state
	now func() time.Time
}

var _ service.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		cur: &state{
			users:  map[uint64]model.User{},
			quotes: map[uint64]model.Quote{},
			votes:  map[uint64]model.Vote{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// AddUser registers a user and returns it with its id set.
func (s *Store) AddUser(first, last, email string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.nextUser++
	u := model.User{ID: s.cur.nextUser, FirstName: first, LastName: last, Email: email, CreatedAt: s.now()}
	s.cur.users[u.ID] = u
	return u
}

// Quote returns the stored quote and whether it exists.
func (s *Store) Quote(id uint64) (model.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.cur.quotes[id]
	return q, ok
}

// Votes returns the vote rows of a quote ordered by id.
func (s *Store) Votes(quoteID uint64) []model.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return votesFor(s.cur, quoteID)
}

// VoteRows counts the vote rows a voter has on a quote.
func (s *Store) VoteRows(quoteID, voterID uint64) int {
	n := 0
	for _, v := range s.Votes(quoteID) {
		if v.UserID == voterID {
			n++
		}
	}
	return n
}

// InsertQuote implements service.Store.
func (s *Store) InsertQuote(_ context.Context, authorID uint64, content string) (*model.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.nextQuote++
	now := s.now()
	q := model.Quote{ID: s.cur.nextQuote, UserID: authorID, Content: content, CreatedAt: now, UpdatedAt: now}
	s.cur.quotes[q.ID] = q
	return &q, nil
}

// WithinTx implements service.Store.  The callback works on a copy that
// replaces the live state only when it returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.cur.clone()
	if err := fn(&tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.cur = work
	return nil
}

// QuoteView implements service.QueryStore.
func (s *Store) QuoteView(_ context.Context, id uint64, viewer *uint64) (*model.QuoteView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.cur.quotes[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	v := view(s.cur, q, viewer)
	return &v, nil
}

// ListQuoteViews implements service.QueryStore.
func (s *Store) ListQuoteViews(_ context.Context, offset, limit int, viewer *uint64) ([]model.QuoteView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type ranked struct {
		key  service.RankKey
		view model.QuoteView
	}
	all := make([]ranked, 0, len(s.cur.quotes))
	for _, q := range s.cur.quotes {
		v := view(s.cur, q, viewer)
		has := len(votesFor(s.cur, q.ID)) > 0
		all = append(all, ranked{key: service.RankKey{HasVotes: has, Score: v.Score, ID: q.ID}, view: v})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].key.Less(all[j].key) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]model.QuoteView, 0, end-offset)
	for _, r := range all[offset:end] {
		out = append(out, r.view)
	}
	return out, nil
}

// RandomQuoteView implements service.QueryStore.
func (s *Store) RandomQuoteView(_ context.Context, viewer *uint64) (*model.QuoteView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cur.quotes) == 0 {
		return nil, nil
	}
	ids := make([]uint64, 0, len(s.cur.quotes))
	for id := range s.cur.quotes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	v := view(s.cur, s.cur.quotes[ids[rand.Intn(len(ids))]], viewer)
	return &v, nil
}

// VotesForQuote implements service.QueryStore.
func (s *Store) VotesForQuote(_ context.Context, quoteID uint64) ([]model.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cur.quotes[quoteID]; !ok {
		return nil, service.ErrNotFound
	}
	return votesFor(s.cur, quoteID), nil
}

func votesFor(st *state, quoteID uint64) []model.Vote {
	var out []model.Vote
	for _, v := range st.votes {
		if v.QuoteID == quoteID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func view(st *state, q model.Quote, viewer *uint64) model.QuoteView {
	u := st.users[q.UserID]
	v := model.QuoteView{
		Quote:  q,
		Author: model.Author{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName},
		Viewed: viewer != nil,
	}
	for _, vote := range votesFor(st, q.ID) {
		switch vote.Type {
		case model.VoteUp:
			v.Upvotes++
		case model.VoteDown:
			v.Downvotes++
		}
		v.Score += vote.Type
		if viewer != nil && vote.UserID == *viewer {
			t := vote.Type
			v.ViewerVote = &t
		}
	}
	return v
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) LockQuote(_ context.Context, id uint64) (*model.Quote, error) {
	q, ok := t.st.quotes[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &q, nil
}

func (t *tx) FindVote(_ context.Context, quoteID, voterID uint64) (*model.Vote, error) {
	for _, v := range t.st.votes {
		if v.QuoteID == quoteID && v.UserID == voterID {
			return &v, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertVote(_ context.Context, quoteID, voterID uint64, sign int) error {
	t.st.nextVote++
	now := t.now()
	t.st.votes[t.st.nextVote] = model.Vote{
		ID: t.st.nextVote, QuoteID: quoteID, UserID: voterID, Type: sign, CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (t *tx) UpdateVoteType(_ context.Context, voteID uint64, sign int) error {
	v, ok := t.st.votes[voteID]
	if !ok {
		return service.ErrNotFound
	}
	v.Type = sign
	v.UpdatedAt = t.now()
	t.st.votes[voteID] = v
	return nil
}

func (t *tx) DeleteVote(_ context.Context, voteID uint64) error {
	delete(t.st.votes, voteID)
	return nil
}

func (t *tx) UpdateQuoteContent(_ context.Context, id uint64, content string) (*model.Quote, error) {
	q, ok := t.st.quotes[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	q.Content = content
	q.UpdatedAt = t.now()
	t.st.quotes[id] = q
	return &q, nil
}

func (t *tx) DeleteQuote(_ context.Context, id uint64) error {
	for vid, v := range t.st.votes {
		if v.QuoteID == id {
			delete(t.st.votes, vid)
		}
	}
	delete(t.st.quotes, id)
	return nil
}
