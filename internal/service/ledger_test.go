package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/quote-board/internal/model"
	"github.com/iliyamo/quote-board/internal/service"
	"github.com/iliyamo/quote-board/internal/service/servicetest"
)

type fixture struct {
	store   *servicetest.Store
	ledger  *service.VoteLedger
	engine  *service.QueryEngine
	manager *service.QuoteManager
	author  model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := servicetest.NewStore()
	return &fixture{
		store:   st,
		ledger:  service.NewVoteLedger(st),
		engine:  service.NewQueryEngine(st),
		manager: service.NewQuoteManager(st),
		author:  st.AddUser("Ada", "Lovelace", "ada@example.com"),
	}
}

func (f *fixture) quote(t *testing.T, content string) *model.Quote {
	t.Helper()
	q, err := f.manager.Create(context.Background(), f.author.ID, content)
	require.NoError(t, err)
	return q
}

func (f *fixture) view(t *testing.T, id uint64) *model.QuoteView {
	t.Helper()
	v, err := f.engine.GetByID(context.Background(), id, nil)
	require.NoError(t, err)
	return v
}

func TestCastVoteToggleRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, "Simplicity is prerequisite for reliability.")
	voter := f.store.AddUser("Edsger", "Dijkstra", "ewd@example.com")

	out, err := f.ledger.CastVote(ctx, q.ID, voter.ID, service.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCreated, out)
	assert.Equal(t, 1, f.view(t, q.ID).Score)

	out, err = f.ledger.CastVote(ctx, q.ID, voter.ID, service.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeRemoved, out)

	v := f.view(t, q.ID)
	assert.Equal(t, 0, v.Score)
	assert.Equal(t, 0, v.Upvotes)
	assert.Equal(t, 0, v.Downvotes)
	assert.Empty(t, f.store.Votes(q.ID))
}

func TestCastVoteFlipMovesScoreByTwo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, "Premature optimization is the root of all evil.")
	voter := f.store.AddUser("Donald", "Knuth", "knuth@example.com")

	_, err := f.ledger.CastVote(ctx, q.ID, voter.ID, service.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, -1, f.view(t, q.ID).Score)

	for i, dir := range []service.Direction{service.DirectionUp, service.DirectionDown, service.DirectionUp} {
		before := f.view(t, q.ID).Score
		out, err := f.ledger.CastVote(ctx, q.ID, voter.ID, dir)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeFlipped, out, "call %d", i)
		after := f.view(t, q.ID).Score
		assert.Equal(t, 2, abs(after-before), "call %d", i)
		assert.Equal(t, 1, f.store.VoteRows(q.ID, voter.ID))
	}
}

func TestCastVoteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.quote(t, "Talk is cheap. Show me the code.")
	a := f.store.AddUser("A", "A", "a@example.com")
	b := f.store.AddUser("B", "B", "b@example.com")
	c := f.store.AddUser("C", "C", "c@example.com")

	for _, cast := range []struct {
		voter uint64
		dir   service.Direction
	}{{a.ID, service.DirectionUp}, {b.ID, service.DirectionUp}, {c.ID, service.DirectionDown}} {
		_, err := f.ledger.CastVote(ctx, q.ID, cast.voter, cast.dir)
		require.NoError(t, err)
	}

	v := f.view(t, q.ID)
	assert.Equal(t, 2, v.Upvotes)
	assert.Equal(t, 1, v.Downvotes)
	assert.Equal(t, 1, v.Score)

	out, err := f.ledger.CastVote(ctx, q.ID, c.ID, service.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeRemoved, out)

	v = f.view(t, q.ID)
	assert.Equal(t, 2, v.Upvotes)
	assert.Equal(t, 0, v.Downvotes)
	assert.Equal(t, 2, v.Score)
}

func TestCastVoteRejectsSelfVote(t *testing.T) {
	f := newFixture(t)
	q := f.quote(t, "My own words.")

	_, err := f.ledger.CastVote(context.Background(), q.ID, f.author.ID, service.DirectionUp)
	assert.ErrorIs(t, err, service.ErrSelfVote)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Empty(t, f.store.Votes(q.ID))
}

func TestCastVoteUnknownQuote(t *testing.T) {
	f := newFixture(t)
	voter := f.store.AddUser("V", "V", "v@example.com")

	_, err := f.ledger.CastVote(context.Background(), 404, voter.ID, service.DirectionUp)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCastVoteInvalidDirection(t *testing.T) {
	f := newFixture(t)
	q := f.quote(t, "Anything.")
	voter := f.store.AddUser("V", "V", "v@example.com")

	_, err := f.ledger.CastVote(context.Background(), q.ID, voter.ID, service.Direction(42))
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
	assert.Empty(t, f.store.Votes(q.ID))
}

func TestCastVoteConcurrentTogglesKeepOneRow(t *testing.T) {
	f := newFixture(t)
	q := f.quote(t, "Concurrency is not parallelism.")
	voter := f.store.AddUser("Rob", "Pike", "rob@example.com")

	const workers = 32
	var wg sync.WaitGroup
	counts := make([]service.VoteOutcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := service.DirectionUp
			if i%3 == 0 {
				dir = service.DirectionDown
			}
			out, err := f.ledger.CastVote(context.Background(), q.ID, voter.ID, dir)
			assert.NoError(t, err)
			counts[i] = out
		}(i)
	}
	wg.Wait()

	rows := f.store.VoteRows(q.ID, voter.ID)
	assert.LessOrEqual(t, rows, 1)
	for _, o := range counts {
		assert.Contains(t, []service.VoteOutcome{service.OutcomeCreated, service.OutcomeRemoved, service.OutcomeFlipped}, o)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
