package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/quote-board/internal/model"
	"github.com/iliyamo/quote-board/internal/service"
)

// QuoteRepo is the MySQL implementation of service.Store.  Vote aggregates
// are never stored; every read computes them from the votes table in the
// same statement that loads the quote.
type QuoteRepo struct{ db *sql.DB }

func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{db: db} }

var _ service.Store = (*QuoteRepo)(nil)

// viewSelect loads quotes with author and aggregates.  The single
// placeholder is the viewer id; NULL yields a NULL viewer vote.
const viewSelect = `
SELECT q.id, q.user_id, q.content, q.created_at, q.updated_at,
       u.id, u.first_name, u.last_name,
       COALESCE(SUM(v.type = 1), 0)  AS upvotes,
       COALESCE(SUM(v.type = -1), 0) AS downvotes,
       SUM(v.type)                   AS score,
       MAX(CASE WHEN v.user_id = ? THEN v.type END) AS viewer_vote
  FROM quotes q
  JOIN users u ON u.id = q.user_id
  LEFT JOIN votes v ON v.quote_id = q.id`

const viewGroup = `
 GROUP BY q.id, q.user_id, q.content, q.created_at, q.updated_at, u.id, u.first_name, u.last_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(rs rowScanner, viewer *uint64) (model.QuoteView, error) {
	var (
		v          model.QuoteView
		score      sql.NullInt64
		viewerVote sql.NullInt64
	)
	err := rs.Scan(&v.ID, &v.UserID, &v.Content, &v.CreatedAt, &v.UpdatedAt,
		&v.Author.ID, &v.Author.FirstName, &v.Author.LastName,
		&v.Upvotes, &v.Downvotes, &score, &viewerVote)
	if err != nil {
		return v, err
	}
	v.Score = int(score.Int64)
	v.Viewed = viewer != nil
	if viewer != nil && viewerVote.Valid {
		t := int(viewerVote.Int64)
		v.ViewerVote = &t
	}
	return v, nil
}

func viewerArg(viewer *uint64) any {
	if viewer == nil {
		return nil
	}
	return *viewer
}

// QuoteView loads one quote with its aggregates.
func (r *QuoteRepo) QuoteView(ctx context.Context, id uint64, viewer *uint64) (*model.QuoteView, error) {
	row := r.db.QueryRowContext(ctx, viewSelect+" WHERE q.id = ?"+viewGroup, viewerArg(viewer), id)
	v, err := scanView(row, viewer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListQuoteViews returns quotes ordered by net score.  Quotes without votes
// have a NULL sum and sort after every voted quote, including negative ones.
func (r *QuoteRepo) ListQuoteViews(ctx context.Context, offset, limit int, viewer *uint64) ([]model.QuoteView, error) {
	rows, err := r.db.QueryContext(ctx,
		viewSelect+viewGroup+`
 ORDER BY SUM(v.type) IS NULL, SUM(v.type) DESC, q.id ASC
 LIMIT ? OFFSET ?`,
		viewerArg(viewer), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuoteView
	for rows.Next() {
		v, err := scanView(rows, viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RandomQuoteView picks a random quote id and loads its view.  A quote
// deleted between the two statements triggers another pick.
func (r *QuoteRepo) RandomQuoteView(ctx context.Context, viewer *uint64) (*model.QuoteView, error) {
	for attempt := 0; attempt < 3; attempt++ {
		var id uint64
		err := r.db.QueryRowContext(ctx, "SELECT id FROM quotes ORDER BY RAND() LIMIT 1").Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := r.QuoteView(ctx, id, viewer)
		if errors.Is(err, service.ErrNotFound) {
			continue
		}
		return v, err
	}
	return nil, nil
}

// InsertQuote stores a new quote and reads it back for the timestamps.
func (r *QuoteRepo) InsertQuote(ctx context.Context, authorID uint64, content string) (*model.Quote, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO quotes (user_id, content) VALUES (?,?)", authorID, content)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return scanQuote(r.db.QueryRowContext(ctx, quoteSelect+" WHERE id=?", id))
}

// WithinTx runs fn in a transaction, committing when it returns nil.
func (r *QuoteRepo) WithinTx(ctx context.Context, fn func(tx service.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit: %w", cerr)
		}
	}()
	return fn(&quoteTx{tx: tx})
}

const quoteSelect = "SELECT id,user_id,content,created_at,updated_at FROM quotes"

func scanQuote(row *sql.Row) (*model.Quote, error) {
	var q model.Quote
	err := row.Scan(&q.ID, &q.UserID, &q.Content, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// quoteTx serialises writers on one quote through the row lock taken by
// LockQuote.  The UNIQUE(quote_id, user_id) index is the backstop.
type quoteTx struct{ tx *sql.Tx }

func (t *quoteTx) LockQuote(ctx context.Context, id uint64) (*model.Quote, error) {
	return scanQuote(t.tx.QueryRowContext(ctx, quoteSelect+" WHERE id=? FOR UPDATE", id))
}

func (t *quoteTx) FindVote(ctx context.Context, quoteID, voterID uint64) (*model.Vote, error) {
	var v model.Vote
	err := t.tx.QueryRowContext(ctx,
		"SELECT id,quote_id,user_id,type,created_at,updated_at FROM votes WHERE quote_id=? AND user_id=? LIMIT 1 FOR UPDATE",
		quoteID, voterID).Scan(&v.ID, &v.QuoteID, &v.UserID, &v.Type, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *quoteTx) InsertVote(ctx context.Context, quoteID, voterID uint64, sign int) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO votes (quote_id, user_id, type) VALUES (?,?,?)", quoteID, voterID, sign)
	return err
}

func (t *quoteTx) UpdateVoteType(ctx context.Context, voteID uint64, sign int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE votes SET type=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", sign, voteID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (t *quoteTx) DeleteVote(ctx context.Context, voteID uint64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM votes WHERE id=?", voteID)
	return err
}

func (t *quoteTx) UpdateQuoteContent(ctx context.Context, id uint64, content string) (*model.Quote, error) {
	if _, err := t.tx.ExecContext(ctx,
		"UPDATE quotes SET content=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", content, id); err != nil {
		return nil, err
	}
	return scanQuote(t.tx.QueryRowContext(ctx, quoteSelect+" WHERE id=?", id))
}

// DeleteQuote removes the votes explicitly before the quote so the outcome
// does not depend on the foreign key action.
func (t *quoteTx) DeleteQuote(ctx context.Context, id uint64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM votes WHERE quote_id=?", id); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM quotes WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}
