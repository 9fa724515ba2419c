package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/quote-board/internal/model"
	"github.com/iliyamo/quote-board/internal/service"
)

// VotesForQuote returns the votes cast on quoteID ordered by id.
func (r *QuoteRepo) VotesForQuote(ctx context.Context, quoteID uint64) ([]model.Vote, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM quotes WHERE id=?", quoteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id,quote_id,user_id,type,created_at,updated_at FROM votes WHERE quote_id=? ORDER BY id",
		quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Vote
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.ID, &v.QuoteID, &v.UserID, &v.Type, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
