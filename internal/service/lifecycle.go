package service

import (
	"context"

	"github.com/iliyamo/quote-board/internal/model"
)

// QuoteManager creates, edits and deletes quotes.  A quote moves from
// non-existent to active on Create and to deleted on Delete; deleted quotes
// are gone for good and every later operation on the id reports ErrNotFound.
type QuoteManager struct {
	store Store
}

// NewQuoteManager returns a manager backed by store.
func NewQuoteManager(store Store) *QuoteManager {
	return &QuoteManager{store: store}
}

// Create validates content and stores a new quote authored by authorID.
func (m *QuoteManager) Create(ctx context.Context, authorID uint64, content string) (*model.Quote, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return nil, err
	}
	return m.store.InsertQuote(ctx, authorID, content)
}

// Edit replaces the content of an active quote owned by actingUserID.  Votes
// are left untouched.
func (m *QuoteManager) Edit(ctx context.Context, quoteID, actingUserID uint64, content string) (*model.Quote, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return nil, err
	}
	var out *model.Quote
	err = m.store.WithinTx(ctx, func(tx Tx) error {
		q, err := tx.LockQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := AssertOwner(q.UserID, actingUserID); err != nil {
			return err
		}
		out, err = tx.UpdateQuoteContent(ctx, quoteID, content)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an active quote owned by actingUserID and all of its votes in
// one transaction.
func (m *QuoteManager) Delete(ctx context.Context, quoteID, actingUserID uint64) error {
	return m.store.WithinTx(ctx, func(tx Tx) error {
		q, err := tx.LockQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := AssertOwner(q.UserID, actingUserID); err != nil {
			return err
		}
		return tx.DeleteQuote(ctx, quoteID)
	})
}
