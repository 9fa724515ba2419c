package service

import (
	"context"
	"fmt"
)

// VoteLedger owns the toggle voting logic.  Aggregates are never cached; they
// are computed by the QueryEngine at read time, so casting a vote has no side
// effect beyond the vote row.
type VoteLedger struct {
	store Store
}

// NewVoteLedger returns a ledger backed by store.
func NewVoteLedger(store Store) *VoteLedger {
	return &VoteLedger{store: store}
}

// CastVote applies the toggle state machine for voterID on quoteID.
//
// The whole read-decide-write sequence runs in one transaction holding the
// quote row lock, so concurrent casts by the same voter serialise and leave at
// most one vote row behind.
func (l *VoteLedger) CastVote(ctx context.Context, quoteID, voterID uint64, dir Direction) (VoteOutcome, error) {
	if !dir.valid() {
		return 0, invalid("type", "Invalid vote type")
	}

	var outcome VoteOutcome
	err := l.store.WithinTx(ctx, func(tx Tx) error {
		q, err := tx.LockQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := AssertNotOwner(q.UserID, voterID); err != nil {
			return err
		}
		existing, err := tx.FindVote(ctx, quoteID, voterID)
		if err != nil {
			return err
		}

		o, ok := Transition(stateOf(existing), dir)
		if !ok {
			return fmt.Errorf("no vote transition for state %d direction %s", stateOf(existing), dir)
		}
		switch o {
		case OutcomeCreated:
			err = tx.InsertVote(ctx, quoteID, voterID, dir.Sign())
		case OutcomeRemoved:
			err = tx.DeleteVote(ctx, existing.ID)
		case OutcomeFlipped:
			err = tx.UpdateVoteType(ctx, existing.ID, dir.Sign())
		}
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}
