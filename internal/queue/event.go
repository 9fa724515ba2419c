// Package queue carries domain events to RabbitMQ and back out into the
// activity log.
package queue

import "time"

// QueueName is the durable queue every event is routed to.
const QueueName = "quote.events"

// Event types.
const (
	TypeQuoteCreated = "quote.created"
	TypeQuoteUpdated = "quote.updated"
	TypeQuoteDeleted = "quote.deleted"
	TypeVoteCast     = "vote.cast"
)

// Event is published after a successful write.  Consumers must not rely on
// it for correctness: publishing is best effort.
type Event struct {
	Type       string    `json:"type"`
	QuoteID    uint64    `json:"quote_id"`
	ActorID    uint64    `json:"actor_id"`
	Direction  string    `json:"direction,omitempty"` // vote.cast only
	Outcome    string    `json:"outcome,omitempty"`   // vote.cast only
	OccurredAt time.Time `json:"occurred_at"`
}
