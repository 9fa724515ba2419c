package service

import "github.com/iliyamo/quote-board/internal/model"

// Direction is the direction a voter asks for.
type Direction int

const (
	DirectionUp Direction = iota + 1
	DirectionDown
)

// ParseDirection accepts exactly the route segments "upvote" and "downvote".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "upvote":
		return DirectionUp, nil
	case "downvote":
		return DirectionDown, nil
	}
	return 0, invalid("type", "Invalid vote type")
}

// Sign is the value persisted in votes.type.
func (d Direction) Sign() int {
	if d == DirectionDown {
		return model.VoteDown
	}
	return model.VoteUp
}

func (d Direction) valid() bool { return d == DirectionUp || d == DirectionDown }

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "upvote"
	case DirectionDown:
		return "downvote"
	}
	return "invalid"
}

// VoteState is one voter's relationship to one quote.
type VoteState int

const (
	StateAbsent VoteState = iota
	StateUp
	StateDown
)

func stateOf(v *model.Vote) VoteState {
	switch {
	case v == nil:
		return StateAbsent
	case v.Type == model.VoteDown:
		return StateDown
	default:
		return StateUp
	}
}

// VoteOutcome reports which transition a cast vote took.
type VoteOutcome int

const (
	OutcomeCreated VoteOutcome = iota + 1
	OutcomeRemoved
	OutcomeFlipped
)

func (o VoteOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRemoved:
		return "removed"
	case OutcomeFlipped:
		return "flipped"
	}
	return "unknown"
}

// transitions is the complete toggle table: every (state, direction) pair maps
// to exactly one outcome.
var transitions = map[VoteState]map[Direction]VoteOutcome{
	StateAbsent: {DirectionUp: OutcomeCreated, DirectionDown: OutcomeCreated},
	StateUp:     {DirectionUp: OutcomeRemoved, DirectionDown: OutcomeFlipped},
	StateDown:   {DirectionUp: OutcomeFlipped, DirectionDown: OutcomeRemoved},
}

// Transition looks up the outcome of casting d from state s.
func Transition(s VoteState, d Direction) (VoteOutcome, bool) {
	o, ok := transitions[s][d]
	return o, ok
}
