// Package service holds the core of the quote board: the vote ledger, the
// ranking and query engine, the authorization guard and the quote lifecycle
// manager.  Handlers translate the errors declared here into HTTP responses;
// nothing in this package writes to the wire.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy shared by every core operation.  Persistence implementations
// of Store return ErrNotFound for missing rows so callers can rely on
// errors.Is throughout.
var (
	// ErrInvalidArgument covers malformed or missing input.  Concrete
	// failures are reported as *ValidationError which unwraps to it.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a quote or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the acting user is not allowed to mutate
	// the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrSelfVote is the Forbidden case of a user voting on their own quote.
	ErrSelfVote = fmt.Errorf("%w: cannot vote for own quote", ErrForbidden)

	// ErrUnauthenticated is returned when an operation needs a user and the
	// request carries none.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError carries field-level detail for an invalid request.  Keys
// are the JSON field names, values the human readable messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Unwrap makes every ValidationError match ErrInvalidArgument.
func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// Add appends a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func invalid(field, msg string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}
