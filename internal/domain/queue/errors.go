package queue

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("queue entry not found")
	ErrInvalidTransition = errors.New("invalid queue status transition")
	ErrInvalidEntry      = errors.New("invalid queue entry")
)

// TransitionError describes a rejected status change. It matches
// ErrInvalidTransition under errors.Is.
type TransitionError struct {
	ID   int
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("queue entry %d: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
