package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queue entry.
//
//	waiting → in_progress → completed
//	waiting → cancelled
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var allowedTransitions = map[Status][]Status{
	StatusWaiting:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether the forward-only state machine permits
// moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Priority is a visual flag used for highlighting, never for preemption.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityElderly  Priority = "elderly"
	PriorityChild    Priority = "child"
	PriorityPrenatal Priority = "prenatal"
)

// Filter selects a subset of the queue for display.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterWaiting      Filter = "waiting"
	FilterInProgress   Filter = "in_progress"
	FilterCompleted    Filter = "completed"
	FilterPriorityOnly Filter = "priority"
)

// ParseFilter maps a query-string value to a Filter. The empty string means
// FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterWaiting, FilterInProgress, FilterCompleted, FilterPriorityOnly:
		return f, nil
	}
	return "", fmt.Errorf("invalid filter: %s", s)
}

// Entry is one patient's pending or active service request.
type Entry struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Age             int        `json:"age"`
	Purpose         string     `json:"purpose"`
	Status          Status     `json:"status"`
	WaitTimeMinutes int        `json:"wait_time_minutes"`
	Priority        Priority   `json:"priority"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	JoinedAt        time.Time  `json:"joined_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

func (e *Entry) matches(f Filter, term string) bool {
	switch f {
	case FilterWaiting:
		if e.Status != StatusWaiting {
			return false
		}
	case FilterInProgress:
		if e.Status != StatusInProgress {
			return false
		}
	case FilterCompleted:
		if e.Status != StatusCompleted {
			return false
		}
	case FilterPriorityOnly:
		if e.Priority == PriorityNormal {
			return false
		}
	}
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), term) ||
		strings.Contains(strings.ToLower(e.Purpose), term)
}

// NewEntry holds the attributes supplied when a patient joins the queue.
// WaitTimeMinutes backdates the join time for walk-ins recorded late.
// Age is a pointer so that a missing age is rejected rather than read as 0,
// which would classify an adult as a child.
type NewEntry struct {
	Name            string     `json:"name"`
	Age             *int       `json:"age,omitempty"`
	Purpose         string     `json:"purpose"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	WaitTimeMinutes int        `json:"wait_time_minutes,omitempty"`
}

func (n NewEntry) validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if n.Age == nil {
		return fmt.Errorf("%w: age is required", ErrInvalidEntry)
	}
	if *n.Age < 0 {
		return fmt.Errorf("%w: age must not be negative", ErrInvalidEntry)
	}
	if n.WaitTimeMinutes < 0 {
		return fmt.Errorf("%w: wait_time_minutes must not be negative", ErrInvalidEntry)
	}
	return nil
}

// Counts summarises the unfiltered queue.
type Counts struct {
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}
