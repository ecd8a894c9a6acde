package queue

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store holds the day's queue in insertion order. All mutations are
// serialised; readers receive copies so callers never alias stored entries.
type Store struct {
	mu         sync.RWMutex
	entries    []*Entry
	index      map[int]*Entry
	nextID     int
	classifier Classifier
	now        func() time.Time
}

func NewStore(classifier Classifier) *Store {
	return &Store{
		index:      make(map[int]*Entry),
		nextID:     1,
		classifier: classifier,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Add appends a new waiting entry. Priority is computed here and never
// recomputed.
func (s *Store) Add(ne NewEntry) (Entry, error) {
	if err := ne.validate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	e := &Entry{
		ID:        s.nextID,
		Name:      strings.TrimSpace(ne.Name),
		Age:       *ne.Age,
		Purpose:   strings.TrimSpace(ne.Purpose),
		Status:    StatusWaiting,
		Priority:  s.classifier.Classify(*ne.Age, ne.Purpose),
		PatientID: ne.PatientID,
		JoinedAt:  now.Add(-time.Duration(ne.WaitTimeMinutes) * time.Minute),
	}
	s.nextID++
	s.entries = append(s.entries, e)
	s.index[e.ID] = e
	return s.snapshot(e, now), nil
}

func (s *Store) Get(id int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.index[id]
	if !ok {
		return Entry{}, fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
	}
	return s.snapshot(e, s.now().UTC()), nil
}

// List returns entries matching filter whose name or purpose contains
// searchTerm, case-insensitively, in insertion order.
func (s *Store) List(filter Filter, searchTerm string) []Entry {
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.matches(filter, term) {
			out = append(out, s.snapshot(e, now))
		}
	}
	return out
}

// Counts tallies the unfiltered queue by status.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	for _, e := range s.entries {
		switch e.Status {
		case StatusWaiting:
			c.Waiting++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		case StatusCancelled:
			c.Cancelled++
		}
	}
	return c
}

// NowServing returns every in-progress entry. More than one room may be
// serving at a time.
func (s *Store) NowServing() []Entry {
	return s.List(FilterInProgress, "")
}

func (s *Store) StartService(id int) (Entry, error) {
	return s.transition(id, StatusInProgress)
}

func (s *Store) CompleteService(id int) (Entry, error) {
	return s.transition(id, StatusCompleted)
}

// Cancel removes a waiting entry from service (no-show or walk-out).
func (s *Store) Cancel(id int) (Entry, error) {
	return s.transition(id, StatusCancelled)
}

func (s *Store) transition(id int, to Status) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[id]
	if !ok {
		return Entry{}, fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
	}
	if !e.Status.CanTransitionTo(to) {
		return Entry{}, &TransitionError{ID: id, From: e.Status, To: to}
	}

	now := s.now().UTC()
	if e.Status == StatusWaiting {
		e.WaitTimeMinutes = waitedMinutes(e.JoinedAt, now)
	}
	e.Status = to
	switch to {
	case StatusInProgress:
		e.StartedAt = &now
	case StatusCompleted:
		e.CompletedAt = &now
	case StatusCancelled:
		e.CancelledAt = &now
	}
	return s.snapshot(e, now), nil
}

// snapshot deep-copies e, refreshing the wait time while it is still
// waiting. Callers must hold s.mu.
func (s *Store) snapshot(e *Entry, now time.Time) Entry {
	out := *e
	out.StartedAt = copyTime(e.StartedAt)
	out.CompletedAt = copyTime(e.CompletedAt)
	out.CancelledAt = copyTime(e.CancelledAt)
	if e.PatientID != nil {
		id := *e.PatientID
		out.PatientID = &id
	}
	if out.Status == StatusWaiting {
		out.WaitTimeMinutes = waitedMinutes(e.JoinedAt, now)
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func waitedMinutes(joined, now time.Time) int {
	d := now.Sub(joined)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
