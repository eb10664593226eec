package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/geocoder89/admithub/internal/ledger"
)

// DuplicateChecker is the slice of the attendee store the ledger needs for
// its email check.
type DuplicateChecker interface {
	HasActiveEmail(ctx context.Context, eventID, email string) (bool, error)
}

type slots struct {
	capacity int
	holds    map[string]struct{}
}

// Ledger is the in-memory capacity ledger. Per-event state lives behind one
// mutex; check-and-increment happens under it, which is the in-process
// equivalent of the conditional update the Postgres ledger issues.
type Ledger struct {
	mu     sync.Mutex
	events map[string]*slots
	dup    DuplicateChecker
}

func NewLedger(dup DuplicateChecker) *Ledger {
	return &Ledger{
		events: make(map[string]*slots),
		dup:    dup,
	}
}

// SetCapacity registers an event's slot budget, mirroring the event_slots
// row the event-management service maintains.
func (l *Ledger) SetCapacity(eventID string, capacity int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.events[eventID]
	if !ok {
		s = &slots{holds: make(map[string]struct{})}
		l.events[eventID] = s
	}
	s.capacity = capacity
}

func (l *Ledger) TryReserve(ctx context.Context, eventID, holdID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.events[eventID]
	if !ok {
		return event.ErrNotFound
	}

	if _, held := s.holds[holdID]; held {
		return nil
	}

	if len(s.holds) >= s.capacity {
		return ledger.ErrCapacityExceeded
	}

	s.holds[holdID] = struct{}{}
	return nil
}

func (l *Ledger) Release(ctx context.Context, eventID, holdID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.events[eventID]
	if !ok {
		return false, event.ErrNotFound
	}

	if _, held := s.holds[holdID]; !held {
		return false, nil
	}

	delete(s.holds, holdID)
	return true, nil
}

func (l *Ledger) IsDuplicate(ctx context.Context, eventID, email string) (bool, error) {
	if l.dup == nil {
		return false, nil
	}
	return l.dup.HasActiveEmail(ctx, eventID, email)
}

func (l *Ledger) ActiveCount(ctx context.Context, eventID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.events[eventID]
	if !ok {
		return 0, event.ErrNotFound
	}
	return len(s.holds), nil
}
