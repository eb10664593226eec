package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/admithub/internal/domain/attendee"
	"github.com/geocoder89/admithub/internal/utils"
)

type AttendeesRepo struct {
	mu    sync.RWMutex
	items map[string]attendee.Attendee
}

func NewAttendeesRepo() *AttendeesRepo {
	return &AttendeesRepo{
		items: make(map[string]attendee.Attendee),
	}
}

func (r *AttendeesRepo) Create(ctx context.Context, a attendee.Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// mirror of the partial unique index over (event_id, lower(email))
	for _, existing := range r.items {
		if existing.EventID == a.EventID &&
			existing.Status != attendee.StatusCancelled &&
			strings.EqualFold(existing.Email, a.Email) {
			return attendee.ErrAlreadyRegistered
		}
	}

	r.items[a.ID] = a
	return nil
}

func (r *AttendeesRepo) Update(ctx context.Context, a attendee.Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[a.ID]; !ok {
		return attendee.ErrNotFound
	}

	a.UpdatedAt = time.Now().UTC()
	r.items[a.ID] = a
	return nil
}

// UpdateIfActive mirrors the postgres conditional update: the write applies
// only while the stored row is not cancelled, so a concurrent cancellation
// cannot be overwritten by a stale snapshot.
func (r *AttendeesRepo) UpdateIfActive(ctx context.Context, a attendee.Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[a.ID]

	if !ok {
		return attendee.ErrNotFound
	}
	if current.Status == attendee.StatusCancelled {
		return attendee.ErrInvalidTransition
	}

	a.UpdatedAt = time.Now().UTC()
	r.items[a.ID] = a
	return nil
}

// ReclaimPending cancels the attendee only while it is still an unconfirmed
// paid reservation. A payment that settled in the meantime wins.
func (r *AttendeesRepo) ReclaimPending(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]

	if !ok {
		return false, nil
	}
	if a.Status != attendee.StatusRegistered || a.PaymentStatus != attendee.PaymentPending {
		return false, nil
	}

	if err := a.Transition(attendee.StatusCancelled); err != nil {
		return false, err
	}

	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a
	return true, nil
}

func (r *AttendeesRepo) GetByID(ctx context.Context, id string) (attendee.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]

	if !ok {
		return attendee.Attendee{}, attendee.ErrNotFound
	}
	return a, nil
}

func (r *AttendeesRepo) ListByEvent(ctx context.Context, eventID string) ([]attendee.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]attendee.Attendee, 0)

	for _, a := range r.items {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// ListByEventCursor mirrors the postgres keyset pagination over
// (created_at, id).
func (r *AttendeesRepo) ListByEventCursor(
	ctx context.Context,
	eventID string,
	limit int,
	afterCreatedAt time.Time,
	afterID string,
) ([]attendee.Attendee, *string, bool, error) {
	all, err := r.ListByEvent(ctx, eventID)

	if err != nil {
		return nil, nil, false, err
	}

	out := make([]attendee.Attendee, 0, limit)

	for _, a := range all {
		if a.CreatedAt.Before(afterCreatedAt) {
			continue
		}
		if a.CreatedAt.Equal(afterCreatedAt) && a.ID <= afterID {
			continue
		}
		out = append(out, a)
	}

	hasMore := false
	var nextCursor *string

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]

		cur, encErr := utils.EncodeAttendeeCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}

// CountActive is reporting only; the ledger owns the admission decision.
func (r *AttendeesRepo) CountActive(ctx context.Context, eventID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.items {
		if a.EventID == eventID && a.Status != attendee.StatusCancelled {
			n++
		}
	}
	return n, nil
}

// FindExpiredPending returns paid reservations that were never confirmed
// within the grace window. eventID narrows the scan; empty means all events.
func (r *AttendeesRepo) FindExpiredPending(ctx context.Context, eventID string, olderThan time.Time, limit int) ([]attendee.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]attendee.Attendee, 0)

	for _, a := range r.items {
		if eventID != "" && a.EventID != eventID {
			continue
		}
		if a.Status != attendee.StatusRegistered || a.PaymentStatus != attendee.PaymentPending {
			continue
		}
		if a.CreatedAt.Before(olderThan) {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// HasActiveEmail backs the ledger's duplicate check in tests.
func (r *AttendeesRepo) HasActiveEmail(ctx context.Context, eventID, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.items {
		if a.EventID == eventID &&
			a.Status != attendee.StatusCancelled &&
			strings.EqualFold(a.Email, email) {
			return true, nil
		}
	}
	return false, nil
}
