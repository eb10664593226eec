package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/google/uuid"
)

type EventsRepo struct {
	mu    sync.RWMutex
	items map[string]event.Event
}

func NewEventsRepo() *EventsRepo {
	return &EventsRepo{
		items: make(map[string]event.Event),
	}
}

// Put seeds an event (admission never creates events itself).
func (r *EventsRepo) Put(e event.Event) event.Event {
	now := time.Now().UTC()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
		e.UpdatedAt = now
	}

	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()

	return e
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]

	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return e, nil
}
