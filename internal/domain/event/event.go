package event

import (
	"errors"
	"time"
)

// Event is owned by the event-management service; admission only reads it.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
	Capacity  int       `json:"capacity"`
	IsPaid    bool      `json:"isPaid"`
	Price     float64   `json:"price"`
	IsPrivate bool      `json:"isPrivate"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("event not found")

// registration and cancellation both close once the event has begun
var ErrAlreadyStarted = errors.New("event has already started")

// HasStarted reports whether admission is closed at the given instant.
func (e Event) HasStarted(now time.Time) bool {
	return !e.StartAt.After(now)
}
