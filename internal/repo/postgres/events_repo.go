package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/geocoder89/admithub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventsRepo is read-only: events are owned by the event-management service.
type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (repo *EventsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *EventsRepo) GetByID(ctx context.Context, id string) (found event.Event, err error) {
	err = repo.observe("events.get_by_id", func() error {
		return repo.pool.QueryRow(ctx, `
		SELECT id, title, start_at, end_at, capacity, is_paid, price, is_private,
		       COALESCE(owner_id::text, ''), created_at, updated_at
		FROM events
		WHERE id = $1
	`, id).Scan(
			&found.ID, &found.Title, &found.StartAt, &found.EndAt, &found.Capacity,
			&found.IsPaid, &found.Price, &found.IsPrivate, &found.OwnerID,
			&found.CreatedAt, &found.UpdatedAt,
		)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = event.ErrNotFound
	}
	return
}
