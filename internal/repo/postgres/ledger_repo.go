package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/geocoder89/admithub/internal/ledger"
	"github.com/geocoder89/admithub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepo is the Postgres capacity ledger. The admission decision is a
// single conditional UPDATE on the event's slot row: "active < capacity" and
// the increment happen in one statement, so concurrent registrations for the
// last slot cannot both pass. Holds carry the attendee id, which is what
// makes Release idempotent.
type LedgerRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewLedgerRepo(pool *pgxpool.Pool, prom *observability.Prom) *LedgerRepo {
	return &LedgerRepo{pool: pool, prom: prom}
}

func (repo *LedgerRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *LedgerRepo) TryReserve(ctx context.Context, eventID, holdID string) (err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	err = repo.observe("ledger.try_reserve.increment", func() error {
		tag, execErr := tx.Exec(ctx, `
		UPDATE event_slots
		SET active = active + 1, updated_at = NOW()
		WHERE event_id = $1 AND active < capacity
	`, eventID)

		if execErr != nil {
			return execErr
		}

		if tag.RowsAffected() == 0 {
			// full, or the slot row doesn't exist at all
			var dummy int
			scanErr := tx.QueryRow(ctx, `SELECT 1 FROM event_slots WHERE event_id = $1`, eventID).Scan(&dummy)

			if errors.Is(scanErr, pgx.ErrNoRows) {
				return event.ErrNotFound
			}
			if scanErr != nil {
				return scanErr
			}
			return ledger.ErrCapacityExceeded
		}

		return nil
	})

	if err != nil {
		return
	}

	err = repo.observe("ledger.try_reserve.hold", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO slot_holds (id, event_id, created_at)
		VALUES ($1, $2, NOW())
	`, holdID, eventID)
		return e
	})

	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (repo *LedgerRepo) Release(ctx context.Context, eventID, holdID string) (released bool, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	err = repo.observe("ledger.release", func() error {
		tag, execErr := tx.Exec(ctx, `DELETE FROM slot_holds WHERE id = $1 AND event_id = $2`, holdID, eventID)

		if execErr != nil {
			return execErr
		}

		if tag.RowsAffected() == 0 {
			// already released: nothing to decrement
			return nil
		}

		released = true

		_, execErr = tx.Exec(ctx, `
		UPDATE event_slots
		SET active = GREATEST(active - 1, 0), updated_at = NOW()
		WHERE event_id = $1
	`, eventID)
		return execErr
	})

	if err != nil {
		released = false
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		released = false
	}
	return
}

func (repo *LedgerRepo) IsDuplicate(ctx context.Context, eventID, email string) (bool, error) {
	var exists bool

	err := repo.observe("ledger.is_duplicate", func() error {
		return repo.pool.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM attendees
			WHERE event_id = $1 AND lower(email) = lower($2) AND status <> 'cancelled'
		)`, eventID, email).Scan(&exists)
	})

	return exists, err
}

func (repo *LedgerRepo) ActiveCount(ctx context.Context, eventID string) (int, error) {
	var active int

	err := repo.observe("ledger.active_count", func() error {
		return repo.pool.QueryRow(ctx, `SELECT active FROM event_slots WHERE event_id = $1`, eventID).Scan(&active)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, event.ErrNotFound
	}

	return active, err
}
