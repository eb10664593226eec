package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/admithub/internal/domain/attendee"
	"github.com/geocoder89/admithub/internal/observability"
	"github.com/geocoder89/admithub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const attendeeColumns = `id, event_id, name, email, phone, additional_info,
	status, payment_status, COALESCE(payment_intent_id, ''), created_at, updated_at`

type AttendeesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAttendeesRepo(pool *pgxpool.Pool, prom *observability.Prom) *AttendeesRepo {
	return &AttendeesRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *AttendeesRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanAttendee(row pgx.Row) (attendee.Attendee, error) {
	var a attendee.Attendee

	err := row.Scan(
		&a.ID, &a.EventID, &a.Name, &a.Email, &a.Phone, &a.AdditionalInfo,
		&a.Status, &a.PaymentStatus, &a.PaymentIntentID, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (repo *AttendeesRepo) Create(ctx context.Context, a attendee.Attendee) (err error) {
	err = repo.observe("attendees.create", func() error {
		_, e := repo.pool.Exec(ctx, `
		INSERT INTO attendees (id, event_id, name, email, phone, additional_info,
			status, payment_status, payment_intent_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11)
	`, a.ID, a.EventID, a.Name, a.Email, a.Phone, a.AdditionalInfo,
			string(a.Status), string(a.PaymentStatus), a.PaymentIntentID, a.CreatedAt, a.UpdatedAt)
		return e
	})

	if err != nil {
		// the partial unique index is the authority on duplicates; a lost
		// race surfaces here, not as an infrastructure error
		if IsUniqueViolation(err) && constraintName(err) == "attendees_event_email_active_uniq" {
			err = attendee.ErrAlreadyRegistered
		}
		return
	}

	return
}

func (repo *AttendeesRepo) Update(ctx context.Context, a attendee.Attendee) (err error) {
	err = repo.observe("attendees.update", func() error {
		tag, e := repo.pool.Exec(ctx, `
		UPDATE attendees
		SET name = $2,
		    email = $3,
		    phone = $4,
		    additional_info = $5,
		    status = $6,
		    payment_status = $7,
		    payment_intent_id = NULLIF($8, ''),
		    created_at = $9,
		    updated_at = NOW()
		WHERE id = $1
	`, a.ID, a.Name, a.Email, a.Phone, a.AdditionalInfo,
			string(a.Status), string(a.PaymentStatus), a.PaymentIntentID, a.CreatedAt)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return attendee.ErrNotFound
		}
		return nil
	})
	return
}

// UpdateIfActive is the settle-side conditional write: the row is only
// updated while it has not been cancelled, so a cancellation that raced in
// (user cancel, sweeper reclaim) can never be overwritten by a stale
// snapshot.
func (repo *AttendeesRepo) UpdateIfActive(ctx context.Context, a attendee.Attendee) (err error) {
	err = repo.observe("attendees.update_if_active", func() error {
		tag, e := repo.pool.Exec(ctx, `
		UPDATE attendees
		SET name = $2,
		    email = $3,
		    phone = $4,
		    additional_info = $5,
		    status = $6,
		    payment_status = $7,
		    payment_intent_id = NULLIF($8, ''),
		    created_at = $9,
		    updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
	`, a.ID, a.Name, a.Email, a.Phone, a.AdditionalInfo,
			string(a.Status), string(a.PaymentStatus), a.PaymentIntentID, a.CreatedAt)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			var exists bool

			if e := repo.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM attendees WHERE id = $1)`, a.ID).Scan(&exists); e != nil {
				return e
			}
			if !exists {
				return attendee.ErrNotFound
			}
			return attendee.ErrInvalidTransition
		}
		return nil
	})
	return
}

// ReclaimPending cancels the attendee only while it is still an unconfirmed
// paid reservation; a confirm that settled since the sweep scan wins.
func (repo *AttendeesRepo) ReclaimPending(ctx context.Context, id string) (applied bool, err error) {
	err = repo.observe("attendees.reclaim_pending", func() error {
		tag, e := repo.pool.Exec(ctx, `
		UPDATE attendees
		SET status = 'cancelled', payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'registered' AND payment_status = 'pending'
	`, id)

		if e != nil {
			return e
		}

		applied = tag.RowsAffected() > 0
		return nil
	})
	return
}

func (repo *AttendeesRepo) GetByID(ctx context.Context, id string) (found attendee.Attendee, err error) {
	err = repo.observe("attendees.get_by_id", func() error {
		var e error
		found, e = scanAttendee(repo.pool.QueryRow(ctx,
			`SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, id))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = attendee.ErrNotFound
	}
	return
}

func (repo *AttendeesRepo) ListByEvent(ctx context.Context, eventID string) (items []attendee.Attendee, err error) {
	var rows pgx.Rows

	err = repo.observe("attendees.list_by_event", func() error {
		var e error
		rows, e = repo.pool.Query(ctx,
			`SELECT `+attendeeColumns+`
			 FROM attendees
			 WHERE event_id = $1
			 ORDER BY created_at ASC, id ASC`, eventID)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	items = make([]attendee.Attendee, 0)

	for rows.Next() {
		a, e := scanAttendee(rows)

		if e != nil {
			err = e
			return
		}
		items = append(items, a)
	}

	err = rows.Err()
	return
}

func (repo *AttendeesRepo) ListByEventCursor(
	ctx context.Context,
	eventID string,
	limit int,
	afterCreatedAt time.Time,
	afterID string,
) (items []attendee.Attendee, nextCursor *string, hasMore bool, err error) {
	op := "attendees.list_by_event_cursor"

	q := `SELECT ` + attendeeColumns + `
		FROM attendees
		WHERE event_id = $1
		  AND (created_at, id) > ($2, $3)
		ORDER BY created_at ASC, id ASC
		LIMIT $4`
	limitPlusOne := limit + 1

	var rows pgx.Rows
	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, eventID, afterCreatedAt, afterID, limitPlusOne)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]attendee.Attendee, 0, limit)

	for rows.Next() {
		a, scanErr := scanAttendee(rows)
		if scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

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

// CountActive is reporting only; capacity decisions go through the ledger.
func (repo *AttendeesRepo) CountActive(ctx context.Context, eventID string) (int, error) {
	var total int

	err := repo.observe("attendees.count_active", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM attendees WHERE event_id = $1 AND status <> 'cancelled'`,
			eventID).Scan(&total)
	})
	return total, err
}

// FindExpiredPending returns paid reservations still unconfirmed past the
// grace cutoff. An empty eventID scans all events (sweeper); a concrete one
// narrows to a single event (lazy reclaim).
func (repo *AttendeesRepo) FindExpiredPending(ctx context.Context, eventID string, olderThan time.Time, limit int) (items []attendee.Attendee, err error) {
	// the event filter is a separate statement: event_id is a uuid column,
	// and a single text parameter cannot both carry the "unscoped" sentinel
	// and compare against it
	query := `SELECT ` + attendeeColumns + `
		 FROM attendees
		 WHERE status = 'registered'
		   AND payment_status = 'pending'
		   AND created_at < $1`
	args := []any{olderThan}

	if eventID != "" {
		query += ` AND event_id = $2 ORDER BY created_at ASC LIMIT $3`
		args = append(args, eventID, limit)
	} else {
		query += ` ORDER BY created_at ASC LIMIT $2`
		args = append(args, limit)
	}

	var rows pgx.Rows

	err = repo.observe("attendees.find_expired_pending", func() error {
		var e error
		rows, e = repo.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	items = make([]attendee.Attendee, 0)

	for rows.Next() {
		a, e := scanAttendee(rows)

		if e != nil {
			err = e
			return
		}
		items = append(items, a)
	}

	err = rows.Err()
	return
}
