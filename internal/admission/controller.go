// Package admission implements the registration state machine. It owns every
// attendee status transition and is the only caller of the capacity ledger.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/admithub/internal/domain/attendee"
	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/geocoder89/admithub/internal/ledger"
	"github.com/geocoder89/admithub/internal/notifications"
	"github.com/geocoder89/admithub/internal/observability"
	"github.com/geocoder89/admithub/internal/payments"
)

var (
	// ErrNotOwner gates the owner-only operations (status updates, private
	// attendee lists).
	ErrNotOwner = errors.New("only the event owner may perform this action")

	// ErrPaymentSetup means intent creation failed after a slot was held;
	// the slot has already been released when this is returned.
	ErrPaymentSetup = errors.New("payment setup failed")
)

type EventSource interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type AttendeeStore interface {
	Create(ctx context.Context, a attendee.Attendee) error
	Update(ctx context.Context, a attendee.Attendee) error

	// UpdateIfActive applies the update only while the stored row is not
	// cancelled; a concurrent cancellation wins and ErrInvalidTransition
	// comes back instead.
	UpdateIfActive(ctx context.Context, a attendee.Attendee) error

	// ReclaimPending cancels the attendee only while it is still an
	// unconfirmed paid reservation, reporting whether the cancel applied.
	ReclaimPending(ctx context.Context, id string) (bool, error)

	GetByID(ctx context.Context, id string) (attendee.Attendee, error)
	ListByEvent(ctx context.Context, eventID string) ([]attendee.Attendee, error)
	ListByEventCursor(ctx context.Context, eventID string, limit int, afterCreatedAt time.Time, afterID string) ([]attendee.Attendee, *string, bool, error)
	FindExpiredPending(ctx context.Context, eventID string, olderThan time.Time, limit int) ([]attendee.Attendee, error)
}

type PaymentCoordinator interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, metadata map[string]string) (payments.Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (payments.ConfirmOutcome, error)
}

type Config struct {
	// GraceWindow bounds how long a paid reservation may sit unconfirmed
	// before its slot is reclaimed.
	GraceWindow time.Duration

	// ReclaimBatch caps how many stale reservations one sweep releases.
	ReclaimBatch int
}

type Controller struct {
	events   EventSource
	store    AttendeeStore
	ledger   ledger.Ledger
	payments PaymentCoordinator
	notifier notifications.Notifier
	log      *slog.Logger
	prom     *observability.Prom
	cfg      Config
}

func NewController(
	events EventSource,
	store AttendeeStore,
	capacity ledger.Ledger,
	coordinator PaymentCoordinator,
	notifier notifications.Notifier,
	log *slog.Logger,
	prom *observability.Prom,
	cfg Config,
) *Controller {
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 15 * time.Minute
	}
	if cfg.ReclaimBatch <= 0 {
		cfg.ReclaimBatch = 100
	}

	return &Controller{
		events:   events,
		store:    store,
		ledger:   capacity,
		payments: coordinator,
		notifier: notifier,
		log:      log,
		prom:     prom,
		cfg:      cfg,
	}
}

// RegistrationResult carries the persisted attendee plus, for paid events,
// the client secret the payment element needs to collect the charge.
type RegistrationResult struct {
	Attendee     attendee.Attendee
	ClientSecret string
}

// Register runs the admission state machine for one request:
// validate -> duplicate check -> reserve -> persist -> (paid) intent setup.
// Any failure after the reserve step releases the held slot before returning.
func (c *Controller) Register(ctx context.Context, req attendee.CreateAttendeeRequest) (RegistrationResult, error) {
	ev, err := c.events.GetByID(ctx, req.EventID)

	if err != nil {
		c.prom.Admission("not_found")
		return RegistrationResult{}, err
	}

	if ev.HasStarted(time.Now().UTC()) {
		c.prom.Admission("event_started")
		return RegistrationResult{}, event.ErrAlreadyStarted
	}

	dup, err := c.ledger.IsDuplicate(ctx, ev.ID, req.Email)

	if err != nil {
		return RegistrationResult{}, err
	}

	if dup {
		c.prom.Admission("duplicate")
		return RegistrationResult{}, attendee.ErrAlreadyRegistered
	}

	a := attendee.NewFromCreateRequest(req)

	err = c.ledger.TryReserve(ctx, ev.ID, a.ID)

	if errors.Is(err, ledger.ErrCapacityExceeded) {
		// a full event may be holding abandoned paid reservations; reclaim
		// lazily and retry once before turning the caller away
		reclaimed, rerr := c.reclaimEvent(ctx, ev.ID)

		if rerr != nil {
			c.logError(ctx, "lazy reclaim", rerr)
		}
		if reclaimed > 0 {
			err = c.ledger.TryReserve(ctx, ev.ID, a.ID)
		}
	}

	if err != nil {
		if errors.Is(err, ledger.ErrCapacityExceeded) {
			c.prom.Admission("capacity_exceeded")
			return RegistrationResult{}, attendee.ErrEventFull
		}
		return RegistrationResult{}, err
	}

	if ev.IsPaid {
		a.PaymentStatus = attendee.PaymentPending
	}

	if err := c.store.Create(ctx, a); err != nil {
		// the slot was held for this attendee only; give it back
		c.release(ctx, ev.ID, a.ID)

		if errors.Is(err, attendee.ErrAlreadyRegistered) {
			c.prom.Admission("duplicate")
		}
		return RegistrationResult{}, err
	}

	if !ev.IsPaid {
		c.prom.Admission("admitted")
		c.notify(ctx, a)
		return RegistrationResult{Attendee: a}, nil
	}

	intent, err := c.payments.CreateIntent(ctx, payments.ToMinorUnits(ev.Price), map[string]string{
		"event_id":       ev.ID,
		"event_title":    ev.Title,
		"attendee_id":    a.ID,
		"attendee_email": a.Email,
	})

	if err != nil {
		// a failed setup must never strand the reservation
		_ = a.Transition(attendee.StatusCancelled)

		if uerr := c.store.Update(ctx, a); uerr != nil {
			c.logError(ctx, "mark attendee cancelled after intent failure", uerr)
		}
		c.release(ctx, ev.ID, a.ID)

		c.prom.Admission("payment_setup_failed")
		return RegistrationResult{}, fmt.Errorf("%w: %v", ErrPaymentSetup, err)
	}

	a.PaymentIntentID = intent.ID

	if err := c.store.Update(ctx, a); err != nil {
		c.release(ctx, ev.ID, a.ID)
		return RegistrationResult{}, err
	}

	c.prom.Admission("admitted")
	return RegistrationResult{Attendee: a, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmPayment settles a paid registration. The coordinator re-reads the
// intent from the gateway; a declined intent cancels the registration and
// frees its slot, a still-pending one changes nothing.
func (c *Controller) ConfirmPayment(ctx context.Context, attendeeID, intentID string) (attendee.Attendee, error) {
	a, err := c.store.GetByID(ctx, attendeeID)

	if err != nil {
		return attendee.Attendee{}, err
	}

	if a.PaymentIntentID == "" || a.PaymentIntentID != intentID {
		return attendee.Attendee{}, payments.ErrIntentMismatch
	}

	// already settled: report the same success again, touch nothing
	if a.PaymentStatus == attendee.PaymentCompleted {
		return a, nil
	}

	if a.Status == attendee.StatusCancelled {
		return attendee.Attendee{}, attendee.ErrInvalidTransition
	}

	outcome, err := c.payments.ConfirmIntent(ctx, intentID)

	if err != nil {
		return attendee.Attendee{}, err
	}

	switch outcome {
	case payments.OutcomeSucceeded:
		if err := a.MarkPaymentCompleted(); err != nil {
			return attendee.Attendee{}, err
		}

		// conditional write: a cancellation that landed since the read above
		// (user cancel, sweeper reclaim) wins; a cancelled registration must
		// never come back as settled
		if err := c.store.UpdateIfActive(ctx, a); err != nil {
			return attendee.Attendee{}, err
		}

		c.notify(ctx, a)
		return a, nil

	case payments.OutcomeDeclined:
		_ = a.Transition(attendee.StatusCancelled)

		if err := c.store.Update(ctx, a); err != nil {
			return attendee.Attendee{}, err
		}
		c.release(ctx, a.EventID, a.ID)

		return attendee.Attendee{}, payments.ErrDeclined

	default:
		return attendee.Attendee{}, payments.ErrNotSettled
	}
}

// Cancel releases an attendee's slot. Cancelling an already-cancelled
// registration is a no-op, not an error.
func (c *Controller) Cancel(ctx context.Context, attendeeID string) error {
	a, err := c.store.GetByID(ctx, attendeeID)

	if err != nil {
		return err
	}

	if a.Status == attendee.StatusCancelled {
		return nil
	}

	ev, err := c.events.GetByID(ctx, a.EventID)

	if err != nil {
		return err
	}

	if ev.HasStarted(time.Now().UTC()) {
		return event.ErrAlreadyStarted
	}

	if err := a.Transition(attendee.StatusCancelled); err != nil {
		return err
	}

	if err := c.store.Update(ctx, a); err != nil {
		return err
	}

	c.release(ctx, a.EventID, a.ID)
	return nil
}

// UpdateStatus is the owner-only transition path (marking attendance, or an
// owner-side cancellation). Transitions out of cancelled are rejected.
func (c *Controller) UpdateStatus(ctx context.Context, attendeeID, rawStatus, actorID, actorRole string) (attendee.Attendee, error) {
	next, err := attendee.ParseStatus(rawStatus)

	if err != nil {
		return attendee.Attendee{}, err
	}

	a, err := c.store.GetByID(ctx, attendeeID)

	if err != nil {
		return attendee.Attendee{}, err
	}

	ev, err := c.events.GetByID(ctx, a.EventID)

	if err != nil {
		return attendee.Attendee{}, err
	}

	if actorRole != "admin" && ev.OwnerID != actorID {
		return attendee.Attendee{}, ErrNotOwner
	}

	wasActive := a.Status != attendee.StatusCancelled

	if err := a.Transition(next); err != nil {
		return attendee.Attendee{}, err
	}

	if err := c.store.Update(ctx, a); err != nil {
		return attendee.Attendee{}, err
	}

	if next == attendee.StatusCancelled && wasActive {
		c.release(ctx, a.EventID, a.ID)
	}

	return a, nil
}

// ListEventAttendees returns an event's attendees. Private events reveal
// their list only to the owner (or an admin).
func (c *Controller) ListEventAttendees(ctx context.Context, eventID, viewerID, viewerRole string) ([]attendee.Attendee, error) {
	ev, err := c.events.GetByID(ctx, eventID)

	if err != nil {
		return nil, err
	}

	if ev.IsPrivate && viewerRole != "admin" && ev.OwnerID != viewerID {
		return nil, ErrNotOwner
	}

	return c.store.ListByEvent(ctx, eventID)
}

// ListEventAttendeesPage is the keyset-paginated variant, same visibility
// rules as ListEventAttendees.
func (c *Controller) ListEventAttendeesPage(
	ctx context.Context,
	eventID, viewerID, viewerRole string,
	limit int,
	afterCreatedAt time.Time,
	afterID string,
) ([]attendee.Attendee, *string, bool, error) {
	ev, err := c.events.GetByID(ctx, eventID)

	if err != nil {
		return nil, nil, false, err
	}

	if ev.IsPrivate && viewerRole != "admin" && ev.OwnerID != viewerID {
		return nil, nil, false, ErrNotOwner
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	return c.store.ListByEventCursor(ctx, eventID, limit, afterCreatedAt, afterID)
}

// ReclaimAbandoned sweeps paid reservations that out-sat the grace window,
// cancelling them and releasing their slots. Used by the sweeper binary and,
// per event, lazily when a registration hits a full event.
func (c *Controller) ReclaimAbandoned(ctx context.Context) (int, error) {
	return c.reclaimEvent(ctx, "")
}

func (c *Controller) reclaimEvent(ctx context.Context, eventID string) (int, error) {
	cutoff := time.Now().UTC().Add(-c.cfg.GraceWindow)

	stale, err := c.store.FindExpiredPending(ctx, eventID, cutoff, c.cfg.ReclaimBatch)

	if err != nil {
		return 0, err
	}

	reclaimed := 0

	for _, a := range stale {
		// conditional cancel: a confirm that settled the payment since the
		// scan wins, and its slot stays held
		ok, err := c.store.ReclaimPending(ctx, a.ID)

		if err != nil {
			c.logError(ctx, "reclaim update", err)
			continue
		}
		if !ok {
			continue
		}

		c.release(ctx, a.EventID, a.ID)
		reclaimed++

		if c.log != nil {
			c.log.InfoContext(ctx, "reclaimed abandoned reservation",
				"attendee_id", a.ID,
				"event_id", a.EventID,
			)
		}
	}

	c.prom.Reclaimed(reclaimed)
	return reclaimed, nil
}

func (c *Controller) release(ctx context.Context, eventID, holdID string) {
	if _, err := c.ledger.Release(ctx, eventID, holdID); err != nil {
		c.logError(ctx, "release slot", err)
	}
}

func (c *Controller) notify(ctx context.Context, a attendee.Attendee) {
	if c.notifier == nil {
		return
	}

	err := c.notifier.SendAdmissionConfirmed(ctx, notifications.AdmissionConfirmedInput{
		Email:      a.Email,
		Name:       a.Name,
		EventID:    a.EventID,
		AttendeeID: a.ID,
	})

	if err != nil {
		c.logError(ctx, "send confirmation", err)
	}
}

func (c *Controller) logError(ctx context.Context, msg string, err error) {
	if c.log != nil {
		c.log.ErrorContext(ctx, msg, "err", err)
	}
}
