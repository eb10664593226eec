package admission_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/admithub/internal/admission"
	"github.com/geocoder89/admithub/internal/domain/attendee"
	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/geocoder89/admithub/internal/payments"
	"github.com/geocoder89/admithub/internal/repo/memory"
	"github.com/google/uuid"
)

type fakeCoordinator struct {
	mu             sync.Mutex
	createCalls    int
	confirmCalls   int
	lastAmount     int64
	lastMetadata   map[string]string
	createErr      error
	confirmOutcome payments.ConfirmOutcome
	confirmErr     error

	// confirmHook runs between the controller's read of the attendee and
	// its write, to interleave concurrent operations deterministically
	confirmHook func()
}

func (f *fakeCoordinator) CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (payments.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	f.lastAmount = amount
	f.lastMetadata = metadata

	if f.createErr != nil {
		return payments.Intent{}, f.createErr
	}

	return payments.Intent{
		ID:           "pi_" + uuid.NewString(),
		ClientSecret: "cs_test",
		Status:       payments.IntentRequiresPaymentMethod,
	}, nil
}

func (f *fakeCoordinator) ConfirmIntent(ctx context.Context, intentID string) (payments.ConfirmOutcome, error) {
	f.mu.Lock()
	f.confirmCalls++
	hook := f.confirmHook
	outcome := f.confirmOutcome
	confirmErr := f.confirmErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	if confirmErr != nil {
		return "", confirmErr
	}
	if outcome == "" {
		return payments.OutcomeSucceeded, nil
	}
	return outcome, nil
}

type fixture struct {
	ctrl      *admission.Controller
	events    *memory.EventsRepo
	attendees *memory.AttendeesRepo
	ledger    *memory.Ledger
	gateway   *fakeCoordinator
	event     event.Event
}

func newFixture(t *testing.T, capacity int, paid bool, price float64) *fixture {
	t.Helper()

	events := memory.NewEventsRepo()
	attendees := memory.NewAttendeesRepo()
	led := memory.NewLedger(attendees)
	gw := &fakeCoordinator{}

	ev := events.Put(event.Event{
		Title:    "Go Conf",
		StartAt:  time.Now().UTC().Add(24 * time.Hour),
		EndAt:    time.Now().UTC().Add(30 * time.Hour),
		Capacity: capacity,
		IsPaid:   paid,
		Price:    price,
		OwnerID:  "owner-1",
	})
	led.SetCapacity(ev.ID, ev.Capacity)

	ctrl := admission.NewController(events, attendees, led, gw, nil, nil, nil, admission.Config{
		GraceWindow: 15 * time.Minute,
	})

	return &fixture{
		ctrl:      ctrl,
		events:    events,
		attendees: attendees,
		ledger:    led,
		gateway:   gw,
		event:     ev,
	}
}

func registerReq(eventID, email string) attendee.CreateAttendeeRequest {
	return attendee.CreateAttendeeRequest{
		EventID: eventID,
		Name:    "Ada Lovelace",
		Email:   email,
		Phone:   "+1-555-0100",
	}
}

func TestRegisterFreeEvent(t *testing.T) {
	f := newFixture(t, 10, false, 0)

	res, err := f.ctrl.Register(context.Background(), registerReq(f.event.ID, "ada@example.com"))

	if err != nil {
		t.Fatalf("register: %v", err)
	}

	a := res.Attendee
	if a.Status != attendee.StatusRegistered {
		t.Errorf("status = %s, want registered", a.Status)
	}
	if a.PaymentStatus != attendee.PaymentNone {
		t.Errorf("payment status = %s, want none", a.PaymentStatus)
	}
	if res.ClientSecret != "" {
		t.Errorf("free event must not hand out a client secret")
	}
	if f.gateway.createCalls != 0 {
		t.Errorf("free event must not touch the gateway")
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	f := newFixture(t, 10, false, 0)

	_, err := f.ctrl.Register(context.Background(), registerReq(uuid.NewString(), "a@example.com"))

	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("want event.ErrNotFound, got %v", err)
	}
}

func TestRegisterAfterEventStarted(t *testing.T) {
	f := newFixture(t, 10, false, 0)

	started := f.events.Put(event.Event{
		Title:    "Yesterday's meetup",
		StartAt:  time.Now().UTC().Add(-1 * time.Hour),
		Capacity: 10,
	})
	f.ledger.SetCapacity(started.ID, 10)

	_, err := f.ctrl.Register(context.Background(), registerReq(started.ID, "late@example.com"))

	if !errors.Is(err, event.ErrAlreadyStarted) {
		t.Fatalf("want ErrAlreadyStarted, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, 10, false, 0)
	ctx := context.Background()

	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "dup@example.com")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "dup@example.com"))

	if !errors.Is(err, attendee.ErrAlreadyRegistered) {
		t.Fatalf("want ErrAlreadyRegistered, got %v", err)
	}

	n, _ := f.attendees.CountActive(ctx, f.event.ID)
	if n != 1 {
		t.Fatalf("active attendees = %d, want 1", n)
	}
}

func TestLastSlotRace(t *testing.T) {
	f := newFixture(t, 1, false, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.ctrl.Register(ctx, registerReq(f.event.ID, fmt.Sprintf("racer%d@example.com", n)))
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	var won, full int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, attendee.ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if won != 1 || full != 1 {
		t.Fatalf("won=%d full=%d, want exactly one of each", won, full)
	}
}

func TestConcurrentRegistrationsNeverExceedCapacity(t *testing.T) {
	const capacity = 8
	const contenders = 50

	f := newFixture(t, capacity, false, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = f.ctrl.Register(ctx, registerReq(f.event.ID, fmt.Sprintf("c%d@example.com", n)))
		}(i)
	}
	wg.Wait()

	active, err := f.attendees.CountActive(ctx, f.event.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != capacity {
		t.Fatalf("active attendees = %d, want %d", active, capacity)
	}
}

func TestCancelFreesSlotsForExactlyThatMany(t *testing.T) {
	const capacity = 4

	f := newFixture(t, capacity, false, 0)
	ctx := context.Background()

	ids := make([]string, 0, capacity)
	for i := 0; i < capacity; i++ {
		res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, fmt.Sprintf("full%d@example.com", i)))
		if err != nil {
			t.Fatalf("fill %d: %v", i, err)
		}
		ids = append(ids, res.Attendee.ID)
	}

	// cancel two
	for _, id := range ids[:2] {
		if err := f.ctrl.Cancel(ctx, id); err != nil {
			t.Fatalf("cancel %s: %v", id, err)
		}
	}

	// exactly two of four new attempts must be admitted
	admitted := 0
	for i := 0; i < capacity; i++ {
		_, err := f.ctrl.Register(ctx, registerReq(f.event.ID, fmt.Sprintf("second%d@example.com", i)))
		if err == nil {
			admitted++
		} else if !errors.Is(err, attendee.ErrEventFull) {
			t.Fatalf("re-register %d: %v", i, err)
		}
	}

	if admitted != 2 {
		t.Fatalf("admitted %d after 2 cancellations, want 2", admitted)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t, 1, false, 0)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "one@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := f.ctrl.Cancel(ctx, res.Attendee.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := f.ctrl.Cancel(ctx, res.Attendee.ID); err != nil {
		t.Fatalf("second cancel must be a no-op, got %v", err)
	}

	// the single slot must be claimable exactly once
	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "two@example.com")); err != nil {
		t.Fatalf("register after cancel: %v", err)
	}
	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "three@example.com")); !errors.Is(err, attendee.ErrEventFull) {
		t.Fatalf("double cancel leaked a slot: %v", err)
	}
}

func TestRegisterPaidEventCreatesIntent(t *testing.T) {
	f := newFixture(t, 10, true, 12.50)

	res, err := f.ctrl.Register(context.Background(), registerReq(f.event.ID, "payer@example.com"))

	if err != nil {
		t.Fatalf("register: %v", err)
	}

	a := res.Attendee
	if a.PaymentStatus != attendee.PaymentPending {
		t.Errorf("payment status = %s, want pending", a.PaymentStatus)
	}
	if a.PaymentIntentID == "" {
		t.Errorf("missing payment intent id")
	}
	if res.ClientSecret != "cs_test" {
		t.Errorf("client secret = %q, want cs_test", res.ClientSecret)
	}
	if f.gateway.lastAmount != 1250 {
		t.Errorf("intent amount = %d minor units, want 1250 for price 12.50", f.gateway.lastAmount)
	}
	if f.gateway.lastMetadata["event_id"] != f.event.ID || f.gateway.lastMetadata["attendee_id"] != a.ID {
		t.Errorf("intent metadata missing correlation: %v", f.gateway.lastMetadata)
	}
}

func TestRegisterPaidEventIntentFailureReleasesSlot(t *testing.T) {
	f := newFixture(t, 1, true, 20)
	f.gateway.createErr = payments.ErrGateway
	ctx := context.Background()

	_, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "fail@example.com"))

	if !errors.Is(err, admission.ErrPaymentSetup) {
		t.Fatalf("want ErrPaymentSetup, got %v", err)
	}

	// slot must not be stranded
	f.gateway.createErr = nil
	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "next@example.com")); err != nil {
		t.Fatalf("slot stranded after setup failure: %v", err)
	}
}

func TestConfirmPaymentSuccess(t *testing.T) {
	f := newFixture(t, 10, true, 12.50)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "payer@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if got.PaymentStatus != attendee.PaymentCompleted {
		t.Errorf("payment status = %s, want completed", got.PaymentStatus)
	}
	if got.Status != attendee.StatusRegistered {
		t.Errorf("status = %s, want registered", got.Status)
	}
}

func TestConfirmPaymentTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, 1, true, 12.50)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "payer@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first, err := f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	second, err := f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	if first.Status != second.Status || first.PaymentStatus != second.PaymentStatus {
		t.Fatalf("confirm not idempotent: %+v vs %+v", first, second)
	}

	// settled registrations short-circuit before the gateway
	if f.gateway.confirmCalls != 1 {
		t.Errorf("gateway confirm calls = %d, want 1", f.gateway.confirmCalls)
	}

	// and capacity is not double-counted
	active, _ := f.ledger.ActiveCount(ctx, f.event.ID)
	if active != 1 {
		t.Errorf("active slots = %d, want 1", active)
	}
}

func TestConfirmPaymentDeclinedReleasesSlot(t *testing.T) {
	f := newFixture(t, 1, true, 9.99)
	f.gateway.confirmOutcome = payments.OutcomeDeclined
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "declined@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID)
	if !errors.Is(err, payments.ErrDeclined) {
		t.Fatalf("want ErrDeclined, got %v", err)
	}

	a, _ := f.attendees.GetByID(ctx, res.Attendee.ID)
	if a.Status != attendee.StatusCancelled || a.PaymentStatus != attendee.PaymentFailed {
		t.Fatalf("declined attendee = %s/%s, want cancelled/failed", a.Status, a.PaymentStatus)
	}

	// freed slot is claimable again
	f.gateway.confirmOutcome = payments.OutcomeSucceeded
	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "winner@example.com")); err != nil {
		t.Fatalf("slot not released after decline: %v", err)
	}
}

func TestConfirmPaymentIntentMismatch(t *testing.T) {
	f := newFixture(t, 10, true, 5)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "payer@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, "pi_someone_elses")
	if !errors.Is(err, payments.ErrIntentMismatch) {
		t.Fatalf("want ErrIntentMismatch, got %v", err)
	}
}

func TestConfirmPaymentUnsettledLeavesPending(t *testing.T) {
	f := newFixture(t, 10, true, 5)
	f.gateway.confirmOutcome = payments.OutcomePending
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "slow@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID)
	if !errors.Is(err, payments.ErrNotSettled) {
		t.Fatalf("want ErrNotSettled, got %v", err)
	}

	a, _ := f.attendees.GetByID(ctx, res.Attendee.ID)
	if a.Status != attendee.StatusRegistered || a.PaymentStatus != attendee.PaymentPending {
		t.Fatalf("unsettled attendee mutated: %s/%s", a.Status, a.PaymentStatus)
	}
}

func backdate(t *testing.T, f *fixture, id string, age time.Duration) {
	t.Helper()

	a, err := f.attendees.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("backdate get: %v", err)
	}

	a.CreatedAt = time.Now().UTC().Add(-age)

	if err := f.attendees.Update(context.Background(), a); err != nil {
		t.Fatalf("backdate update: %v", err)
	}
}

func TestReclaimAbandonedPendingReservation(t *testing.T) {
	f := newFixture(t, 1, true, 10)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "ghost@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	backdate(t, f, res.Attendee.ID, time.Hour)

	n, err := f.ctrl.ReclaimAbandoned(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed %d, want 1", n)
	}

	a, _ := f.attendees.GetByID(ctx, res.Attendee.ID)
	if a.Status != attendee.StatusCancelled || a.PaymentStatus != attendee.PaymentFailed {
		t.Fatalf("reclaimed attendee = %s/%s, want cancelled/failed", a.Status, a.PaymentStatus)
	}

	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "claims-the-slot@example.com")); err != nil {
		t.Fatalf("slot not claimable after reclaim: %v", err)
	}
}

func TestRegisterReclaimsLazilyOnFullEvent(t *testing.T) {
	f := newFixture(t, 1, true, 10)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "ghost@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	backdate(t, f, res.Attendee.ID, time.Hour)

	// no sweep ran; the register path itself must reclaim and admit
	got, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "eager@example.com"))
	if err != nil {
		t.Fatalf("lazy reclaim did not free the slot: %v", err)
	}
	if got.Attendee.PaymentStatus != attendee.PaymentPending {
		t.Errorf("new attendee payment status = %s, want pending", got.Attendee.PaymentStatus)
	}
}

func TestReclaimSkipsFreshPending(t *testing.T) {
	f := newFixture(t, 1, true, 10)
	ctx := context.Background()

	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "fresh@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}

	n, err := f.ctrl.ReclaimAbandoned(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 0 {
		t.Fatalf("reclaimed %d fresh reservations, want 0", n)
	}
}

func TestConfirmPaymentLosesToConcurrentReclaim(t *testing.T) {
	f := newFixture(t, 1, true, 10)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "slow-payer@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	backdate(t, f, res.Attendee.ID, time.Hour)

	// the sweep lands between the confirm's read and its write
	f.gateway.confirmHook = func() {
		if n, rerr := f.ctrl.ReclaimAbandoned(ctx); rerr != nil || n != 1 {
			t.Errorf("interleaved reclaim = %d, %v; want 1, nil", n, rerr)
		}
	}

	_, err = f.ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID)
	if !errors.Is(err, attendee.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}

	// the reclaimed registration must stay cancelled, never settle
	a, _ := f.attendees.GetByID(ctx, res.Attendee.ID)
	if a.Status != attendee.StatusCancelled || a.PaymentStatus == attendee.PaymentCompleted {
		t.Fatalf("reclaimed attendee resurrected: %s/%s", a.Status, a.PaymentStatus)
	}

	// and the freed slot admits exactly one newcomer
	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "next@example.com")); err != nil {
		t.Fatalf("register after reclaim: %v", err)
	}

	active, _ := f.attendees.CountActive(ctx, f.event.ID)
	if active != 1 {
		t.Fatalf("active attendees = %d for capacity 1", active)
	}
}

// scanHookStore interleaves a callback between the reclaim's scan and its
// conditional cancels.
type scanHookStore struct {
	*memory.AttendeesRepo
	afterScan func()
}

func (s *scanHookStore) FindExpiredPending(ctx context.Context, eventID string, olderThan time.Time, limit int) ([]attendee.Attendee, error) {
	items, err := s.AttendeesRepo.FindExpiredPending(ctx, eventID, olderThan, limit)

	if s.afterScan != nil {
		hook := s.afterScan
		s.afterScan = nil
		hook()
	}
	return items, err
}

func TestReclaimSkipsJustSettledPayment(t *testing.T) {
	events := memory.NewEventsRepo()
	attendees := memory.NewAttendeesRepo()
	store := &scanHookStore{AttendeesRepo: attendees}
	led := memory.NewLedger(attendees)
	gw := &fakeCoordinator{}

	ev := events.Put(event.Event{
		Title:    "Go Conf",
		StartAt:  time.Now().UTC().Add(24 * time.Hour),
		EndAt:    time.Now().UTC().Add(30 * time.Hour),
		Capacity: 1,
		IsPaid:   true,
		Price:    10,
	})
	led.SetCapacity(ev.ID, 1)

	ctrl := admission.NewController(events, store, led, gw, nil, nil, nil, admission.Config{
		GraceWindow: 15 * time.Minute,
	})
	ctx := context.Background()

	res, err := ctrl.Register(ctx, registerReq(ev.ID, "racer@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	aged, _ := attendees.GetByID(ctx, res.Attendee.ID)
	aged.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := attendees.Update(ctx, aged); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	// the payment settles between the sweep's scan and its cancel
	store.afterScan = func() {
		if _, cerr := ctrl.ConfirmPayment(ctx, res.Attendee.ID, res.Attendee.PaymentIntentID); cerr != nil {
			t.Errorf("confirm during sweep: %v", cerr)
		}
	}

	n, err := ctrl.ReclaimAbandoned(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 0 {
		t.Fatalf("reclaimed %d settled payments, want 0", n)
	}

	a, _ := attendees.GetByID(ctx, res.Attendee.ID)
	if a.Status != attendee.StatusRegistered || a.PaymentStatus != attendee.PaymentCompleted {
		t.Fatalf("settled attendee = %s/%s, want registered/completed", a.Status, a.PaymentStatus)
	}

	// the settled registration keeps its slot
	if _, err := ctrl.Register(ctx, registerReq(ev.ID, "other@example.com")); !errors.Is(err, attendee.ErrEventFull) {
		t.Fatalf("settled slot was released: %v", err)
	}
}

func TestUpdateStatusOwnerOnly(t *testing.T) {
	f := newFixture(t, 10, false, 0)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "guest@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "attended", "not-the-owner", "user"); !errors.Is(err, admission.ErrNotOwner) {
		t.Fatalf("non-owner update: want ErrNotOwner, got %v", err)
	}

	a, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "attended", "owner-1", "user")
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if a.Status != attendee.StatusAttended {
		t.Errorf("status = %s, want attended", a.Status)
	}

	// admins may act on behalf of owners
	if _, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "cancelled", "someone", "admin"); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestUpdateStatusRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, 10, false, 0)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "guest@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "vip", "owner-1", "user"); !errors.Is(err, attendee.ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}

	if _, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "cancelled", "owner-1", "user"); err != nil {
		t.Fatalf("cancel via status update: %v", err)
	}

	// cancelled is terminal
	if _, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "registered", "owner-1", "user"); !errors.Is(err, attendee.ErrInvalidTransition) {
		t.Fatalf("un-cancel: want ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatusCancelReleasesSlot(t *testing.T) {
	f := newFixture(t, 1, false, 0)
	ctx := context.Background()

	res, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "guest@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.ctrl.UpdateStatus(ctx, res.Attendee.ID, "cancelled", "owner-1", "user"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := f.ctrl.Register(ctx, registerReq(f.event.ID, "next@example.com")); err != nil {
		t.Fatalf("slot not released by owner cancellation: %v", err)
	}
}

func TestListEventAttendeesPrivacy(t *testing.T) {
	f := newFixture(t, 10, false, 0)
	ctx := context.Background()

	private := f.events.Put(event.Event{
		Title:     "Invite only",
		StartAt:   time.Now().UTC().Add(time.Hour),
		Capacity:  10,
		IsPrivate: true,
		OwnerID:   "owner-1",
	})
	f.ledger.SetCapacity(private.ID, 10)

	if _, err := f.ctrl.Register(ctx, registerReq(private.ID, "member@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.ctrl.ListEventAttendees(ctx, private.ID, "random", "user"); !errors.Is(err, admission.ErrNotOwner) {
		t.Fatalf("private list for stranger: want ErrNotOwner, got %v", err)
	}

	list, err := f.ctrl.ListEventAttendees(ctx, private.ID, "owner-1", "user")
	if err != nil || len(list) != 1 {
		t.Fatalf("owner list = %d attendees, %v; want 1, nil", len(list), err)
	}

	// public events are open
	list, err = f.ctrl.ListEventAttendees(ctx, f.event.ID, "", "")
	if err != nil {
		t.Fatalf("public list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("public list = %d, want 0", len(list))
	}
}
