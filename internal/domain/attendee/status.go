package attendee

import "errors"

// Status is the attendance lifecycle; PaymentStatus is the charge lifecycle.
// They are deliberately two small enums rather than one string field so the
// cross rule (a completed payment never belongs to a cancelled attendee) can
// be checked at every transition.

type Status string

const (
	StatusRegistered Status = "registered"
	StatusAttended   Status = "attended"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentNone      PaymentStatus = "none"
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var ErrInvalidStatus = errors.New("invalid attendee status")

// cancelled is terminal
var ErrInvalidTransition = errors.New("illegal attendee status transition")

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusRegistered, StatusAttended, StatusCancelled:
		return Status(raw), nil
	}
	return "", ErrInvalidStatus
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() {
		return false
	}

	switch s {
	case StatusRegistered:
		return next == StatusAttended || next == StatusCancelled
	case StatusAttended:
		return next == StatusCancelled
	case StatusCancelled:
		// terminal: no way out, not even back to itself
		return false
	}
	return false
}

// Transition applies a status change, keeping the payment state consistent:
// completed payments on a record leaving the active states become refunded,
// pending payments become failed.
func (a *Attendee) Transition(next Status) error {
	if a.Status == StatusCancelled && next == StatusCancelled {
		// idempotent no-op so repeated cancels don't error
		return nil
	}

	if !a.Status.CanTransition(next) {
		return ErrInvalidTransition
	}

	if next == StatusCancelled {
		switch a.PaymentStatus {
		case PaymentCompleted:
			a.PaymentStatus = PaymentRefunded
		case PaymentPending:
			a.PaymentStatus = PaymentFailed
		}
	}

	a.Status = next
	return nil
}

// MarkPaymentCompleted enforces the cross rule before recording success.
func (a *Attendee) MarkPaymentCompleted() error {
	if a.Status != StatusRegistered && a.Status != StatusAttended {
		return ErrInvalidTransition
	}
	a.PaymentStatus = PaymentCompleted
	return nil
}
