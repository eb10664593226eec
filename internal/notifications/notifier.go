package notifications

import "context"

type AdmissionConfirmedInput struct {
	Email      string
	Name       string
	EventID    string
	AttendeeID string
}

// Notifier tells an attendee their seat is secured. Delivery failures never
// fail the admission itself.
type Notifier interface {
	SendAdmissionConfirmed(ctx context.Context, input AdmissionConfirmedInput) error
}
