package attendee

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Attendee struct {
	ID              string        `json:"id"`
	EventID         string        `json:"eventId"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	AdditionalInfo  string        `json:"additionalInfo,omitempty"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

var ErrNotFound = errors.New("attendee not found")

// same email registered twice for one event (cancelled rows don't count)
var ErrAlreadyRegistered = errors.New("attendee already registered for this event")

var ErrEventFull = errors.New("event is at full capacity")

type CreateAttendeeRequest struct {
	EventID        string `json:"-"`
	Name           string `json:"name" binding:"required,min=2,max=120"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required,min=5,max=32"`
	AdditionalInfo string `json:"additionalInfo" binding:"omitempty,max=1000"`
}

// NewFromCreateRequest builds an Attendee in its initial state. The payment
// status starts at None; the admission controller moves it to Pending before
// requesting an intent for a paid event.
func NewFromCreateRequest(req CreateAttendeeRequest) Attendee {
	now := time.Now().UTC()

	return Attendee{
		ID:             uuid.NewString(),
		EventID:        req.EventID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		AdditionalInfo: req.AdditionalInfo,
		Status:         StatusRegistered,
		PaymentStatus:  PaymentNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
