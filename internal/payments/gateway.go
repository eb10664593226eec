package payments

import (
	"context"
	"errors"
)

// Intent is the gateway-side handle for a charge.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
}

type IntentStatus string

const (
	IntentSucceeded             IntentStatus = "succeeded"
	IntentProcessing            IntentStatus = "processing"
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentCanceled              IntentStatus = "canceled"
)

var (
	// ErrGateway covers network failures and provider-side errors.
	ErrGateway = errors.New("payment gateway error")

	// ErrDeclined is a terminal rejection of the charge.
	ErrDeclined = errors.New("payment declined")

	// ErrNotSettled means the intent has no terminal state yet; the
	// reservation stays pending until the grace window expires.
	ErrNotSettled = errors.New("payment intent not settled")

	// ErrIntentMismatch is raised when a confirmation names an intent that
	// does not belong to the attendee it claims to pay for.
	ErrIntentMismatch = errors.New("payment intent does not match registration")
)

// Gateway is the raw provider surface: create an intent, re-read its state.
// The coordinator never trusts a client-asserted success; it always re-reads.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}
