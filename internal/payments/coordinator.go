package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/admithub/internal/observability"
)

// ConfirmOutcome is the coordinator's classification of an intent after
// re-reading it from the gateway.
type ConfirmOutcome string

const (
	OutcomeSucceeded ConfirmOutcome = "succeeded"
	OutcomeDeclined  ConfirmOutcome = "declined"
	OutcomePending   ConfirmOutcome = "pending"
)

// Coordinator translates admission-side intent requests into gateway calls.
// It is stateless beyond the gateway handle: correlation lives on the
// attendee record (payment_intent_id).
type Coordinator struct {
	gateway  Gateway
	currency string
	log      *slog.Logger
	prom     *observability.Prom
}

func NewCoordinator(gateway Gateway, currency string, log *slog.Logger, prom *observability.Prom) *Coordinator {
	if currency == "" {
		currency = "usd"
	}

	return &Coordinator{
		gateway:  gateway,
		currency: currency,
		log:      log,
		prom:     prom,
	}
}

func (c *Coordinator) observe(op string, fn func() error) error {
	if c.prom != nil {
		return c.prom.ObserveGateway(op, fn)
	}
	return fn()
}

// CreateIntent opens a payment intent for amountMinorUnits in the configured
// currency. Metadata ties the intent back to the event and attendee.
func (c *Coordinator) CreateIntent(ctx context.Context, amountMinorUnits int64, metadata map[string]string) (Intent, error) {
	if amountMinorUnits <= 0 {
		return Intent{}, fmt.Errorf("%w: non-positive amount %d", ErrGateway, amountMinorUnits)
	}

	var intent Intent

	err := c.observe("payments.create_intent", func() error {
		var err error
		intent, err = c.gateway.CreateIntent(ctx, amountMinorUnits, c.currency, metadata)
		return err
	})

	if err != nil {
		return Intent{}, err
	}

	if c.log != nil {
		c.log.InfoContext(ctx, "payment intent created",
			"intent_id", intent.ID,
			"amount_minor", amountMinorUnits,
			"currency", c.currency,
		)
	}

	return intent, nil
}

// ConfirmIntent re-reads the intent's state from the gateway and classifies
// it. The cardholder interaction happened client-side; a client-asserted
// success is never trusted unchecked. Confirming an already-succeeded intent
// reports OutcomeSucceeded again with no side effects, so client retries are
// harmless.
func (c *Coordinator) ConfirmIntent(ctx context.Context, intentID string) (ConfirmOutcome, error) {
	var intent Intent

	err := c.observe("payments.confirm_intent", func() error {
		var err error
		intent, err = c.gateway.GetIntent(ctx, intentID)
		return err
	})

	if err != nil {
		return "", err
	}

	switch intent.Status {
	case IntentSucceeded:
		return OutcomeSucceeded, nil
	case IntentCanceled, IntentRequiresPaymentMethod:
		return OutcomeDeclined, nil
	default:
		// processing / requires_action: not terminal yet
		return OutcomePending, nil
	}
}
