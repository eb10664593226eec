package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/admithub/internal/config"
	"github.com/geocoder89/admithub/internal/payments"
	"github.com/gin-gonic/gin"
)

type IntentCreator interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, metadata map[string]string) (payments.Intent, error)
}

type PaymentHandler struct {
	coordinator IntentCreator
}

func NewPaymentHandler(coordinator IntentCreator) *PaymentHandler {
	return &PaymentHandler{coordinator: coordinator}
}

// Amount arrives in major units (dollars); conversion to minor units is
// centralized in payments.ToMinorUnits.
type createIntentRequest struct {
	Amount   float64           `json:"amount" binding:"required,gt=0"`
	EventID  string            `json:"eventId" binding:"omitempty,uuid"`
	Metadata map[string]string `json:"metadata" binding:"omitempty,max=16"`
}

func (h *PaymentHandler) CreateIntent(ctx *gin.Context) {
	var req createIntentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	metadata := make(map[string]string, len(req.Metadata)+1)

	for k, v := range req.Metadata {
		metadata[k] = v
	}

	if req.EventID != "" {
		metadata["event_id"] = req.EventID
	}

	cctx, cancel := config.WithTimeout(handlerTimeout)
	defer cancel()

	intent, err := h.coordinator.CreateIntent(cctx, payments.ToMinorUnits(req.Amount), metadata)

	if err != nil {
		if errors.Is(err, payments.ErrDeclined) {
			RespondPaymentRequired(ctx, "payment_declined", "The payment method was declined.")
			return
		}

		RespondError(ctx, http.StatusBadGateway, "payment_gateway_error", "Could not create payment intent", nil)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"intentId":     intent.ID,
		"clientSecret": intent.ClientSecret,
		"status":       intent.Status,
	})
}
