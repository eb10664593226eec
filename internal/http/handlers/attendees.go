package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/admithub/internal/admission"
	"github.com/geocoder89/admithub/internal/config"
	"github.com/geocoder89/admithub/internal/domain/attendee"
	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/geocoder89/admithub/internal/http/middlewares"
	"github.com/geocoder89/admithub/internal/payments"
	"github.com/geocoder89/admithub/internal/utils"
	"github.com/gin-gonic/gin"
)

// AdmissionController is the slice of the admission controller the HTTP
// layer needs; tests swap in a fake.
type AdmissionController interface {
	Register(ctx context.Context, req attendee.CreateAttendeeRequest) (admission.RegistrationResult, error)
	ConfirmPayment(ctx context.Context, attendeeID, intentID string) (attendee.Attendee, error)
	Cancel(ctx context.Context, attendeeID string) error
	UpdateStatus(ctx context.Context, attendeeID, rawStatus, actorID, actorRole string) (attendee.Attendee, error)
	ListEventAttendeesPage(ctx context.Context, eventID, viewerID, viewerRole string, limit int, afterCreatedAt time.Time, afterID string) ([]attendee.Attendee, *string, bool, error)
}

type AttendeeHandler struct {
	ctrl AdmissionController
}

func NewAttendeeHandler(ctrl AdmissionController) *AttendeeHandler {
	return &AttendeeHandler{ctrl: ctrl}
}

const handlerTimeout = 5 * time.Second

func (h *AttendeeHandler) Register(ctx *gin.Context) {
	eventID := ctx.Param("id")

	if !utils.IsUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var req attendee.CreateAttendeeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// force URL param as the source of truth
	req.EventID = eventID

	cctx, cancel := config.WithTimeout(handlerTimeout)
	defer cancel()

	res, err := h.ctrl.Register(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrAlreadyStarted):
			RespondUnprocessable(ctx, "event_already_started", "Registration closed: this event has already started.")
		case errors.Is(err, attendee.ErrAlreadyRegistered):
			RespondConflict(ctx, "already_registered", "This email is already registered for this event.")
		case errors.Is(err, attendee.ErrEventFull):
			RespondConflict(ctx, "event_full", "This event is already at full capacity.")
		case errors.Is(err, admission.ErrPaymentSetup):
			RespondError(ctx, http.StatusBadGateway, "payment_setup_failed", "Could not set up the payment for this registration.", nil)
		default:
			RespondInternal(ctx, "Could not register for event")
		}
		return
	}

	body := gin.H{"attendee": res.Attendee}

	if res.ClientSecret != "" {
		body["clientSecret"] = res.ClientSecret
	}

	ctx.JSON(http.StatusCreated, body)
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

func (h *AttendeeHandler) ConfirmPayment(ctx *gin.Context) {
	attendeeID := ctx.Param("id")

	if !utils.IsUUID(attendeeID) {
		RespondBadRequest(ctx, "attendee id must be a valid UUID", nil)
		return
	}

	var req confirmPaymentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(handlerTimeout)
	defer cancel()

	a, err := h.ctrl.ConfirmPayment(cctx, attendeeID, req.PaymentIntentID)

	if err != nil {
		switch {
		case errors.Is(err, attendee.ErrNotFound):
			RespondNotFound(ctx, "Attendee not found")
		case errors.Is(err, payments.ErrIntentMismatch):
			RespondConflict(ctx, "payment_intent_mismatch", "The payment intent does not belong to this registration.")
		case errors.Is(err, payments.ErrDeclined):
			RespondPaymentRequired(ctx, "payment_declined", "The payment was declined; the registration has been cancelled.")
		case errors.Is(err, payments.ErrNotSettled):
			RespondConflict(ctx, "payment_not_settled", "The payment has not settled yet. Try again shortly.")
		case errors.Is(err, attendee.ErrInvalidTransition):
			RespondConflict(ctx, "invalid_transition", "This registration can no longer accept a payment.")
		default:
			RespondInternal(ctx, "Could not confirm payment")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"attendee": a})
}

func (h *AttendeeHandler) Cancel(ctx *gin.Context) {
	attendeeID := ctx.Param("id")

	if !utils.IsUUID(attendeeID) {
		RespondBadRequest(ctx, "attendee id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(handlerTimeout)
	defer cancel()

	err := h.ctrl.Cancel(cctx, attendeeID)

	if err != nil {
		switch {
		case errors.Is(err, attendee.ErrNotFound):
			RespondNotFound(ctx, "Attendee not found")
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrAlreadyStarted):
			RespondUnprocessable(ctx, "event_already_started", "Registrations for a started event cannot be cancelled.")
		default:
			RespondInternal(ctx, "Could not cancel registration")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=registered attended cancelled"`
}

func (h *AttendeeHandler) UpdateStatus(ctx *gin.Context) {
	attendeeID := ctx.Param("id")

	if !utils.IsUUID(attendeeID) {
		RespondBadRequest(ctx, "attendee id must be a valid UUID", nil)
		return
	}

	var req updateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	actorID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || actorID == "" {
		RespondUnAuthorized(ctx, "Missing identity")
		return
	}

	actorRole, _ := middlewares.RoleFromContext(ctx)

	cctx, cancel := config.WithTimeout(handlerTimeout)
	defer cancel()

	a, err := h.ctrl.UpdateStatus(cctx, attendeeID, req.Status, actorID, actorRole)

	if err != nil {
		switch {
		case errors.Is(err, attendee.ErrNotFound):
			RespondNotFound(ctx, "Attendee not found")
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, attendee.ErrInvalidStatus):
			RespondBadRequest(ctx, "unknown status", nil)
		case errors.Is(err, attendee.ErrInvalidTransition):
			RespondConflict(ctx, "invalid_transition", "This status change is not allowed.")
		case errors.Is(err, admission.ErrNotOwner):
			RespondForbidden(ctx, "Only the event owner can update attendee status")
		default:
			RespondInternal(ctx, "Could not update attendee status")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"attendee": a})
}

func (h *AttendeeHandler) ListForEvent(ctx *gin.Context) {
	eventID := ctx.Param("id")

	if !utils.IsUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	limit := 50

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	var afterCreatedAt time.Time
	var afterID string

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeAttendeeCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "invalid cursor", nil)
			return
		}
		afterCreatedAt = cur.CreatedAt
		afterID = cur.ID
	}

	// identity is optional here; private events reject anonymous viewers
	viewerID, _ := middlewares.UserIDFromContext(ctx)
	viewerRole, _ := middlewares.RoleFromContext(ctx)

	cctx, cancel := config.WithTimeout(handlerTimeout)
	defer cancel()

	items, nextCursor, hasMore, err := h.ctrl.ListEventAttendeesPage(
		cctx, eventID, viewerID, viewerRole, limit, afterCreatedAt, afterID,
	)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, admission.ErrNotOwner):
			RespondForbidden(ctx, "Attendees of a private event are visible to its owner only")
		default:
			RespondInternal(ctx, "Could not list attendees")
		}
		return
	}

	body := gin.H{
		"eventId":   eventID,
		"count":     len(items),
		"attendees": items,
		"hasMore":   hasMore,
	}

	if nextCursor != nil {
		body["nextCursor"] = *nextCursor
	}

	ctx.JSON(http.StatusOK, body)
}
