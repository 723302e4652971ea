package events

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "clinicq/pkg/errors"
	httputil "clinicq/pkg/http"
	"clinicq/pkg/kafka"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
	"clinicq/pkg/model"
)

const PaymentSucceededType = "payment.succeeded"

// PaymentSucceeded is the payload of a successful payment for a locked slot.
type PaymentSucceeded struct {
	LockID           string               `json:"lockId"`
	PaymentReference string               `json:"paymentReference"`
	BookingDetails   model.BookingDetails `json:"bookingDetails"`
}

// Confirmer is the booking side of a payment: it turns the paid lock into a
// booking and finds the booking a lock already produced.
type Confirmer interface {
	ConfirmBooking(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)
	GetByLockID(ctx context.Context, lockID string) (*model.Booking, error)
}

type PaymentHandler struct {
	confirmer Confirmer
	log       *logger.Logger
}

func NewPaymentHandler(confirmer Confirmer, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{confirmer: confirmer, log: log.Component("payments")}
}

// Confirm books the paid lock. A payment delivered again after its booking
// exists returns that booking instead of failing.
func (h *PaymentHandler) Confirm(ctx context.Context, evt PaymentSucceeded) (*model.Booking, error) {
	details := evt.BookingDetails
	if details.PaymentReference == "" {
		details.PaymentReference = evt.PaymentReference
	}

	booking, err := h.confirmer.ConfirmBooking(ctx, &model.ConfirmRequest{
		LockID:         evt.LockID,
		BookingDetails: details,
	})
	if err == nil {
		return booking, nil
	}

	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		if existing, lookupErr := h.confirmer.GetByLockID(ctx, evt.LockID); lookupErr == nil {
			h.log.Info("Payment already applied", "lock_id", evt.LockID, "booking_id", existing.ID)
			return existing, nil
		}
	}
	return nil, err
}

// Handle is the kafka.MessageHandler for the payments topic. Storage failures
// are retried; rejected payments go to the dead letter topic.
func (h *PaymentHandler) Handle(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != "" && eventType != PaymentSucceededType {
		h.log.Debug("Ignoring payment event", "event_type", eventType, "offset", msg.Offset)
		return nil
	}

	var evt PaymentSucceeded
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewBusinessError("malformed payment event", err)
	}
	if evt.LockID == "" {
		return kafka.NewBusinessError("payment event without lockId", nil)
	}

	if _, err := h.Confirm(ctx, evt); err != nil {
		return classify(evt, err)
	}
	return nil
}

func classify(evt PaymentSucceeded, err error) error {
	appErr := apperrors.AsAppError(err)
	switch appErr.Code {
	case apperrors.CodeStorageUnavailable, apperrors.CodeInternal, apperrors.CodeTimeout, apperrors.CodeUnavailable:
		return kafka.NewTransientError("booking storage unavailable", err).
			WithDetail("lock_id", evt.LockID)
	default:
		return kafka.NewBusinessError("payment could not be applied", err).
			WithDetail("lock_id", evt.LockID).
			WithDetail("code", appErr.Code).
			WithDetail("payment_reference", evt.PaymentReference)
	}
}

// PaymentWebhookHandler receives the same payment result over HTTP, signed
// with the shared webhook secret.
type PaymentWebhookHandler struct {
	payments *PaymentHandler
	secret   string
	log      *logger.Logger
}

func NewPaymentWebhookHandler(payments *PaymentHandler, secret string, log *logger.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		payments: payments,
		secret:   secret,
		log:      log,
	}
}

func (h *PaymentWebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var evt PaymentSucceeded
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Webhook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	booking, err := h.payments.Confirm(r.Context(), evt)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Webhook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentWebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.Handler(http.MethodPost, "/api/v1/payments/webhook",
		middleware.SignatureVerification(h.secret, h.log)(http.HandlerFunc(h.Webhook)))
}
