package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/services"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 512 << 10

// WebhookParser verifies and decodes a signed gateway notification.
type WebhookParser interface {
	ParseWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

// WebhookController receives Stripe notifications for invoice checkouts and
// order payments.
type WebhookController struct {
	parser   WebhookParser
	orders   services.OrderService
	invoices services.InvoiceService
	logger   *zap.Logger
}

func NewWebhookController(parser WebhookParser, orders services.OrderService, invoices services.InvoiceService, logger *zap.Logger) *WebhookController {
	return &WebhookController{parser: parser, orders: orders, invoices: invoices, logger: logger}
}

var paymentIntentEvents = map[stripe.EventType]string{
	"payment_intent.processing":     models.PaymentEventProcessing,
	"payment_intent.succeeded":      models.PaymentEventSucceeded,
	"payment_intent.payment_failed": models.PaymentEventFailed,
}

// Stripe handles POST /webhooks/stripe. Events that can never be applied
// are acknowledged so Stripe stops retrying. Edit conflicts and internal
// failures get a non-2xx status so Stripe delivers the event again.
func (wc *WebhookController) Stripe(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			wc.logger.Warn("Stripe webhook body too large", zap.Int64("limit", tooLarge.Limit))
			ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read body"})
		return
	}
	event, err := wc.parser.ParseWebhook(payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		wc.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	wc.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	var svcErr *apperrors.ServiceError
	switch {
	case event.Type == "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			wc.logger.Error("Failed to unmarshal checkout session", zap.Error(err))
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkout session"})
			return
		}
		if sess.Metadata["invoice_id"] == "" {
			wc.logger.Info("Checkout session is not for an invoice", zap.String("session_id", sess.ID))
			break
		}
		svcErr = wc.invoices.MarkPaidFromCheckout(ctx.Request.Context(), sess.ID, sess.Metadata["invoice_id"])
	case paymentIntentEvents[event.Type] != "":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			wc.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment intent"})
			return
		}
		svcErr = wc.orders.HandlePaymentEvent(ctx.Request.Context(), models.PaymentEvent{
			Type:            paymentIntentEvents[event.Type],
			OrderID:         pi.Metadata["order_id"],
			StripePaymentID: pi.ID,
			Amount:          providers.FromCents(pi.Amount),
			Timestamp:       time.Unix(event.Created, 0).UTC(),
		})
	default:
		wc.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}

	if svcErr != nil {
		if svcErr.StatusCode == http.StatusConflict || svcErr.StatusCode >= http.StatusInternalServerError {
			respondError(ctx, svcErr)
			return
		}
		wc.logger.Warn("Webhook event ignored",
			zap.String("event_id", event.ID),
			zap.String("reason", svcErr.Message),
		)
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "received"})
}
