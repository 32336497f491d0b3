package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kylerivers/47-industries-admin/models"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"go.uber.org/zap"
)

// MessagePoller delivers queue message bodies to a handler until ctx ends.
type MessagePoller interface {
	StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error
}

// PaymentEventConsumer feeds queued gateway payment events into the order
// service.
type PaymentEventConsumer struct {
	poller MessagePoller
	orders OrderService
	logger *zap.Logger
}

func NewPaymentEventConsumer(poller MessagePoller, orders OrderService, logger *zap.Logger) *PaymentEventConsumer {
	return &PaymentEventConsumer{poller: poller, orders: orders, logger: logger}
}

func (c *PaymentEventConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting PaymentEventConsumer (SQS)")
	if err := c.poller.StartPolling(ctx, c.Handle); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Payment event consumer stopped", zap.Error(err))
	}
}

// snsEnvelope is the wrapper SNS adds when fanning out to SQS.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// Handle processes one message body. Malformed messages and events for
// unknown orders are dropped; only transient failures are left on the queue.
func (c *PaymentEventConsumer) Handle(ctx context.Context, body string) error {
	payload := body
	var env snsEnvelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Message != "" {
		payload = env.Message
	}

	var event models.PaymentEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Warn("Invalid payment event JSON", zap.Error(err))
		return nil
	}

	if svcErr := c.orders.HandlePaymentEvent(ctx, event); svcErr != nil {
		if svcErr.StatusCode < http.StatusInternalServerError && svcErr.StatusCode != http.StatusConflict {
			c.logger.Warn("Dropping payment event",
				zap.String("event_type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.String("reason", svcErr.Message),
			)
			return nil
		}
		return svcErr
	}
	return nil
}
