package providers

import (
	"context"
	"errors"
	"time"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned by a collaborator whose credentials are
// missing. The service still boots; only the operations needing it fail.
var ErrNotConfigured = errors.New("not configured")

// ErrRatesExpired means the shipment or rate being purchased is no longer
// offered by the carrier. Fetching fresh rates and retrying fixes it.
var ErrRatesExpired = errors.New("shipping rates expired")

// PaymentGateway is the payment processor used for refunds and invoice
// payment links.
type PaymentGateway interface {
	// Refund returns money against a captured payment. The idempotency key
	// makes a retried call return the original refund instead of a second one.
	Refund(ctx context.Context, paymentRef string, amount decimal.Decimal, reason models.RefundReason, idempotencyKey string) (RefundReceipt, error)

	// CreatePaymentLink opens a hosted checkout for the invoice total.
	CreatePaymentLink(ctx context.Context, invoice *models.Invoice) (PaymentLink, error)
}

type RefundReceipt struct {
	ID     string
	Amount decimal.Decimal
	Status string
}

type PaymentLink struct {
	SessionID string
	URL       string
}

// ShippingProvider defines the carrier aggregator operations used for
// fulfilment.
type ShippingProvider interface {
	// CreateShipment registers the parcel and returns the rates on offer.
	CreateShipment(ctx context.Context, from, to models.Address, parcel models.Parcel) (models.ShipmentQuote, error)

	// PurchaseLabel buys rateID, which must belong to shipmentID.
	PurchaseLabel(ctx context.Context, shipmentID, rateID, idempotencyKey string) (models.PurchasedLabel, error)

	// VoidLabel requests a refund of an unused label.
	VoidLabel(ctx context.Context, transactionID string) (models.VoidStatus, error)
}

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (SendResult, error)
}
