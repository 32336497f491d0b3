package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/refund"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeGateway implements PaymentGateway on the Stripe API.
type StripeGateway struct {
	secretKey  string
	webhookKey string
	// baseURL is where checkout redirects the customer afterwards.
	baseURL  string
	currency string
}

func NewStripeGateway(secretKey, webhookKey, baseURL string) *StripeGateway {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	return &StripeGateway{
		secretKey:  secretKey,
		webhookKey: webhookKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		currency:   string(stripe.CurrencyUSD),
	}
}

func (s *StripeGateway) Refund(ctx context.Context, paymentRef string, amount decimal.Decimal, reason models.RefundReason, idempotencyKey string) (RefundReceipt, error) {
	if s.secretKey == "" {
		return RefundReceipt{}, fmt.Errorf("stripe: %w", ErrNotConfigured)
	}

	params := &stripe.RefundParams{
		Amount: stripe.Int64(ToCents(amount)),
		Reason: stripe.String(string(reason)),
	}
	if strings.HasPrefix(paymentRef, "ch_") {
		params.Charge = stripe.String(paymentRef)
	} else {
		params.PaymentIntent = stripe.String(paymentRef)
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey("refund-" + idempotencyKey)
	}

	r, err := refund.New(params)
	if err != nil {
		return RefundReceipt{}, stripeError(err)
	}
	return RefundReceipt{
		ID:     r.ID,
		Amount: FromCents(r.Amount),
		Status: string(r.Status),
	}, nil
}

func (s *StripeGateway) CreatePaymentLink(ctx context.Context, invoice *models.Invoice) (PaymentLink, error) {
	if s.secretKey == "" {
		return PaymentLink{}, fmt.Errorf("stripe: %w", ErrNotConfigured)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.baseURL + "/invoices/" + invoice.ID.String() + "?paid=1"),
		CancelURL:     stripe.String(s.baseURL + "/invoices/" + invoice.ID.String()),
		CustomerEmail: stripe.String(invoice.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Invoice " + invoice.InvoiceNumber),
					},
					UnitAmount: stripe.Int64(ToCents(invoice.Total)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", invoice.ID.String())
	params.AddMetadata("invoice_number", invoice.InvoiceNumber)

	sess, err := session.New(params)
	if err != nil {
		return PaymentLink{}, stripeError(err)
	}
	return PaymentLink{SessionID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header against the payload.
func (s *StripeGateway) ParseWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if s.webhookKey == "" {
		return stripe.Event{}, fmt.Errorf("stripe webhook: %w", ErrNotConfigured)
	}
	return webhook.ConstructEvent(payload, sigHeader, s.webhookKey)
}

// stripeError keeps Stripe's own message, which admins need to see.
func stripeError(err error) error {
	if se, ok := err.(*stripe.Error); ok && se.Msg != "" {
		return fmt.Errorf("stripe: %s", se.Msg)
	}
	return fmt.Errorf("stripe: %w", err)
}

// ToCents converts a dollar amount to the smallest currency unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
