package providers_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(1999), providers.ToCents(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(5000), providers.ToCents(decimal.NewFromInt(50)))
	assert.Equal(t, int64(1), providers.ToCents(decimal.RequireFromString("0.005")))
	assert.True(t, providers.FromCents(1999).Equal(decimal.RequireFromString("19.99")))
}

func TestStripeGateway_NotConfigured(t *testing.T) {
	g := providers.NewStripeGateway("", "", "https://47industries.com")

	_, err := g.Refund(context.Background(), "pi_123", decimal.NewFromInt(10), models.RefundReasonDuplicate, "k")
	assert.ErrorIs(t, err, providers.ErrNotConfigured)

	_, err = g.CreatePaymentLink(context.Background(), &models.Invoice{ID: uuid.New(), Total: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, providers.ErrNotConfigured)
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := providers.NewStripeGateway("", "whsec_test", "")
	payload := []byte(fmt.Sprintf(`{"id": "evt_1", "object": "event", "type": "payment_intent.succeeded", "api_version": %q, "data": {"object": {"id": "pi_1"}}}`, stripe.APIVersion))

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, stripe.EventType("payment_intent.succeeded"), event.Type)

	_, err = g.ParseWebhook(payload, "t=1,v1=bad")
	assert.Error(t, err)
}
