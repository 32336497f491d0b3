package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/repository"
	"github.com/kylerivers/47-industries-admin/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testOrigin = models.Address{Name: "47 Industries", Street1: "1 Factory Rd", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}

func paidOrder(total string) *models.Order {
	return &models.Order{
		OrderNumber:     "ORD-261017-abc123",
		Customer:        models.CustomerSnapshot{Name: "Ada", Email: "ada@example.com"},
		Subtotal:        dec(total),
		Total:           dec(total),
		Status:          models.OrderStatusPaid,
		PaymentStatus:   models.PaymentStatusSucceeded,
		StripePaymentID: strPtr("pi_123"),
		ShippingAddress: models.Address{Name: "Ada", Street1: "2 Main St", City: "Denver", State: "CO", PostalCode: "80202", Country: "US"},
		Items: []models.OrderItem{
			{Name: "Bracket", Quantity: 2, UnitPrice: dec("1.00"), LineTotal: dec("2.00"), WeightLb: dec("1.5")},
		},
	}
}

func newTestOrderService(repo *memOrderRepo, gw *fakeGateway, ship *fakeShipping, pub *recordingPublisher) services.OrderService {
	if pub == nil {
		pub = &recordingPublisher{}
	}
	return services.NewOrderService(repo, gw, ship, pub, nil,
		services.OrderServiceConfig{Origin: testOrigin}, zap.NewNop())
}

func TestRefund_FullAmountByDefault(t *testing.T) {
	order := paidOrder("120.00")
	repo := newMemOrderRepo(order)
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	svc := newTestOrderService(repo, gw, &fakeShipping{}, pub)

	res, svcErr := svc.Refund(context.Background(), order.ID, &models.RefundRequest{Reason: models.RefundReasonRequestedByCustomer}, "key-1")
	require.Nil(t, svcErr)

	require.Len(t, gw.refunds, 1)
	assert.True(t, gw.refunds[0].amount.Equal(dec("120.00")))
	assert.Equal(t, "pi_123", gw.refunds[0].paymentRef)
	assert.Equal(t, "key-1", gw.refunds[0].key)

	stored := repo.stored(order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)
	assert.True(t, stored.Total.Equal(dec("120.00")), "total must not change")
	assert.True(t, stored.RefundedAmount.Equal(dec("120.00")))
	require.NotNil(t, stored.StripeRefundID)
	assert.Equal(t, "re_test_1", *stored.StripeRefundID)
	assert.NotNil(t, stored.RefundedAt)
	assert.Contains(t, stored.AdminNotes, "Refunded $120.00 (requested_by_customer) ref re_test_1")
	assert.True(t, res.AmountRefunded.Equal(dec("120.00")))
	assert.Equal(t, 1, pub.count(models.EventOrderRefunded))
}

func TestRefund_PartialKeepsOrderStatus(t *testing.T) {
	order := paidOrder("120.00")
	repo := newMemOrderRepo(order)
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, nil)

	amount := dec("20")
	_, svcErr := svc.Refund(context.Background(), order.ID, &models.RefundRequest{Amount: &amount, Reason: models.RefundReasonDuplicate}, "")
	require.Nil(t, svcErr)

	stored := repo.stored(order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.True(t, stored.RefundedAmount.Equal(dec("20.00")))
}

func TestRefund_Rejections(t *testing.T) {
	over := dec("150")
	zero := dec("0")
	subCent := dec("0.004")

	tests := []struct {
		name   string
		mutate func(o *models.Order)
		req    models.RefundRequest
		status int
	}{
		{"missing reason", nil, models.RefundRequest{}, http.StatusBadRequest},
		{"unknown reason", nil, models.RefundRequest{Reason: "changed_mind"}, http.StatusBadRequest},
		{"zero amount", nil, models.RefundRequest{Amount: &zero, Reason: models.RefundReasonDuplicate}, http.StatusBadRequest},
		{"amount rounds to zero", nil, models.RefundRequest{Amount: &subCent, Reason: models.RefundReasonDuplicate}, http.StatusBadRequest},
		{"zero total order", func(o *models.Order) { o.Subtotal, o.Total = dec("0"), dec("0") }, models.RefundRequest{Reason: models.RefundReasonDuplicate}, http.StatusUnprocessableEntity},
		{"amount above total", nil, models.RefundRequest{Amount: &over, Reason: models.RefundReasonDuplicate}, http.StatusBadRequest},
		{"already refunded", func(o *models.Order) { o.PaymentStatus = models.PaymentStatusRefunded }, models.RefundRequest{Reason: models.RefundReasonDuplicate}, http.StatusUnprocessableEntity},
		{"payment pending", func(o *models.Order) { o.PaymentStatus = models.PaymentStatusPending }, models.RefundRequest{Reason: models.RefundReasonDuplicate}, http.StatusUnprocessableEntity},
		{"no payment reference", func(o *models.Order) { o.StripePaymentID = nil }, models.RefundRequest{Reason: models.RefundReasonFraudulent}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := paidOrder("120.00")
			if tt.mutate != nil {
				tt.mutate(order)
			}
			repo := newMemOrderRepo(order)
			gw := &fakeGateway{}
			svc := newTestOrderService(repo, gw, &fakeShipping{}, nil)

			req := tt.req
			_, svcErr := svc.Refund(context.Background(), order.ID, &req, "")
			require.NotNil(t, svcErr)
			assert.Equal(t, tt.status, svcErr.StatusCode)
			assert.Empty(t, gw.refunds)
			assert.Zero(t, repo.updates)
		})
	}
}

func TestRefund_GatewayFailureWritesNothing(t *testing.T) {
	order := paidOrder("120.00")
	repo := newMemOrderRepo(order)
	gw := &fakeGateway{refundErr: errors.New("charge ch_1 has already been refunded")}
	svc := newTestOrderService(repo, gw, &fakeShipping{}, nil)

	_, svcErr := svc.Refund(context.Background(), order.ID, &models.RefundRequest{Reason: models.RefundReasonDuplicate}, "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, "charge ch_1 has already been refunded")

	stored := repo.stored(order.ID)
	assert.Equal(t, models.PaymentStatusSucceeded, stored.PaymentStatus)
	assert.Zero(t, repo.updates)
}

func TestRefund_RecordedDespiteConcurrentEdit(t *testing.T) {
	order := paidOrder("120.00")
	repo := newMemOrderRepo(order)
	gw := &fakeGateway{}
	gw.whileRefunding = func() { repo.editElsewhere(order.ID, "customer called") }
	pub := &recordingPublisher{}
	svc := newTestOrderService(repo, gw, &fakeShipping{}, pub)

	res, svcErr := svc.Refund(context.Background(), order.ID, &models.RefundRequest{Reason: models.RefundReasonRequestedByCustomer}, "key-1")
	require.Nil(t, svcErr)
	require.Len(t, gw.refunds, 1)

	stored := repo.stored(order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)
	require.NotNil(t, stored.StripeRefundID)
	assert.Equal(t, "re_test_1", *stored.StripeRefundID)
	assert.Contains(t, stored.AdminNotes, "customer called")
	assert.Contains(t, stored.AdminNotes, "Refunded $120.00")
	assert.Equal(t, stored.Version, res.Order.Version)
	assert.Equal(t, 1, pub.count(models.EventOrderRefunded))
}

func TestRefund_PersistentConflictReported(t *testing.T) {
	order := paidOrder("120.00")
	repo := newMemOrderRepo(order)
	repo.updateErr = repository.ErrVersionConflict
	pub := &recordingPublisher{}
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, pub)

	_, svcErr := svc.Refund(context.Background(), order.ID, &models.RefundRequest{Reason: models.RefundReasonDuplicate}, "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Zero(t, pub.count(models.EventOrderRefunded))
}

func TestRefund_UnknownOrder(t *testing.T) {
	svc := newTestOrderService(newMemOrderRepo(), &fakeGateway{}, &fakeShipping{}, nil)

	_, svcErr := svc.Refund(context.Background(), paidOrder("1").ID, &models.RefundRequest{Reason: models.RefundReasonDuplicate}, "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	assert.Equal(t, "/admin/orders", svcErr.Redirect)
}

func TestUpdateOrder_StaleVersionConflicts(t *testing.T) {
	order := paidOrder("50.00")
	repo := newMemOrderRepo(order)
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, nil)

	shipped := models.OrderStatusShipped
	_, svcErr := svc.Update(context.Background(), order.ID, &models.UpdateOrderRequest{Status: &shipped, Version: intPtr(7)})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, models.OrderStatusPaid, repo.stored(order.ID).Status)
}

func TestUpdateOrder_AppliesPatch(t *testing.T) {
	order := paidOrder("50.00")
	repo := newMemOrderRepo(order)
	pub := &recordingPublisher{}
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, pub)

	shipped := models.OrderStatusShipped
	notes := "left at door"
	updated, svcErr := svc.Update(context.Background(), order.ID, &models.UpdateOrderRequest{
		Status:         &shipped,
		TrackingNumber: strPtr("1Z999"),
		AdminNotes:     &notes,
		Version:        intPtr(1),
	})
	require.Nil(t, svcErr)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)
	assert.Equal(t, "1Z999", *updated.TrackingNumber)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, 1, pub.count(models.EventOrderStatus))
}

func TestUpdateOrder_RefundedPaymentStatusRejected(t *testing.T) {
	order := paidOrder("50.00")
	svc := newTestOrderService(newMemOrderRepo(order), &fakeGateway{}, &fakeShipping{}, nil)

	refunded := models.PaymentStatusRefunded
	_, svcErr := svc.Update(context.Background(), order.ID, &models.UpdateOrderRequest{PaymentStatus: &refunded})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestUpdateOrder_StrictTransitions(t *testing.T) {
	order := paidOrder("50.00")
	order.Status = models.OrderStatusDelivered
	repo := newMemOrderRepo(order)
	svc := services.NewOrderService(repo, &fakeGateway{}, &fakeShipping{}, nil, nil,
		services.OrderServiceConfig{StrictTransitions: true}, zap.NewNop())

	pending := models.OrderStatusPending
	_, svcErr := svc.Update(context.Background(), order.ID, &models.UpdateOrderRequest{Status: &pending})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)

	_, svcErr = svc.Update(context.Background(), order.ID, &models.UpdateOrderRequest{Status: &pending, Force: true})
	assert.Nil(t, svcErr)
}

func TestCreateOrder_ComputesTotals(t *testing.T) {
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, nil)

	order, svcErr := svc.Create(context.Background(), &models.CreateOrderRequest{
		Customer: models.CustomerSnapshot{Name: "Ada", Email: "ada@example.com"},
		Items: []models.CreateOrderItem{
			{Name: "Bracket", Quantity: 3, UnitPrice: dec("4.99")},
			{Name: "Hinge", Quantity: 1, UnitPrice: dec("10")},
		},
		Shipping: dec("5"),
		Tax:      dec("2.10"),
		Discount: dec("1"),
	})
	require.Nil(t, svcErr)
	assert.True(t, order.Subtotal.Equal(dec("24.97")))
	assert.True(t, order.Total.Equal(dec("31.07")))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Regexp(t, `^ORD-\d{6}-[0-9a-f]{6}$`, order.OrderNumber)
}

func TestHandlePaymentEvent_Idempotent(t *testing.T) {
	order := paidOrder("30.00")
	order.Status = models.OrderStatusPending
	order.PaymentStatus = models.PaymentStatusPending
	repo := newMemOrderRepo(order)
	pub := &recordingPublisher{}
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, pub)

	event := models.PaymentEvent{Type: models.PaymentEventSucceeded, StripePaymentID: "pi_123"}
	require.Nil(t, svc.HandlePaymentEvent(context.Background(), event))
	require.Nil(t, svc.HandlePaymentEvent(context.Background(), event))

	stored := repo.stored(order.ID)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, models.PaymentStatusSucceeded, stored.PaymentStatus)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, 1, pub.count(models.EventOrderStatus))
}

func TestHandlePaymentEvent_NeverLeavesRefunded(t *testing.T) {
	order := paidOrder("30.00")
	order.PaymentStatus = models.PaymentStatusRefunded
	order.Status = models.OrderStatusRefunded
	repo := newMemOrderRepo(order)
	svc := newTestOrderService(repo, &fakeGateway{}, &fakeShipping{}, nil)

	for _, typ := range []string{models.PaymentEventSucceeded, models.PaymentEventFailed, models.PaymentEventProcessing} {
		require.Nil(t, svc.HandlePaymentEvent(context.Background(), models.PaymentEvent{Type: typ, OrderID: order.ID.String()}))
	}
	stored := repo.stored(order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Zero(t, repo.updates)
}

func TestHandlePaymentEvent_UnknownType(t *testing.T) {
	svc := newTestOrderService(newMemOrderRepo(), &fakeGateway{}, &fakeShipping{}, nil)
	svcErr := svc.HandlePaymentEvent(context.Background(), models.PaymentEvent{Type: "payment_exploded"})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestRequestShippingRates_SortsCheapestFirst(t *testing.T) {
	order := paidOrder("30.00")
	repo := newMemOrderRepo(order)
	ship := &fakeShipping{quote: models.ShipmentQuote{ShipmentID: "shp_1", Rates: []models.ShippingRate{
		{RateID: "r_exp", Amount: dec("25.10")},
		{RateID: "r_cheap", Amount: dec("6.20")},
		{RateID: "r_mid", Amount: dec("9.99")},
	}}}
	svc := newTestOrderService(repo, &fakeGateway{}, ship, nil)

	res, svcErr := svc.RequestShippingRates(context.Background(), order.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, "shp_1", res.ShipmentID)
	require.Len(t, res.Rates, 3)
	assert.Equal(t, []string{"r_cheap", "r_mid", "r_exp"}, []string{res.Rates[0].RateID, res.Rates[1].RateID, res.Rates[2].RateID})
	assert.True(t, ship.lastParcel.Weight.Equal(dec("3")))
	assert.Equal(t, testOrigin, res.FromAddress)
}

func TestRequestShippingRates_NoAddress(t *testing.T) {
	order := paidOrder("30.00")
	order.ShippingAddress = models.Address{}
	ship := &fakeShipping{}
	svc := newTestOrderService(newMemOrderRepo(order), &fakeGateway{}, ship, nil)

	_, svcErr := svc.RequestShippingRates(context.Background(), order.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
}

func TestPurchaseLabel_VoidThenRepurchase(t *testing.T) {
	order := paidOrder("30.00")
	repo := newMemOrderRepo(order)
	ship := &fakeShipping{}
	pub := &recordingPublisher{}
	svc := newTestOrderService(repo, &fakeGateway{}, ship, pub)
	ctx := context.Background()

	first, svcErr := svc.PurchaseLabel(ctx, order.ID, &models.PurchaseLabelRequest{ShipmentID: "shp_1", RateID: "rate_a"}, "key-a")
	require.Nil(t, svcErr)
	assert.Equal(t, "https://labels.test/rate_a.pdf", first.LabelURL)
	assert.Equal(t, first.TrackingNumber, *repo.stored(order.ID).TrackingNumber)

	_, svcErr = svc.PurchaseLabel(ctx, order.ID, &models.PurchaseLabelRequest{ShipmentID: "shp_1", RateID: "rate_b"}, "key-b")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, 1, ship.purchases)

	voided, svcErr := svc.VoidLabel(ctx, order.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, models.LabelStatusVoided, voided.Label.Status)
	assert.Equal(t, models.VoidStatusQueued, voided.VoidStatus)
	assert.Nil(t, repo.stored(order.ID).TrackingNumber)

	second, svcErr := svc.PurchaseLabel(ctx, order.ID, &models.PurchaseLabelRequest{ShipmentID: "shp_2", RateID: "rate_c"}, "key-c")
	require.Nil(t, svcErr)
	assert.NotEqual(t, first.TrackingNumber, second.TrackingNumber)

	stored := repo.stored(order.ID)
	assert.Len(t, stored.Labels, 2)
	assert.Equal(t, "rate_c", stored.ActiveLabel().ProviderRateID)
	assert.Equal(t, 2, pub.count(models.EventLabelPurchased))
	assert.Equal(t, 1, pub.count(models.EventLabelVoided))
}

func TestPurchaseLabel_ExpiredRatesRetryable(t *testing.T) {
	order := paidOrder("30.00")
	repo := newMemOrderRepo(order)
	ship := &fakeShipping{purchaseErr: providers.ErrRatesExpired}
	svc := newTestOrderService(repo, &fakeGateway{}, ship, nil)

	_, svcErr := svc.PurchaseLabel(context.Background(), order.ID, &models.PurchaseLabelRequest{ShipmentID: "shp_1", RateID: "old"}, "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.True(t, svcErr.Retryable)
	assert.Empty(t, repo.stored(order.ID).Labels)
}

func TestPurchaseLabel_RecordedDespiteConcurrentEdit(t *testing.T) {
	order := paidOrder("30.00")
	repo := newMemOrderRepo(order)
	ship := &fakeShipping{}
	ship.whileCalling = func() { repo.editElsewhere(order.ID, "gift wrap") }
	svc := newTestOrderService(repo, &fakeGateway{}, ship, nil)

	res, svcErr := svc.PurchaseLabel(context.Background(), order.ID, &models.PurchaseLabelRequest{ShipmentID: "shp_1", RateID: "rate_a"}, "key-a")
	require.Nil(t, svcErr)
	assert.Equal(t, 1, ship.purchases)

	stored := repo.stored(order.ID)
	require.Len(t, stored.Labels, 1)
	require.NotNil(t, stored.ActiveLabel())
	assert.Equal(t, "tx_rate_a", stored.ActiveLabel().ProviderTransactionID)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, res.TrackingNumber, *stored.TrackingNumber)
	assert.Contains(t, stored.AdminNotes, "gift wrap")
}

func TestVoidLabel_RecordedDespiteConcurrentEdit(t *testing.T) {
	order := paidOrder("30.00")
	repo := newMemOrderRepo(order)
	ship := &fakeShipping{}
	svc := newTestOrderService(repo, &fakeGateway{}, ship, nil)
	_, svcErr := svc.PurchaseLabel(context.Background(), order.ID, &models.PurchaseLabelRequest{ShipmentID: "s", RateID: "r"}, "")
	require.Nil(t, svcErr)

	ship.whileCalling = func() { repo.editElsewhere(order.ID, "address confirmed") }
	res, svcErr := svc.VoidLabel(context.Background(), order.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, models.LabelStatusVoided, res.Label.Status)

	stored := repo.stored(order.ID)
	assert.Nil(t, stored.ActiveLabel())
	assert.Nil(t, stored.TrackingNumber)
	assert.Contains(t, stored.AdminNotes, "address confirmed")
}

func TestVoidLabel_NoActiveLabel(t *testing.T) {
	order := paidOrder("30.00")
	ship := &fakeShipping{}
	svc := newTestOrderService(newMemOrderRepo(order), &fakeGateway{}, ship, nil)

	_, svcErr := svc.VoidLabel(context.Background(), order.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
	assert.Zero(t, ship.voids)
}

func TestVoidLabel_ProviderRejects(t *testing.T) {
	order := paidOrder("30.00")
	repo := newMemOrderRepo(order)
	ship := &fakeShipping{}
	svc := newTestOrderService(repo, &fakeGateway{}, ship, nil)
	_, svcErr := svc.PurchaseLabel(context.Background(), order.ID, &models.PurchaseLabelRequest{ShipmentID: "s", RateID: "r"}, "")
	require.Nil(t, svcErr)

	ship.voidStatus = models.VoidStatusError
	_, svcErr = svc.VoidLabel(context.Background(), order.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
	assert.NotNil(t, repo.stored(order.ID).ActiveLabel())
}
