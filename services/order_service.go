package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/events"
	"github.com/kylerivers/47-industries-admin/models"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService defines the admin order workflow.
type OrderService interface {
	List(ctx context.Context, filter models.OrderFilter, page, limit int) ([]models.Order, int64, *apperrors.ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, *apperrors.ServiceError)
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, *apperrors.ServiceError)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateOrderRequest) (*models.Order, *apperrors.ServiceError)
	Refund(ctx context.Context, id uuid.UUID, req *models.RefundRequest, idempotencyKey string) (*models.RefundResult, *apperrors.ServiceError)
	HandlePaymentEvent(ctx context.Context, event models.PaymentEvent) *apperrors.ServiceError
	RequestShippingRates(ctx context.Context, id uuid.UUID) (*models.ShippingRatesResult, *apperrors.ServiceError)
	PurchaseLabel(ctx context.Context, id uuid.UUID, req *models.PurchaseLabelRequest, idempotencyKey string) (*models.PurchaseLabelResult, *apperrors.ServiceError)
	VoidLabel(ctx context.Context, id uuid.UUID) (*models.VoidLabelResult, *apperrors.ServiceError)
}

type OrderServiceConfig struct {
	// StrictTransitions enforces the status tables unless a patch sets Force.
	StrictTransitions bool
	// Origin is the ship-from address.
	Origin models.Address
}

type orderServiceImpl struct {
	repo     repository.OrderRepository
	payments providers.PaymentGateway
	shipping providers.ShippingProvider
	cfg      OrderServiceConfig
	now      func() time.Time
	sideEffects
}

func NewOrderService(
	repo repository.OrderRepository,
	payments providers.PaymentGateway,
	shipping providers.ShippingProvider,
	publisher events.Publisher,
	metrics aws_pkg.MetricsRecorder,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		repo:        repo,
		payments:    payments,
		shipping:    shipping,
		cfg:         cfg,
		now:         time.Now,
		sideEffects: newSideEffects(publisher, metrics, logger),
	}
}

func (s *orderServiceImpl) List(ctx context.Context, filter models.OrderFilter, page, limit int) ([]models.Order, int64, *apperrors.ServiceError) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.Validation("status", "unknown order status "+string(filter.Status))
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, 0, apperrors.Validation("payment_status", "unknown payment status "+string(filter.PaymentStatus))
	}
	page, limit = normalizePage(page, limit)
	orders, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, 0, apperrors.Internal("failed to list orders", err)
	}
	return orders, total, nil
}

func (s *orderServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Order, *apperrors.ServiceError) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}
	return order, nil
}

// Create records an order from checkout or manual entry. Money fields are
// recomputed from the items so the stored totals always add up.
func (s *orderServiceImpl) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, *apperrors.ServiceError) {
	if strings.TrimSpace(req.Customer.Email) == "" {
		return nil, apperrors.Validation("customer.email", "customer email is required")
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("items", "at least one item is required")
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{{"tax", req.Tax}, {"shipping", req.Shipping}, {"discount", req.Discount}} {
		if f.value.IsNegative() {
			return nil, apperrors.Validation(f.name, f.name+" cannot be negative")
		}
	}

	paymentStatus := models.PaymentStatusPending
	if req.PaymentStatus != "" {
		if !req.PaymentStatus.Valid() || req.PaymentStatus == models.PaymentStatusRefunded {
			return nil, apperrors.Validation("payment_status", "invalid initial payment status "+string(req.PaymentStatus))
		}
		paymentStatus = req.PaymentStatus
	}

	order := &models.Order{
		OrderNumber:     humanNumber("ORD-", s.now()),
		Customer:        req.Customer,
		Tax:             req.Tax.Round(2),
		Shipping:        req.Shipping.Round(2),
		Discount:        req.Discount.Round(2),
		Status:          models.OrderStatusPending,
		PaymentStatus:   paymentStatus,
		StripePaymentID: req.StripePaymentID,
	}
	if req.ShippingAddress != nil {
		order.ShippingAddress = *req.ShippingAddress
	}
	if paymentStatus == models.PaymentStatusSucceeded {
		order.Status = models.OrderStatusPaid
	}

	subtotal := decimal.Zero
	for i, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if in.UnitPrice.IsNegative() {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d].unit_price", i), "unit price cannot be negative")
		}
		item := models.OrderItem{
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice.Round(2),
			WeightLb:  in.WeightLb,
		}
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		subtotal = subtotal.Add(item.LineTotal)
		order.Items = append(order.Items, item)
	}
	order.Subtotal = subtotal
	order.Total = models.ComputeTotal(order.Subtotal, order.Discount, order.Shipping, order.Tax)
	if order.Total.IsNegative() {
		return nil, apperrors.Validation("discount", "discount exceeds the order value")
	}
	if err := order.Validate(); err != nil {
		return nil, apperrors.Validation("items", err.Error())
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, apperrors.Internal("failed to save order", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

func (s *orderServiceImpl) checkOrderTransition(from, to models.OrderStatus, force bool) *apperrors.ServiceError {
	if !s.cfg.StrictTransitions || force || from.CanTransitionTo(to) {
		return nil
	}
	return apperrors.Precondition(fmt.Sprintf("cannot move order from %s to %s", from, to))
}

func (s *orderServiceImpl) checkPaymentTransition(from, to models.PaymentStatus, force bool) *apperrors.ServiceError {
	if !s.cfg.StrictTransitions || force || from.CanTransitionTo(to) {
		return nil
	}
	return apperrors.Precondition(fmt.Sprintf("cannot move payment from %s to %s", from, to))
}

// Update merges a partial patch into the order.
func (s *orderServiceImpl) Update(ctx context.Context, id uuid.UUID, req *models.UpdateOrderRequest) (*models.Order, *apperrors.ServiceError) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown order status "+string(*req.Status))
	}
	if req.PaymentStatus != nil {
		if !req.PaymentStatus.Valid() {
			return nil, apperrors.Validation("payment_status", "unknown payment status "+string(*req.PaymentStatus))
		}
		if *req.PaymentStatus == models.PaymentStatusRefunded {
			return nil, apperrors.Validation("payment_status", "payment status REFUNDED can only be set by issuing a refund")
		}
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}
	if svcErr := checkExpectedVersion("order", order.Version, req.Version); svcErr != nil {
		return nil, svcErr
	}

	prevStatus, prevPayment := order.Status, order.PaymentStatus
	if req.Status != nil {
		if svcErr := s.checkOrderTransition(order.Status, *req.Status, req.Force); svcErr != nil {
			return nil, svcErr
		}
		order.Status = *req.Status
	}
	if req.PaymentStatus != nil {
		if svcErr := s.checkPaymentTransition(order.PaymentStatus, *req.PaymentStatus, req.Force); svcErr != nil {
			return nil, svcErr
		}
		order.PaymentStatus = *req.PaymentStatus
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = emptyToNil(*req.TrackingNumber)
	}
	if req.Carrier != nil {
		order.Carrier = emptyToNil(*req.Carrier)
	}
	if req.AdminNotes != nil {
		order.AdminNotes = *req.AdminNotes
	}

	if err := s.repo.Update(ctx, order); err != nil {
		s.logger.Warn("Failed to update order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, fromRepoErr(err, "order", ordersListPath)
	}

	if order.Status != prevStatus || order.PaymentStatus != prevPayment {
		s.logger.Info("Order status changed",
			zap.String("order_id", order.ID.String()),
			zap.String("from", string(prevStatus)),
			zap.String("to", string(order.Status)),
			zap.String("payment_status", string(order.PaymentStatus)),
		)
		s.publishStatus(ctx, order)
	}
	return order, nil
}

// Refund returns money through the payment gateway, then records it. The
// order total is never altered.
func (s *orderServiceImpl) Refund(ctx context.Context, id uuid.UUID, req *models.RefundRequest, idempotencyKey string) (*models.RefundResult, *apperrors.ServiceError) {
	if req.Reason == "" {
		return nil, apperrors.Validation("reason", "refund reason is required")
	}
	if !req.Reason.Valid() {
		return nil, apperrors.Validation("reason", "reason must be one of requested_by_customer, duplicate, fraudulent")
	}
	var requested *decimal.Decimal
	if req.Amount != nil {
		rounded := req.Amount.Round(2)
		if !rounded.IsPositive() {
			return nil, apperrors.Validation("amount", "amount must be at least $0.01")
		}
		requested = &rounded
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}

	amount := order.Total.Sub(order.RefundedAmount)
	if requested != nil {
		amount = *requested
		if amount.GreaterThan(order.Total) {
			return nil, apperrors.Validation("amount", fmt.Sprintf("amount cannot exceed the order total of $%s", order.Total.StringFixed(2)))
		}
	}

	switch {
	case order.PaymentStatus == models.PaymentStatusRefunded:
		return nil, apperrors.Precondition("order has already been refunded")
	case order.PaymentStatus != models.PaymentStatusSucceeded:
		return nil, apperrors.Precondition(fmt.Sprintf("only orders with a succeeded payment can be refunded (payment status is %s)", order.PaymentStatus))
	case order.StripePaymentID == nil || *order.StripePaymentID == "":
		return nil, apperrors.Precondition("order has no payment reference to refund")
	case !amount.IsPositive():
		return nil, apperrors.Precondition("order total is $0.00; there is nothing to refund")
	}

	receipt, err := s.payments.Refund(ctx, *order.StripePaymentID, amount, req.Reason, idempotencyKey)
	if err != nil {
		s.logger.Error("Refund failed",
			zap.String("order_id", order.ID.String()),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err),
		)
		return nil, fromProviderErr("refund failed", err)
	}

	now := s.now().UTC()
	full := amount.Equal(order.Total)
	err = recordOutcome(func(fresh bool) error {
		if fresh {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			order = current
			if order.StripeRefundID != nil && *order.StripeRefundID == receipt.ID {
				return nil
			}
		}
		order.PaymentStatus = models.PaymentStatusRefunded
		order.RefundedAmount = amount
		order.RefundedAt = &now
		order.StripeRefundID = &receipt.ID
		if full {
			order.Status = models.OrderStatusRefunded
		}
		order.AdminNotes = appendNote(order.AdminNotes,
			fmt.Sprintf("[%s] Refunded $%s (%s) ref %s", now.Format(time.RFC3339), amount.StringFixed(2), req.Reason, receipt.ID))
		return s.repo.Update(ctx, order)
	})
	if err != nil {
		s.logger.Error("Refund issued but order update failed",
			zap.String("order_id", id.String()),
			zap.String("refund_id", receipt.ID),
			zap.Error(err),
		)
		return nil, fromRepoErr(err, "order", ordersListPath)
	}

	s.logger.Info("Order refunded",
		zap.String("order_id", order.ID.String()),
		zap.String("refund_id", receipt.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Bool("full", full),
	)
	s.count(ctx, aws_pkg.MetricOrdersRefunded, map[string]string{"reason": string(req.Reason)})
	s.publishEvent(ctx, models.EventOrderRefunded, order.ID.String(), models.OrderRefundedEvent{
		EventType:   models.EventOrderRefunded,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Amount:      amount.StringFixed(2),
		Reason:      string(req.Reason),
		RefundID:    receipt.ID,
		Full:        full,
		Timestamp:   now,
	})

	return &models.RefundResult{Order: order, AmountRefunded: amount, RefundID: receipt.ID}, nil
}

const paymentEventAttempts = 3

// HandlePaymentEvent applies a gateway payment notification. Replays and
// out-of-order deliveries are no-ops; a refunded order never moves back.
func (s *orderServiceImpl) HandlePaymentEvent(ctx context.Context, event models.PaymentEvent) *apperrors.ServiceError {
	switch event.Type {
	case models.PaymentEventProcessing, models.PaymentEventSucceeded, models.PaymentEventFailed:
	default:
		return apperrors.Validation("type", "unsupported payment event "+event.Type)
	}

	for attempt := 1; ; attempt++ {
		order, svcErr := s.findForPaymentEvent(ctx, event)
		if svcErr != nil {
			return svcErr
		}
		if !applyPaymentEvent(order, event.Type) {
			s.logger.Info("Payment event already applied",
				zap.String("order_id", order.ID.String()),
				zap.String("event_type", event.Type),
				zap.String("payment_status", string(order.PaymentStatus)),
			)
			return nil
		}

		err := s.repo.Update(ctx, order)
		if err == nil {
			s.logger.Info("Payment event applied",
				zap.String("order_id", order.ID.String()),
				zap.String("event_type", event.Type),
				zap.String("status", string(order.Status)),
				zap.String("payment_status", string(order.PaymentStatus)),
			)
			s.count(ctx, aws_pkg.MetricPaymentEvents, map[string]string{"type": event.Type})
			s.publishStatus(ctx, order)
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) || attempt >= paymentEventAttempts {
			return fromRepoErr(err, "order", ordersListPath)
		}
	}
}

func (s *orderServiceImpl) findForPaymentEvent(ctx context.Context, event models.PaymentEvent) (*models.Order, *apperrors.ServiceError) {
	if event.StripePaymentID != "" {
		order, err := s.repo.FindByPaymentID(ctx, event.StripePaymentID)
		if err == nil {
			return order, nil
		}
		if !repository.IsNotFound(err) || event.OrderID == "" {
			return nil, fromRepoErr(err, "order", ordersListPath)
		}
	}
	id, err := uuid.Parse(event.OrderID)
	if err != nil {
		return nil, apperrors.Validation("order_id", "payment event does not reference an order")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}
	return order, nil
}

// applyPaymentEvent mutates order and reports whether anything changed.
func applyPaymentEvent(order *models.Order, eventType string) bool {
	before := *order
	switch eventType {
	case models.PaymentEventProcessing:
		if order.PaymentStatus == models.PaymentStatusPending || order.PaymentStatus == models.PaymentStatusFailed {
			order.PaymentStatus = models.PaymentStatusProcessing
		}
	case models.PaymentEventSucceeded:
		if order.PaymentStatus == models.PaymentStatusRefunded {
			return false
		}
		order.PaymentStatus = models.PaymentStatusSucceeded
		if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusProcessing {
			order.Status = models.OrderStatusPaid
		}
	case models.PaymentEventFailed:
		if order.PaymentStatus == models.PaymentStatusPending || order.PaymentStatus == models.PaymentStatusProcessing {
			order.PaymentStatus = models.PaymentStatusFailed
		}
	}
	return order.Status != before.Status || order.PaymentStatus != before.PaymentStatus
}

// RequestShippingRates quotes the order's parcel. Nothing is persisted.
func (s *orderServiceImpl) RequestShippingRates(ctx context.Context, id uuid.UUID) (*models.ShippingRatesResult, *apperrors.ServiceError) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}
	if order.ShippingAddress.IsZero() {
		return nil, apperrors.Precondition("order has no shipping address")
	}
	if s.cfg.Origin.IsZero() {
		return nil, apperrors.Precondition("ship-from address is not configured")
	}

	parcel := ParcelFor(order.Items)
	quote, err := s.shipping.CreateShipment(ctx, s.cfg.Origin, order.ShippingAddress, parcel)
	if err != nil {
		s.logger.Error("CreateShipment failed", zap.String("order_id", id.String()), zap.Error(err))
		return nil, fromProviderErr("failed to retrieve shipping rates", err)
	}

	rates := append([]models.ShippingRate(nil), quote.Rates...)
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Amount.LessThan(rates[j].Amount) })

	return &models.ShippingRatesResult{
		Rates:       rates,
		ShipmentID:  quote.ShipmentID,
		Parcel:      parcel,
		FromAddress: s.cfg.Origin,
		ToAddress:   order.ShippingAddress,
	}, nil
}

// PurchaseLabel buys the selected rate and stores the label with the
// tracking details written back onto the order.
func (s *orderServiceImpl) PurchaseLabel(ctx context.Context, id uuid.UUID, req *models.PurchaseLabelRequest, idempotencyKey string) (*models.PurchaseLabelResult, *apperrors.ServiceError) {
	if strings.TrimSpace(req.ShipmentID) == "" {
		return nil, apperrors.Validation("shipment_id", "shipment_id is required")
	}
	if strings.TrimSpace(req.RateID) == "" {
		return nil, apperrors.Validation("rate_id", "rate_id is required")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}
	if order.ShippingAddress.IsZero() && (req.ToAddress == nil || req.ToAddress.IsZero()) {
		return nil, apperrors.Precondition("order has no shipping address")
	}
	if order.ActiveLabel() != nil {
		return nil, apperrors.Conflict("order already has an active shipping label; void it first")
	}

	purchased, err := s.shipping.PurchaseLabel(ctx, req.ShipmentID, req.RateID, idempotencyKey)
	if err != nil {
		s.logger.Error("PurchaseLabel failed",
			zap.String("order_id", id.String()),
			zap.String("shipment_id", req.ShipmentID),
			zap.Error(err),
		)
		return nil, fromProviderErr("label purchase failed", err)
	}

	var label *models.ShippingLabel
	err = recordOutcome(func(fresh bool) error {
		if fresh {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			order = current
			if active := order.ActiveLabel(); active != nil && active.ProviderTransactionID == purchased.TransactionID {
				label = active
				return nil
			}
		}
		label = &models.ShippingLabel{
			Carrier:               purchased.Carrier,
			Service:               purchased.Service,
			TrackingNumber:        purchased.TrackingNumber,
			LabelCost:             purchased.Amount,
			TotalCost:             purchased.Amount,
			LabelURL:              purchased.LabelURL,
			Status:                models.LabelStatusPurchased,
			ProviderShipmentID:    req.ShipmentID,
			ProviderRateID:        req.RateID,
			ProviderTransactionID: purchased.TransactionID,
			IdempotencyKey:        idempotencyKey,
		}
		return s.repo.AttachLabel(ctx, order, label)
	})
	if err != nil {
		s.logger.Error("Label purchased but not recorded",
			zap.String("order_id", id.String()),
			zap.String("transaction_id", purchased.TransactionID),
			zap.Error(err),
		)
		if errors.Is(err, repository.ErrActiveLabelExists) {
			return nil, apperrors.Conflict("order already has an active shipping label; void it first")
		}
		return nil, fromRepoErr(err, "order", ordersListPath)
	}

	s.logger.Info("Shipping label purchased",
		zap.String("order_id", id.String()),
		zap.String("carrier", label.Carrier),
		zap.String("tracking_number", label.TrackingNumber),
	)
	s.count(ctx, aws_pkg.MetricLabelsPurchased, map[string]string{"carrier": label.Carrier})
	s.publishEvent(ctx, models.EventLabelPurchased, order.ID.String(), models.LabelEvent{
		EventType:      models.EventLabelPurchased,
		OrderID:        order.ID.String(),
		LabelID:        label.ID.String(),
		Carrier:        label.Carrier,
		TrackingNumber: label.TrackingNumber,
		LabelURL:       label.LabelURL,
		Timestamp:      s.now().UTC(),
	})

	return &models.PurchaseLabelResult{
		Label:          label,
		TrackingNumber: label.TrackingNumber,
		LabelURL:       label.LabelURL,
	}, nil
}

// VoidLabel voids the active label. Once the provider accepts the request
// the label is marked VOIDED whether or not postage is refunded.
func (s *orderServiceImpl) VoidLabel(ctx context.Context, id uuid.UUID) (*models.VoidLabelResult, *apperrors.ServiceError) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "order", ordersListPath)
	}
	active := order.ActiveLabel()
	if active == nil {
		return nil, apperrors.Precondition("order has no active shipping label")
	}

	status, err := s.shipping.VoidLabel(ctx, active.ProviderTransactionID)
	if err != nil {
		s.logger.Error("VoidLabel failed", zap.String("order_id", id.String()), zap.Error(err))
		return nil, fromProviderErr("failed to void label", err)
	}
	if !status.Accepted() {
		return nil, apperrors.Provider("failed to void label", fmt.Errorf("provider rejected the void request (status %s)", status))
	}

	label := *active
	err = recordOutcome(func(fresh bool) error {
		if fresh {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			order = current
			for _, l := range order.Labels {
				if l.ID == label.ID {
					label = l
				}
			}
			if label.Status == models.LabelStatusVoided {
				return nil
			}
		}
		return s.repo.VoidLabel(ctx, order, &label)
	})
	if err != nil {
		s.logger.Error("Label voided at provider but not recorded",
			zap.String("order_id", id.String()),
			zap.String("label_id", label.ID.String()),
			zap.Error(err),
		)
		return nil, fromRepoErr(err, "order", ordersListPath)
	}

	s.logger.Info("Shipping label voided",
		zap.String("order_id", id.String()),
		zap.String("label_id", label.ID.String()),
		zap.String("void_status", string(status)),
	)
	s.count(ctx, aws_pkg.MetricLabelsVoided, map[string]string{"carrier": label.Carrier})
	s.publishEvent(ctx, models.EventLabelVoided, order.ID.String(), models.LabelEvent{
		EventType:      models.EventLabelVoided,
		OrderID:        order.ID.String(),
		LabelID:        label.ID.String(),
		Carrier:        label.Carrier,
		TrackingNumber: label.TrackingNumber,
		Timestamp:      s.now().UTC(),
	})

	return &models.VoidLabelResult{Label: &label, VoidStatus: status}, nil
}

func (s *orderServiceImpl) publishStatus(ctx context.Context, order *models.Order) {
	s.publishEvent(ctx, models.EventOrderStatus, order.ID.String(), models.OrderStatusEvent{
		EventType:     models.EventOrderStatus,
		OrderID:       order.ID.String(),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Timestamp:     s.now().UTC(),
	})
}

func appendNote(notes, line string) string {
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return strings.TrimRight(notes, "\n") + "\n" + line
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
