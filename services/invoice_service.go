package services

import (
	"context"
	"errors"
	"fmt"
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

// InvoiceService issues and tracks invoices for inquiries and orders.
type InvoiceService interface {
	Generate(ctx context.Context, req *models.GenerateInvoiceRequest) (*models.Invoice, *apperrors.ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.Invoice, *apperrors.ServiceError)
	ListByInquiry(ctx context.Context, inquiryID uuid.UUID) ([]models.Invoice, *apperrors.ServiceError)
	Send(ctx context.Context, id uuid.UUID) (*models.Invoice, *apperrors.ServiceError)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvoiceStatus) (*models.Invoice, *apperrors.ServiceError)
	MarkPaidFromCheckout(ctx context.Context, sessionID, invoiceID string) *apperrors.ServiceError
}

type InvoiceServiceConfig struct {
	DefaultTaxRate decimal.Decimal
}

type invoiceServiceImpl struct {
	repo      repository.InvoiceRepository
	inquiries repository.InquiryRepository
	orders    repository.OrderRepository
	payments  providers.PaymentGateway
	mailer    providers.EmailSender
	cfg       InvoiceServiceConfig
	now       func() time.Time
	sideEffects
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	inquiries repository.InquiryRepository,
	orders repository.OrderRepository,
	payments providers.PaymentGateway,
	mailer providers.EmailSender,
	publisher events.Publisher,
	metrics aws_pkg.MetricsRecorder,
	cfg InvoiceServiceConfig,
	logger *zap.Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		repo:        repo,
		inquiries:   inquiries,
		orders:      orders,
		payments:    payments,
		mailer:      mailer,
		cfg:         cfg,
		now:         time.Now,
		sideEffects: newSideEffects(publisher, metrics, logger),
	}
}

const invoiceNumberAttempts = 5

// Generate builds a DRAFT invoice. All money is computed here from the line
// items; clients never supply totals.
func (s *invoiceServiceImpl) Generate(ctx context.Context, req *models.GenerateInvoiceRequest) (*models.Invoice, *apperrors.ServiceError) {
	if (req.InquiryID == nil) == (req.OrderID == nil) {
		return nil, apperrors.Validation("inquiry_id", "exactly one of inquiry_id or order_id is required")
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("items", "at least one line item is required")
	}
	taxRate := s.cfg.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, apperrors.Validation("tax_rate", "tax rate must be a fraction between 0 and 1")
	}

	inv := &models.Invoice{
		ID:      uuid.New(),
		TaxRate: taxRate,
		Status:  models.InvoiceStatusDraft,
		DueDate: req.DueDate,
		Notes:   req.Notes,
		Items:   make([]models.InvoiceItem, 0, len(req.Items)),
	}
	for i, in := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(in.Description) == "" {
			return nil, apperrors.Validation(field+".description", "description is required")
		}
		if !in.Quantity.IsPositive() {
			return nil, apperrors.Validation(field+".quantity", "quantity must be greater than zero")
		}
		if in.UnitPrice.IsNegative() {
			return nil, apperrors.Validation(field+".unit_price", "unit price cannot be negative")
		}
		inv.Items = append(inv.Items, models.InvoiceItem{
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice.Round(2),
		})
	}

	if req.InquiryID != nil {
		inquiry, err := s.inquiries.FindByID(ctx, *req.InquiryID)
		if err != nil {
			return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
		}
		inv.InquiryID = &inquiry.ID
		inv.CustomerName = inquiry.Name
		inv.CustomerEmail = inquiry.Email
	} else {
		order, err := s.orders.FindByID(ctx, *req.OrderID)
		if err != nil {
			return nil, fromRepoErr(err, "order", ordersListPath)
		}
		inv.OrderID = &order.ID
		inv.CustomerName = order.Customer.Name
		inv.CustomerEmail = order.Customer.Email
	}
	inv.ApplyTotals()

	prefix := "INV-" + s.now().UTC().Format("200601") + "-"
	seq, err := s.repo.CountWithPrefix(ctx, prefix)
	if err != nil {
		return nil, apperrors.Internal("failed to number invoice", err)
	}
	inv.InvoiceNumber = fmt.Sprintf("%s%04d", prefix, seq+1)

	if req.CreatePaymentLink {
		link, err := s.payments.CreatePaymentLink(ctx, inv)
		if err != nil {
			s.logger.Error("CreatePaymentLink failed", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
			return nil, fromProviderErr("failed to create payment link", err)
		}
		inv.PaymentURL = &link.URL
		inv.StripeSessionID = &link.SessionID
	}

	for attempt := 1; ; attempt++ {
		err := s.repo.Create(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateNumber) || attempt >= invoiceNumberAttempts {
			s.logger.Error("Failed to create invoice", zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
			return nil, apperrors.Internal("failed to save invoice", err)
		}
		inv.InvoiceNumber = fmt.Sprintf("%s%04d", prefix, seq+1+int64(attempt))
	}

	s.logger.Info("Invoice generated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.Total.StringFixed(2)),
	)
	return inv, nil
}

func (s *invoiceServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, *apperrors.ServiceError) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "invoice", invoicesListPath)
	}
	return inv, nil
}

func (s *invoiceServiceImpl) ListByInquiry(ctx context.Context, inquiryID uuid.UUID) ([]models.Invoice, *apperrors.ServiceError) {
	invoices, err := s.repo.ListByInquiry(ctx, inquiryID)
	if err != nil {
		return nil, apperrors.Internal("failed to list invoices", err)
	}
	return invoices, nil
}

// Send emails the invoice. The first send moves DRAFT to SENT; a resend only
// refreshes SentAt.
func (s *invoiceServiceImpl) Send(ctx context.Context, id uuid.UUID) (*models.Invoice, *apperrors.ServiceError) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "invoice", invoicesListPath)
	}
	if inv.Status.Final() {
		return nil, apperrors.Precondition(fmt.Sprintf("cannot send a %s invoice", strings.ToLower(string(inv.Status))))
	}

	body, err := renderInvoiceEmail(inv)
	if err != nil {
		return nil, apperrors.Internal("failed to render invoice email", err)
	}
	subject := fmt.Sprintf("Invoice %s from 47 Industries", inv.InvoiceNumber)
	if _, err := s.mailer.SendEmail(ctx, inv.CustomerEmail, subject, body); err != nil {
		s.logger.Error("Invoice email failed", zap.String("invoice_id", id.String()), zap.Error(err))
		return nil, fromProviderErr("failed to email invoice", err)
	}

	now := s.now().UTC()
	err = recordOutcome(func(fresh bool) error {
		if fresh {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			inv = current
		}
		inv.SentAt = &now
		if inv.Status == models.InvoiceStatusDraft {
			inv.Status = models.InvoiceStatusSent
		}
		return s.repo.Update(ctx, inv)
	})
	if err != nil {
		s.logger.Error("Invoice emailed but not recorded", zap.String("invoice_id", id.String()), zap.Error(err))
		return nil, fromRepoErr(err, "invoice", invoicesListPath)
	}

	s.count(ctx, aws_pkg.MetricInvoicesSent, nil)
	s.publishEvent(ctx, models.EventInvoiceSent, inv.ID.String(), invoiceEvent(models.EventInvoiceSent, inv, now))
	return inv, nil
}

// UpdateStatus moves the invoice forward. PAID and CANCELLED are final.
func (s *invoiceServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvoiceStatus) (*models.Invoice, *apperrors.ServiceError) {
	if !status.Valid() {
		return nil, apperrors.Validation("status", "unknown invoice status "+string(status))
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "invoice", invoicesListPath)
	}
	if inv.Status == status {
		return inv, nil
	}
	if !inv.Status.CanTransitionTo(status) {
		return nil, apperrors.Precondition(fmt.Sprintf("invoice cannot move from %s to %s", inv.Status, status))
	}

	now := s.now().UTC()
	inv.Status = status
	switch status {
	case models.InvoiceStatusSent:
		if inv.SentAt == nil {
			inv.SentAt = &now
		}
	case models.InvoiceStatusViewed:
		inv.ViewedAt = &now
	case models.InvoiceStatusPaid:
		inv.PaidAt = &now
	case models.InvoiceStatusCancelled:
		inv.CancelledAt = &now
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fromRepoErr(err, "invoice", invoicesListPath)
	}

	s.logger.Info("Invoice status changed",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("status", string(status)),
	)
	if status == models.InvoiceStatusPaid {
		s.publishEvent(ctx, models.EventInvoicePaid, inv.ID.String(), invoiceEvent(models.EventInvoicePaid, inv, now))
	}
	return inv, nil
}

// MarkPaidFromCheckout settles the invoice behind a completed checkout
// session. Repeated deliveries are no-ops.
func (s *invoiceServiceImpl) MarkPaidFromCheckout(ctx context.Context, sessionID, invoiceID string) *apperrors.ServiceError {
	inv, err := s.repo.FindByStripeSession(ctx, sessionID)
	if err != nil {
		if !repository.IsNotFound(err) || invoiceID == "" {
			return fromRepoErr(err, "invoice", invoicesListPath)
		}
		id, parseErr := uuid.Parse(invoiceID)
		if parseErr != nil {
			return apperrors.Validation("invoice_id", "checkout session does not reference an invoice")
		}
		if inv, err = s.repo.FindByID(ctx, id); err != nil {
			return fromRepoErr(err, "invoice", invoicesListPath)
		}
	}

	switch inv.Status {
	case models.InvoiceStatusPaid:
		return nil
	case models.InvoiceStatusCancelled:
		s.logger.Warn("Payment received for cancelled invoice",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("session_id", sessionID),
		)
		return apperrors.Precondition("invoice was cancelled before payment")
	}

	now := s.now().UTC()
	inv.Status = models.InvoiceStatusPaid
	inv.PaidAt = &now
	if inv.StripeSessionID == nil {
		inv.StripeSessionID = &sessionID
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return fromRepoErr(err, "invoice", invoicesListPath)
	}

	s.logger.Info("Invoice paid via checkout",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("session_id", sessionID),
	)
	s.publishEvent(ctx, models.EventInvoicePaid, inv.ID.String(), invoiceEvent(models.EventInvoicePaid, inv, now))
	return nil
}

func invoiceEvent(eventType string, inv *models.Invoice, at time.Time) models.InvoiceEvent {
	return models.InvoiceEvent{
		EventType:     eventType,
		InvoiceID:     inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		Total:         inv.Total.StringFixed(2),
		Timestamp:     at,
	}
}
