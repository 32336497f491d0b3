package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByStripeSession(ctx context.Context, sessionID string) (*models.Invoice, error)
	ListByInquiry(ctx context.Context, inquiryID uuid.UUID) ([]models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	// CountWithPrefix counts invoice numbers starting with prefix, used to
	// derive the next monthly sequence number.
	CountWithPrefix(ctx context.Context, prefix string) (int64, error)
}

type GormInvoiceRepository struct {
	db *gorm.DB
}

func NewGormInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.Version == 0 {
		invoice.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateNumber
		}
		return err
	}
	return nil
}

func itemsByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).Preload("Items", itemsByPosition).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvoiceRepository) FindByStripeSession(ctx context.Context, sessionID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Where("stripe_session_id = ?", sessionID).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvoiceRepository) ListByInquiry(ctx context.Context, inquiryID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Where("inquiry_id = ?", inquiryID).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version).
		Updates(map[string]interface{}{
			"status":            invoice.Status,
			"sent_at":           invoice.SentAt,
			"viewed_at":         invoice.ViewedAt,
			"paid_at":           invoice.PaidAt,
			"cancelled_at":      invoice.CancelledAt,
			"payment_url":       invoice.PaymentURL,
			"stripe_session_id": invoice.StripeSessionID,
			"version":           gorm.Expr("version + 1"),
		})
	if err := checkVersion(res); err != nil {
		return err
	}
	invoice.Version++
	return nil
}

func (r *GormInvoiceRepository) CountWithPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Count(&n).Error
	return n, err
}
