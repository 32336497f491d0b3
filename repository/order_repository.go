package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"gorm.io/gorm"
)

// OrderRepository defines data-access operations for orders and their labels.
type OrderRepository interface {
	List(ctx context.Context, filter models.OrderFilter, page, limit int) ([]models.Order, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// Update writes the mutable order fields if order.Version still matches
	// the stored row, then bumps order.Version.
	Update(ctx context.Context, order *models.Order) error
	// AttachLabel inserts label and writes its tracking info onto the order
	// in one transaction.
	AttachLabel(ctx context.Context, order *models.Order, label *models.ShippingLabel) error
	// VoidLabel marks label VOIDED and clears the order tracking fields in
	// one transaction.
	VoidLabel(ctx context.Context, order *models.Order, label *models.ShippingLabel) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) List(ctx context.Context, filter models.OrderFilter, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("order_number ILIKE ? OR customer_name ILIKE ? OR customer_email ILIKE ?", like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Scopes(paginate(page, limit)).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Labels", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_id = ?", paymentID).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.Version == 0 {
		order.Version = 1
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) Update(ctx context.Context, order *models.Order) error {
	if err := updateOrder(r.db.WithContext(ctx), order); err != nil {
		return err
	}
	order.Version++
	return nil
}

func updateOrder(tx *gorm.DB, order *models.Order) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":           order.Status,
			"payment_status":   order.PaymentStatus,
			"tracking_number":  order.TrackingNumber,
			"carrier":          order.Carrier,
			"admin_notes":      order.AdminNotes,
			"refunded_amount":  order.RefundedAmount,
			"refunded_at":      order.RefundedAt,
			"stripe_refund_id": order.StripeRefundID,
			"version":          gorm.Expr("version + 1"),
		})
	return checkVersion(res)
}

func (r *GormOrderRepository) AttachLabel(ctx context.Context, order *models.Order, label *models.ShippingLabel) error {
	prevTracking, prevCarrier := order.TrackingNumber, order.Carrier
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		label.OrderID = order.ID
		if err := tx.Create(label).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrActiveLabelExists
			}
			return err
		}
		tracking, carrier := label.TrackingNumber, label.Carrier
		order.TrackingNumber = &tracking
		order.Carrier = &carrier
		return updateOrder(tx, order)
	})
	if err != nil {
		order.TrackingNumber, order.Carrier = prevTracking, prevCarrier
		return err
	}
	order.Version++
	order.Labels = append(order.Labels, *label)
	return nil
}

func (r *GormOrderRepository) VoidLabel(ctx context.Context, order *models.Order, label *models.ShippingLabel) error {
	now := time.Now().UTC()
	prevTracking, prevCarrier := order.TrackingNumber, order.Carrier
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ShippingLabel{}).
			Where("id = ? AND status = ?", label.ID, models.LabelStatusPurchased).
			Updates(map[string]interface{}{
				"status":    models.LabelStatusVoided,
				"voided_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		order.TrackingNumber = nil
		order.Carrier = nil
		return updateOrder(tx, order)
	})
	if err != nil {
		order.TrackingNumber, order.Carrier = prevTracking, prevCarrier
		return err
	}
	order.Version++
	label.Status = models.LabelStatusVoided
	label.VoidedAt = &now
	for i := range order.Labels {
		if order.Labels[i].ID == label.ID {
			order.Labels[i] = *label
		}
	}
	return nil
}
