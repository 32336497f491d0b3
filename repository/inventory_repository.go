package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdjustFunc computes one stock adjustment. It receives the locked current
// stock and the types of unresolved alerts already open for the same
// product/variant, and returns the new level plus the records to write.
type AdjustFunc func(current int, openAlerts map[models.AlertType]bool) (next int, movement models.StockMovement, alerts []models.InventoryAlert, err error)

type InventoryRepository interface {
	// Adjust runs fn against the row-locked stock of a product, or of one of
	// its variants, and persists the result in the same transaction.
	Adjust(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, fn AdjustFunc) (*models.StockChange, error)
	ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error)
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.InventoryAlert, error)
	ResolveAlert(ctx context.Context, id uuid.UUID, actor string) (*models.InventoryAlert, error)
}

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) InventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) Adjust(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, fn AdjustFunc) (*models.StockChange, error) {
	var change *models.StockChange

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})

		var current int
		if variantID != nil {
			var v models.ProductVariant
			if err := locked.First(&v, "id = ? AND product_id = ?", *variantID, productID).Error; err != nil {
				return err
			}
			current = v.Stock
		} else {
			var p models.Product
			if err := locked.First(&p, "id = ?", productID).Error; err != nil {
				return err
			}
			current = p.Stock
		}

		open, err := openAlertTypes(tx, productID, variantID)
		if err != nil {
			return err
		}

		next, movement, alerts, err := fn(current, open)
		if err != nil {
			return err
		}

		if variantID != nil {
			if err := tx.Model(&models.ProductVariant{}).
				Where("id = ?", *variantID).
				Update("stock", next).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", productID).
				Updates(map[string]interface{}{"stock": next, "version": gorm.Expr("version + 1")}).Error; err != nil {
				return err
			}
		}

		movement.ProductID = productID
		movement.VariantID = variantID
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		for i := range alerts {
			alerts[i].ProductID = productID
			alerts[i].VariantID = variantID
			if err := tx.Create(&alerts[i]).Error; err != nil {
				return err
			}
		}

		change = &models.StockChange{
			ProductID:     productID,
			VariantID:     variantID,
			PreviousStock: current,
			NewStock:      next,
			Movement:      movement,
			Alerts:        alerts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func openAlertTypes(tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID) (map[models.AlertType]bool, error) {
	var types []models.AlertType
	q := tx.Model(&models.InventoryAlert{}).
		Where("product_id = ? AND is_resolved = ?", productID, false)
	if variantID != nil {
		q = q.Where("variant_id = ?", *variantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}
	if err := q.Distinct().Pluck("type", &types).Error; err != nil {
		return nil, err
	}
	open := make(map[models.AlertType]bool, len(types))
	for _, t := range types {
		open[t] = true
	}
	return open, nil
}

func (r *GormInventoryRepository) ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *GormInventoryRepository) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if unresolvedOnly {
		q = q.Where("is_resolved = ?", false)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *GormInventoryRepository) ResolveAlert(ctx context.Context, id uuid.UUID, actor string) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&alert, "id = ?", id).Error; err != nil {
			return err
		}
		if alert.IsResolved {
			return nil
		}
		now := time.Now().UTC()
		alert.IsResolved = true
		alert.ResolvedAt = &now
		alert.ResolvedBy = &actor
		return tx.Model(&models.InventoryAlert{}).Where("id = ?", id).Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": now,
			"resolved_by": actor,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}
