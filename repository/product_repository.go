package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"gorm.io/gorm"
)

type ProductRepository interface {
	List(ctx context.Context, productType models.ProductType, search string, page, limit int) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindLink(ctx context.Context, productID uuid.UUID) (*models.ProductLink, error)
	CreateLink(ctx context.Context, link *models.ProductLink) error
	DeleteLink(ctx context.Context, productID uuid.UUID) (*models.ProductLink, error)
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) List(ctx context.Context, productType models.ProductType, search string, page, limit int) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if productType != "" {
		query = query.Where("type = ?", productType)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ?", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Scopes(paginate(page, limit)).Order("name ASC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Preload("Variants").First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func findLink(db *gorm.DB, productID uuid.UUID) (*models.ProductLink, error) {
	var link models.ProductLink
	if err := db.
		Where("physical_product_id = ? OR digital_product_id = ?", productID, productID).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *GormProductRepository) FindLink(ctx context.Context, productID uuid.UUID) (*models.ProductLink, error) {
	return findLink(r.db.WithContext(ctx), productID)
}

// CreateLink inserts the pair. A concurrent link of either side loses on
// the unique indexes and surfaces as ErrAlreadyLinked.
func (r *GormProductRepository) CreateLink(ctx context.Context, link *models.ProductLink) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ProductLink{}).
			Where("physical_product_id IN (?, ?) OR digital_product_id IN (?, ?)",
				link.PhysicalProductID, link.DigitalProductID, link.PhysicalProductID, link.DigitalProductID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyLinked
		}
		if err := tx.Create(link).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLinked
			}
			return err
		}
		return nil
	})
}

func (r *GormProductRepository) DeleteLink(ctx context.Context, productID uuid.UUID) (*models.ProductLink, error) {
	var removed *models.ProductLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := findLink(tx, productID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.ProductLink{}, "id = ?", link.ID).Error; err != nil {
			return err
		}
		removed = link
		return nil
	})
	return removed, err
}
