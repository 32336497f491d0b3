package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"gorm.io/gorm"
)

type InquiryRepository interface {
	List(ctx context.Context, filter models.InquiryFilter, page, limit int) ([]models.ServiceInquiry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceInquiry, error)
	Create(ctx context.Context, inquiry *models.ServiceInquiry) error
	Update(ctx context.Context, inquiry *models.ServiceInquiry) error
	// AppendMessage inserts msg and writes the inquiry's mutable fields in one
	// transaction. Messages are never updated or deleted.
	AppendMessage(ctx context.Context, inquiry *models.ServiceInquiry, msg *models.InquiryMessage) error
	ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]models.InquiryMessage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormInquiryRepository struct {
	db *gorm.DB
}

func NewGormInquiryRepository(db *gorm.DB) InquiryRepository {
	return &GormInquiryRepository{db: db}
}

func (r *GormInquiryRepository) List(ctx context.Context, filter models.InquiryFilter, page, limit int) ([]models.ServiceInquiry, int64, error) {
	var inquiries []models.ServiceInquiry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ServiceInquiry{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("inquiry_number ILIKE ? OR name ILIKE ? OR email ILIKE ? OR company ILIKE ?", like, like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Scopes(paginate(page, limit)).Order("created_at DESC").Find(&inquiries).Error; err != nil {
		return nil, 0, err
	}
	return inquiries, total, nil
}

func (r *GormInquiryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceInquiry, error) {
	var inq models.ServiceInquiry
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&inq, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inq, nil
}

func (r *GormInquiryRepository) Create(ctx context.Context, inquiry *models.ServiceInquiry) error {
	if inquiry.Version == 0 {
		inquiry.Version = 1
	}
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *GormInquiryRepository) Update(ctx context.Context, inquiry *models.ServiceInquiry) error {
	if err := updateInquiry(r.db.WithContext(ctx), inquiry); err != nil {
		return err
	}
	inquiry.Version++
	return nil
}

func updateInquiry(tx *gorm.DB, inquiry *models.ServiceInquiry) error {
	res := tx.Model(&models.ServiceInquiry{}).
		Where("id = ? AND version = ?", inquiry.ID, inquiry.Version).
		Updates(map[string]interface{}{
			"status":         inquiry.Status,
			"assigned_to":    inquiry.AssignedTo,
			"estimated_cost": inquiry.EstimatedCost,
			"proposal_url":   inquiry.ProposalURL,
			"admin_notes":    inquiry.AdminNotes,
			"version":        gorm.Expr("version + 1"),
		})
	return checkVersion(res)
}

func (r *GormInquiryRepository) AppendMessage(ctx context.Context, inquiry *models.ServiceInquiry, msg *models.InquiryMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg.InquiryID = inquiry.ID
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return updateInquiry(tx, inquiry)
	})
	if err != nil {
		return err
	}
	inquiry.Version++
	inquiry.Messages = append(inquiry.Messages, *msg)
	return nil
}

func (r *GormInquiryRepository) ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]models.InquiryMessage, error) {
	var msgs []models.InquiryMessage
	if err := r.db.WithContext(ctx).
		Where("inquiry_id = ?", inquiryID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *GormInquiryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ServiceInquiry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
