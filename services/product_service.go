package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/repository"
	"go.uber.org/zap"
)

type ProductService interface {
	List(ctx context.Context, productType models.ProductType, search string, page, limit int) ([]models.Product, int64, *apperrors.ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, *apperrors.ServiceError)
	Link(ctx context.Context, id, linkedID uuid.UUID) (*models.ProductLink, *apperrors.ServiceError)
	Unlink(ctx context.Context, id uuid.UUID) *apperrors.ServiceError
	Linked(ctx context.Context, id uuid.UUID) (*models.Product, *apperrors.ServiceError)
}

type productServiceImpl struct {
	repo   repository.ProductRepository
	logger *zap.Logger
}

func NewProductService(repo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productServiceImpl{repo: repo, logger: logger}
}

func (s *productServiceImpl) List(ctx context.Context, productType models.ProductType, search string, page, limit int) ([]models.Product, int64, *apperrors.ServiceError) {
	if productType != "" && productType != models.ProductTypePhysical && productType != models.ProductTypeDigital {
		return nil, 0, apperrors.Validation("type", "type must be PHYSICAL or DIGITAL")
	}
	page, limit = normalizePage(page, limit)
	products, total, err := s.repo.List(ctx, productType, search, page, limit)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list products", err)
	}
	return products, total, nil
}

func (s *productServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Product, *apperrors.ServiceError) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "product", productsListPath)
	}
	return p, nil
}

// Link pairs a physical product with its digital twin.
func (s *productServiceImpl) Link(ctx context.Context, id, linkedID uuid.UUID) (*models.ProductLink, *apperrors.ServiceError) {
	if id == linkedID {
		return nil, apperrors.Validation("linked_product_id", "a product cannot be linked to itself")
	}
	a, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	b, svcErr := s.Get(ctx, linkedID)
	if svcErr != nil {
		return nil, svcErr
	}

	link := &models.ProductLink{}
	switch {
	case a.Type == models.ProductTypePhysical && b.Type == models.ProductTypeDigital:
		link.PhysicalProductID, link.DigitalProductID = a.ID, b.ID
	case a.Type == models.ProductTypeDigital && b.Type == models.ProductTypePhysical:
		link.PhysicalProductID, link.DigitalProductID = b.ID, a.ID
	default:
		return nil, apperrors.Validation("linked_product_id", "a link pairs one physical and one digital product")
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrAlreadyLinked) {
			return nil, apperrors.Conflict("one of these products is already linked; unlink it first")
		}
		return nil, apperrors.Internal("failed to link products", err)
	}
	s.logger.Info("Products linked",
		zap.String("physical_product_id", link.PhysicalProductID.String()),
		zap.String("digital_product_id", link.DigitalProductID.String()),
	)
	return link, nil
}

func (s *productServiceImpl) Unlink(ctx context.Context, id uuid.UUID) *apperrors.ServiceError {
	link, err := s.repo.DeleteLink(ctx, id)
	if err != nil {
		return fromRepoErr(err, "product link", productsListPath)
	}
	s.logger.Info("Products unlinked",
		zap.String("physical_product_id", link.PhysicalProductID.String()),
		zap.String("digital_product_id", link.DigitalProductID.String()),
	)
	return nil
}

// Linked returns the twin of id.
func (s *productServiceImpl) Linked(ctx context.Context, id uuid.UUID) (*models.Product, *apperrors.ServiceError) {
	link, err := s.repo.FindLink(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "linked product", productsListPath)
	}
	return s.Get(ctx, link.Other(id))
}
