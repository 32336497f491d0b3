package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/events"
	"github.com/kylerivers/47-industries-admin/models"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/kylerivers/47-industries-admin/repository"
	"go.uber.org/zap"
)

// InventoryService adjusts stock and manages the alerts it raises.
type InventoryService interface {
	AdjustStock(ctx context.Context, productID uuid.UUID, req *models.AdjustStockRequest, actor string) (*models.StockChange, *apperrors.ServiceError)
	ResolveAlert(ctx context.Context, alertID uuid.UUID, actor string) (*models.InventoryAlert, *apperrors.ServiceError)
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.InventoryAlert, *apperrors.ServiceError)
	ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, *apperrors.ServiceError)
}

type inventoryServiceImpl struct {
	repo       repository.InventoryRepository
	thresholds models.Thresholds
	now        func() time.Time
	sideEffects
}

func NewInventoryService(
	repo repository.InventoryRepository,
	thresholds models.Thresholds,
	publisher events.Publisher,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) InventoryService {
	return &inventoryServiceImpl{
		repo:        repo,
		thresholds:  thresholds,
		now:         time.Now,
		sideEffects: newSideEffects(publisher, metrics, logger),
	}
}

// NextStock applies an adjustment. Subtracting never goes below zero.
func NextStock(mode models.AdjustMode, current, quantity int) int {
	switch mode {
	case models.AdjustSet:
		return quantity
	case models.AdjustAdd:
		return current + quantity
	case models.AdjustSubtract:
		if quantity >= current {
			return 0
		}
		return current - quantity
	}
	return current
}

// EvaluateAlerts returns the alerts raised by moving stock from prev to next.
// Types already open for the same item are not raised again.
func EvaluateAlerts(prev, next int, th models.Thresholds, open map[models.AlertType]bool) []models.InventoryAlert {
	var alerts []models.InventoryAlert
	raise := func(t models.AlertType, threshold int) {
		if open[t] {
			return
		}
		alerts = append(alerts, models.InventoryAlert{Type: t, Threshold: threshold, StockLevel: next})
	}

	if prev > 0 && next == 0 {
		raise(models.AlertOutOfStock, 0)
	}
	if prev > th.LowStock && next <= th.LowStock && next > 0 {
		raise(models.AlertLowStock, th.LowStock)
	}
	if th.Overstock > 0 && prev <= th.Overstock && next > th.Overstock {
		raise(models.AlertOverstock, th.Overstock)
	}
	return alerts
}

func (s *inventoryServiceImpl) AdjustStock(ctx context.Context, productID uuid.UUID, req *models.AdjustStockRequest, actor string) (*models.StockChange, *apperrors.ServiceError) {
	if !req.Type.Valid() {
		return nil, apperrors.Validation("type", "type must be one of set, add, subtract")
	}
	if req.Quantity == nil {
		return nil, apperrors.Validation("quantity", "quantity is required")
	}
	if *req.Quantity < 0 {
		return nil, apperrors.Validation("quantity", "quantity cannot be negative")
	}
	qty := *req.Quantity

	change, err := s.repo.Adjust(ctx, productID, req.VariantID,
		func(current int, open map[models.AlertType]bool) (int, models.StockMovement, []models.InventoryAlert, error) {
			next := NextStock(req.Type, current, qty)
			movement := models.StockMovement{
				Type:        req.Type.MovementType(),
				Quantity:    next - current,
				StockBefore: current,
				StockAfter:  next,
				Reason:      req.Reason,
				CreatedBy:   actor,
			}
			return next, movement, EvaluateAlerts(current, next, s.thresholds, open), nil
		})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("product", productsListPath)
		}
		s.logger.Error("Stock adjustment failed", zap.String("product_id", productID.String()), zap.Error(err))
		return nil, apperrors.Internal("failed to adjust stock", err)
	}

	s.logger.Info("Stock adjusted",
		zap.String("product_id", productID.String()),
		zap.String("mode", string(req.Type)),
		zap.Int("previous", change.PreviousStock),
		zap.Int("new", change.NewStock),
		zap.Int("alerts", len(change.Alerts)),
	)
	s.count(ctx, aws_pkg.MetricStockAdjustments, map[string]string{"mode": string(req.Type)})
	s.publishEvent(ctx, models.EventInventoryAdjusted, productID.String(), change)

	now := s.now().UTC()
	for _, alert := range change.Alerts {
		s.count(ctx, aws_pkg.MetricInventoryAlerts, map[string]string{"type": string(alert.Type)})
		ev := models.InventoryAlertEvent{
			EventType:  models.EventInventoryAlert,
			AlertID:    alert.ID.String(),
			ProductID:  productID.String(),
			AlertType:  string(alert.Type),
			StockLevel: alert.StockLevel,
			Threshold:  alert.Threshold,
			Timestamp:  now,
		}
		if alert.VariantID != nil {
			ev.VariantID = alert.VariantID.String()
		}
		s.publishEvent(ctx, models.EventInventoryAlert, productID.String(), ev)
	}
	return change, nil
}

// ResolveAlert closes an alert. Alerts never close on their own when stock
// recovers.
func (s *inventoryServiceImpl) ResolveAlert(ctx context.Context, alertID uuid.UUID, actor string) (*models.InventoryAlert, *apperrors.ServiceError) {
	alert, err := s.repo.ResolveAlert(ctx, alertID, actor)
	if err != nil {
		return nil, fromRepoErr(err, "alert", alertsListPath)
	}
	s.logger.Info("Inventory alert resolved", zap.String("alert_id", alertID.String()), zap.String("by", actor))
	return alert, nil
}

func (s *inventoryServiceImpl) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.InventoryAlert, *apperrors.ServiceError) {
	alerts, err := s.repo.ListAlerts(ctx, unresolvedOnly)
	if err != nil {
		return nil, apperrors.Internal("failed to list alerts", err)
	}
	return alerts, nil
}

func (s *inventoryServiceImpl) ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, *apperrors.ServiceError) {
	movements, err := s.repo.ListMovements(ctx, productID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to list stock movements", err)
	}
	return movements, nil
}
