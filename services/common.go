package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/events"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/repository"
	"go.uber.org/zap"
)

// Redirect targets returned with not-found errors.
const (
	ordersListPath    = "/admin/orders"
	inquiriesListPath = "/admin/inquiries"
	invoicesListPath  = "/admin/invoices"
	productsListPath  = "/admin/products"
	alertsListPath    = "/admin/inventory/alerts"
)

// sideEffects bundles the best-effort collaborators every service shares.
type sideEffects struct {
	publisher events.Publisher
	metrics   aws_pkg.MetricsRecorder
	logger    *zap.Logger
}

func newSideEffects(publisher events.Publisher, metrics aws_pkg.MetricsRecorder, logger *zap.Logger) sideEffects {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return sideEffects{publisher: publisher, metrics: metrics, logger: logger}
}

// publishEvent publishes a domain event (non-fatal on error).
func (s sideEffects) publishEvent(ctx context.Context, eventType, key string, event interface{}) {
	if err := s.publisher.Publish(ctx, eventType, key, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Published event", zap.String("event_type", eventType), zap.String("key", key))
}

func (s sideEffects) count(ctx context.Context, metric string, dims map[string]string) {
	if err := s.metrics.RecordCount(ctx, metric, dims); err != nil {
		s.logger.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}

// fromRepoErr maps a repository failure onto the service error taxonomy.
func fromRepoErr(err error, entity, redirect string) *apperrors.ServiceError {
	switch {
	case repository.IsNotFound(err):
		return apperrors.NotFound(entity, redirect)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.Conflict(entity + " was modified by someone else; reload and try again")
	default:
		return apperrors.Internal("failed to access "+entity, err)
	}
}

// fromProviderErr keeps the collaborator's message intact.
func fromProviderErr(prefix string, err error) *apperrors.ServiceError {
	svcErr := apperrors.Provider(prefix, err)
	if errors.Is(err, providers.ErrRatesExpired) {
		svcErr.StatusCode = http.StatusConflict
		svcErr.Retryable = true
	}
	return svcErr
}

// checkExpectedVersion rejects a patch carrying a version the caller read
// before someone else saved.
func checkExpectedVersion(entity string, current int, expected *int) *apperrors.ServiceError {
	if expected != nil && *expected != current {
		return apperrors.Conflict(entity + " was modified by someone else; reload and try again")
	}
	return nil
}

const recordAttempts = 5

// recordOutcome writes state that an external call has already made true,
// so a concurrent edit must not turn it into a failure. write is called
// with fresh=false first; after a version conflict it is called again with
// fresh=true and is expected to reload the row and re-apply its change.
func recordOutcome(write func(fresh bool) error) error {
	for attempt := 1; ; attempt++ {
		err := write(attempt > 1)
		if err == nil || !errors.Is(err, repository.ErrVersionConflict) || attempt >= recordAttempts {
			return err
		}
	}
}

// humanNumber renders PREFIX-yymmdd-xxxxxx.
func humanNumber(prefix string, now time.Time) string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		copy(b, []byte{byte(now.Nanosecond()), byte(now.Nanosecond() >> 8), byte(now.Nanosecond() >> 16)})
	}
	return prefix + now.UTC().Format("060102") + "-" + hex.EncodeToString(b)
}

func normalizePage(page, limit int) (int, int) {
	const maxLimit = 100
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
