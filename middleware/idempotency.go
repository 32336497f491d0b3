package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/kylerivers/47-industries-admin/services"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
)

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotentReplay makes POST requests carrying an Idempotency-Key safe to
// retry. The first request runs and its response is stored; later requests
// with the same key on the same route get that response back. A duplicate
// arriving while the first is still running gets 409. Responses with a 5xx
// status are not stored so the client can retry.
//
// When the store is unreachable the request runs without protection; the
// key is still passed to the payment and shipping providers.
func IdempotentReplay(store services.IdempotencyStore, metrics aws_pkg.MetricsRecorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if c.Request.Method != http.MethodPost || key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key is too long", "field": "Idempotency-Key"})
			return
		}

		scoped := c.Request.Method + " " + c.Request.URL.Path + " " + key
		ctx := c.Request.Context()

		stored, err := store.Begin(ctx, scoped)
		switch {
		case errors.Is(err, services.ErrRequestInFlight):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":     "A request with this Idempotency-Key is still being processed",
				"retryable": true,
			})
			return
		case err != nil:
			log.Warn("Idempotency store unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		case stored != nil:
			if metrics != nil {
				_ = metrics.RecordCount(ctx, aws_pkg.MetricIdempotentReplays, map[string]string{"Path": c.FullPath()})
			}
			log.Info("Replaying stored response", zap.String("key", key), zap.Int("status", stored.Status))
			c.Header(ReplayedHeader, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// the request context may already be cancelled by now
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(bg, scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}
		if err := store.Complete(bg, scoped, services.StoredResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}); err != nil {
			log.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}
