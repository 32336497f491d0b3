package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/kylerivers/47-industries-admin/logger"
	"github.com/kylerivers/47-industries-admin/middleware"
	"github.com/kylerivers/47-industries-admin/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.AdminAuth(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.Actor(c))
	})
	return r
}

func TestAdminAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	adminToken := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": "u1", "email": "kyle@47.test", "role": "ADMIN", "exp": exp})
	customerToken := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": "u2", "role": "customer", "exp": exp})
	expiredToken := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": "u1", "role": "ADMIN", "exp": time.Now().Add(-time.Minute).Unix()})
	forgedToken := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": "u1", "role": "ADMIN", "exp": exp})

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		actor   string
	}{
		{"admin token", map[string]string{"Authorization": "Bearer " + adminToken}, http.StatusOK, "kyle@47.test"},
		{"customer token", map[string]string{"Authorization": "Bearer " + customerToken}, http.StatusForbidden, ""},
		{"expired token", map[string]string{"Authorization": "Bearer " + expiredToken}, http.StatusUnauthorized, ""},
		{"wrong key", map[string]string{"Authorization": "Bearer " + forgedToken}, http.StatusUnauthorized, ""},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, ""},
		{"no credentials", nil, http.StatusUnauthorized, ""},
		{"gateway admin", map[string]string{"X-User-ID": "u9", "X-User-Role": "super_admin"}, http.StatusOK, "u9"},
		{"gateway customer", map[string]string{"X-User-ID": "u9", "X-User-Role": "customer"}, http.StatusForbidden, ""},
	}

	r := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.actor != "" {
				assert.Equal(t, tt.actor, w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestID(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(middleware.RequestIDHeader), 36)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(rate.Every(time.Hour), 2, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"https://admin.47industries.test/"}), middleware.SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://admin.47industries.test")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://admin.47industries.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// memStore is an in-process IdempotencyStore.
type memStore struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string]services.StoredResponse
}

func newMemStore() *memStore {
	return &memStore{pending: map[string]bool{}, done: map[string]services.StoredResponse{}}
}

func (s *memStore) Begin(_ context.Context, key string) (*services.StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, ok := s.done[key]; ok {
		return &resp, nil
	}
	if s.pending[key] {
		return nil, services.ErrRequestInFlight
	}
	s.pending[key] = true
	return nil, nil
}

func (s *memStore) Complete(_ context.Context, key string, resp services.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	s.done[key] = resp
	return nil
}

func (s *memStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	return nil
}

func TestIdempotentReplay_ReplaysWithoutReexecuting(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(middleware.IdempotentReplay(newMemStore(), nil, zap.NewNop()))
	r.POST("/orders/:id/refund", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"refund_id": "re_1", "call": calls})
	})

	send := func(key string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders/1/refund", strings.NewReader(`{"reason":"duplicate"}`))
		if key != "" {
			req.Header.Set(middleware.IdempotencyKeyHeader, key)
		}
		r.ServeHTTP(w, req)
		return w
	}

	first := send("k1")
	second := send("k1")
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(middleware.ReplayedHeader))
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")

	send("k2")
	send("")
	assert.Equal(t, 3, calls)
}

func TestIdempotentReplay_InFlightConflict(t *testing.T) {
	store := newMemStore()
	_, err := store.Begin(context.Background(), "POST /orders/1/refund k1")
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.IdempotentReplay(store, nil, zap.NewNop()))
	r.POST("/orders/:id/refund", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/1/refund", nil)
	req.Header.Set(middleware.IdempotencyKeyHeader, "k1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestIdempotentReplay_ServerErrorsNotStored(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(middleware.IdempotentReplay(newMemStore(), nil, zap.NewNop()))
	r.POST("/x", func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(middleware.IdempotencyKeyHeader, "k")
		r.ServeHTTP(w, req)
	}
	assert.Equal(t, 2, calls)
}
