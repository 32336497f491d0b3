package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/middleware"
)

// respondError renders a service error with the optional field, redirect
// and retry hints the admin UI acts on.
func respondError(ctx *gin.Context, svcErr *apperrors.ServiceError) {
	body := gin.H{"error": svcErr.Message}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	if svcErr.Redirect != "" {
		body["redirect"] = svcErr.Redirect
	}
	if svcErr.Retryable {
		body["retryable"] = true
	}
	if svcErr.Err != nil {
		_ = ctx.Error(svcErr.Err)
	}
	ctx.JSON(svcErr.StatusCode, body)
}

// parseID reads a uuid path parameter, writing a 400 when it is malformed.
func parseID(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "field": name})
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 20
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "20")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}

// expectedVersion prefers the version in the body and falls back to an
// If-Match header such as `"3"` or `W/"3"`.
func expectedVersion(ctx *gin.Context, fromBody *int) *int {
	if fromBody != nil {
		return fromBody
	}
	raw := strings.TrimSpace(ctx.GetHeader("If-Match"))
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func idempotencyKey(ctx *gin.Context) string {
	return strings.TrimSpace(ctx.GetHeader(middleware.IdempotencyKeyHeader))
}

func paginated(key string, items interface{}, total int64, page, limit int) gin.H {
	return gin.H{key: items, "total": total, "page": page, "limit": limit}
}
