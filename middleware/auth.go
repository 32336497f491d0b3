package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	// ActorContextKey holds the email (or id) of the authenticated admin.
	ActorContextKey = "admin_actor"
	roleContextKey  = "admin_role"
)

var adminRoles = map[string]bool{"ADMIN": true, "SUPER_ADMIN": true}

func isAdminRole(role string) bool {
	return adminRoles[strings.ToUpper(strings.TrimSpace(role))]
}

// AdminAuth accepts either an HS256 bearer token signed with secret carrying
// an admin role, or the X-User-ID/X-User-Role headers set by the API gateway
// after it has verified the caller.
func AdminAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			userID, role := c.GetHeader("X-User-ID"), c.GetHeader("X-User-Role")
			if userID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			if !isAdminRole(role) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
				return
			}
			actor := c.GetHeader("X-User-Email")
			if actor == "" {
				actor = userID
			}
			c.Set(ActorContextKey, actor)
			c.Set(roleContextKey, role)
			c.Next()
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}
		if len(key) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token authentication is not configured"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		role, _ := claims["role"].(string)
		if !isAdminRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		actor, _ := claims["email"].(string)
		if actor == "" {
			actor, _ = claims["user_id"].(string)
		}
		c.Set(ActorContextKey, actor)
		c.Set(roleContextKey, role)
		c.Next()
	}
}

// Actor returns the admin identity stored by AdminAuth, or "admin".
func Actor(c *gin.Context) string {
	if v := c.GetString(ActorContextKey); v != "" {
		return v
	}
	return "admin"
}
