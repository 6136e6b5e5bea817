package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the shared admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards admin routes with a shared key sent in X-Admin-Key or as a Bearer token.
// An empty key leaves the routes open.
func AdminKeyMiddleware(key string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(key))
	return func(c *gin.Context) {
		if len(expected) == 0 || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		provided := strings.TrimSpace(c.GetHeader(AdminKeyHeader))
		if provided == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
				provided = strings.TrimSpace(authHeader[7:])
			}
		}
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing admin key"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin key"})
			return
		}
		c.Set("adminAuthenticated", true)
		c.Next()
	}
}
