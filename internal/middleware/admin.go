package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware guards the cache maintenance endpoints with a shared key.
type AdminMiddleware struct {
	apiKey string
}

// NewAdminMiddleware creates the guard. An empty key disables the guarded
// endpoints entirely.
func NewAdminMiddleware(apiKey string) *AdminMiddleware {
	return &AdminMiddleware{
		apiKey: strings.TrimSpace(apiKey),
	}
}

// Enabled reports whether an admin key is configured.
func (am *AdminMiddleware) Enabled() bool {
	return am.apiKey != ""
}

// RequireAdminAuth accepts the key as a Bearer token or an X-API-Key header.
func (am *AdminMiddleware) RequireAdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Admin endpoints are disabled",
			})
			return
		}

		if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && am.ValidateAdminKey(token) {
			c.Next()
			return
		}
		if am.ValidateAdminKey(c.GetHeader("X-API-Key")) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Valid admin API key required for this endpoint",
		})
	}
}

// ValidateAdminKey validates an admin API key
func (am *AdminMiddleware) ValidateAdminKey(key string) bool {
	if !am.Enabled() || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(am.apiKey)) == 1
}
