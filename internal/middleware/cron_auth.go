package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CronSecretHeader carries the shared secret of internal triggers
const CronSecretHeader = "X-Cron-Secret"

// CronAuth guards internal trigger endpoints with a shared secret. When no secret is
// configured the endpoints are disabled.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Internal triggers are not configured",
			})
			return
		}
		got := c.GetHeader(CronSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid cron secret",
			})
			return
		}
		c.Set("userRole", "system")
		c.Next()
	}
}
