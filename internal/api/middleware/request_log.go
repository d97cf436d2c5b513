package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger persists one operation log row per API request
type RequestLogger interface {
	LogAPIRequest(tenantID string, userID uint, method, path string, statusCode int, durationMs int64, clientIP string) error
}

// RequestLogMiddleware records method, route, status and latency after the handler ran
func RequestLogMiddleware(logger RequestLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		tenantID, _ := GetTenantIDFromContext(c)
		userID, _ := GetUserIDFromContext(c)
		logger.LogAPIRequest(tenantID, userID, c.Request.Method, path, c.Writer.Status(), time.Since(start).Milliseconds(), c.ClientIP())
	}
}
