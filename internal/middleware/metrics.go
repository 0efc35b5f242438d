package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/response"
)

// Metrics records request counts and latency per route pattern, plus the
// error code of every error envelope
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics.ShouldSkipEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		if code := c.GetString(response.ErrorCodeKey); code != "" {
			m.RecordAPIError(route, code)
		}
	}
}
