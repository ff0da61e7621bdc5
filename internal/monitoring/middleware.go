package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
)

// MonitoringMiddleware records request metrics and logs every request
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RecordRequest(route, c.Request.Method, status, duration)
		if logger != nil {
			logger.RequestLogger(c.Request.Method, c.Request.URL.Path, c.ClientIP(), status, duration)
		}

		if duration > 5*time.Second && logger != nil {
			logger.Warn("Slow request", "route", route, "duration_ms", duration.Milliseconds())
		}
	}
}
