package middleware

import (
	"time"

	"pharmapos/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count, latency and in-flight gauge per route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlight(1)
		defer m.InFlight(-1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
