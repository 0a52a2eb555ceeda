package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paysync/server/internal/shared/metrics"
)

// unmatchedRoute is the shared path label for requests that hit no route, so
// arbitrary request paths cannot grow the metric series.
const unmatchedRoute = "unmatched"

// routeLabel returns the metric label for a route template.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}

// Metrics returns a middleware that records HTTP metrics. Paths are labeled
// by route template, never by raw URL.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := routeLabel(c.FullPath())
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		m.RecordHTTPRequest(method, path, status, duration)
	}
}
