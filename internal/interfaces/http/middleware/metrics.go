package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that matched no route so scanners cannot
// blow up label cardinality
const unmatchedRoute = "unmatched"

// HTTPMetricsRecorder receives request measurements
type HTTPMetricsRecorder interface {
	HTTPStarted()
	HTTPFinished(method, route string, status int, elapsed time.Duration)
}

// HTTPMetrics records request count, latency and in-flight requests per
// route template
func HTTPMetrics(recorder HTTPMetricsRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		recorder.HTTPStarted()

		c.Next()

		recorder.HTTPFinished(c.Request.Method, routePattern(c), c.Writer.Status(), time.Since(start))
	}
}

// routePattern returns the matched route template, e.g. /api/v1/admin/returns/:id
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
