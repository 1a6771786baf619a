package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-io/schoolhub-api/internal/service"
)

// Metrics times every request and feeds the outcome to the metrics
// service. Unmatched routes are labelled by their raw URL path so they
// still show up in the counters.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
