package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextKeyIntent is set by the fulfillment handler to the intent of the
// request's first input, so webhook traffic is broken down per intent.
const ContextKeyIntent = "fulfillment_intent"

// Health checks and scrapes are not recorded.
var unrecordedPaths = map[string]bool{
	"/metrics": true,
	"/health":  true,
}

// HTTPMetricsMiddleware records request counts and latency by route, plus
// webhook counts by intent for fulfillment calls.
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if unrecordedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())

		if intent := c.GetString(ContextKeyIntent); intent != "" {
			metrics.WebhookRequestsTotal.WithLabelValues(intent, status).Inc()
		}
	}
}
