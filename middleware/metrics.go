package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the request counter and latency histogram.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewHTTPMetrics creates the collectors and registers them with reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	labels := []string{"method", "route", "status", "response_code"}
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "food_delivery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by route and response code.",
		}, labels),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "food_delivery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.Requests, m.Duration)
	return m
}

// Metrics records RED metrics labelled by the matched route template so
// path parameters do not explode cardinality.
func Metrics(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		label := prometheus.Labels{
			"method":        c.Request.Method,
			"route":         route,
			"status":        statusClass(code),
			"response_code": strconv.Itoa(code),
		}
		m.Duration.With(label).Observe(time.Since(start).Seconds())
		m.Requests.With(label).Inc()
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5XX"
	case code >= 400:
		return "4XX"
	case code >= 300:
		return "3XX"
	case code >= 200:
		return "2XX"
	}
	return "1XX"
}
