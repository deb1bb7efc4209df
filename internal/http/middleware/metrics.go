// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for the campaign API. Labels
// are bounded: the path label is the registered route template, or
// "unmatched" when no route matched, so raw paths (which may carry guest
// phones) never become label values.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath is the path label for requests that hit no route.
const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Dispatch results are small; delivery log pages reach a few hundred KiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "path"},
	)

	httpReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_idempotent_replays_total",
			Help: "Responses served from a stored Idempotency-Key result.",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpReplays)
}

// routeLabel is the bounded path label for c.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedPath
}

// Metrics instruments every request. Mount GET /metrics with promhttp next
// to it. Replays are counted when IdempotencyValidator answered from the
// store, which it signals with the Idempotency-Replayed header.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := routeLabel(c)
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Bodiless responses report -1.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if c.Writer.Header().Get(HeaderIdempotencyReplayed) == "true" {
			httpReplays.WithLabelValues(path).Inc()
		}
	}
}
