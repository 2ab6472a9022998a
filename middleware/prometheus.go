package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// AuthLoginsTotal counts login attempts by result (success, invalid_credentials, error).
	AuthLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// AuthChecksTotal counts authentication checks by channel (bearer, cookie) and result.
	AuthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_checks_total",
		Help: "Authentication checks by channel and result.",
	}, []string{"channel", "result"})

	// SessionIntegrityViolationsTotal counts destroyed cookie sessions by reason.
	SessionIntegrityViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_session_integrity_violations_total",
		Help: "Cookie sessions destroyed by an integrity check, by reason.",
	}, []string{"reason"})

	// SessionRegenerationsTotal counts cookie-session identifier rotations.
	SessionRegenerationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_session_regenerations_total",
		Help: "Cookie-session identifier rotations.",
	})

	// SessionsSweptTotal counts expired session records deleted by sweeps.
	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_swept_total",
		Help: "Expired session records deleted.",
	})
)

// PrometheusMiddleware records request counts and latency per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
