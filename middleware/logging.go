package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceIDHeader     = "X-Trace-ID"
	TraceParentHeader = "traceparent"
)

// traceIDContextKey is the gin context key holding the request trace-id.
const traceIDContextKey = "trace_id"

// RequestTraceID picks the trace-id for a request: the active OpenTelemetry
// span, then a W3C traceparent header, then X-Trace-ID, then a new random id.
func RequestTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if id := traceParentID(c.GetHeader(TraceParentHeader)); id != "" {
		return id
	}
	if id := c.GetHeader(TraceIDHeader); id != "" {
		return id
	}
	return newTraceID()
}

// traceParentID returns the trace-id field of "version-traceid-parentid-flags".
func traceParentID(v string) string {
	parts := strings.Split(v, "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	return parts[1]
}

func newTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// LoggingMiddleware attaches a trace-scoped zerolog logger to the request
// context and writes one access-log line per request. Register it after
// TracingMiddleware so the trace-id matches the server span. Headers are
// never logged; they carry bearer tokens and session cookies.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := RequestTraceID(c)

		c.Set(traceIDContextKey, traceID)
		logger := log.With().Str("trace_id", traceID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Header(TraceIDHeader, traceID)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("HTTP request")
	}
}
