// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file covers correlation and logging:
//
//   - RequestID propagates or mints X-Request-ID.
//   - Logger installs the request-scoped zerolog.Logger (read back with
//     LoggerFrom) and, unless RedactingLogger already owns it, writes the
//     access line.
//   - Recovery turns a panic into the standard 500 envelope.
//
// Recommended order: RequestID, Account, RedactingLogger, Logger, Recovery.
// Paths and query strings are redacted before they reach a log line, since
// guest phones travel in delivery log filters.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps logged query strings, in bytes.
	maxQueryLogLength = 2048
)

// RequestID reuses an incoming X-Request-ID or generates a UUIDv4, echoes it
// on the response and stores it in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger attaches a request-scoped logger carrying the request id, caller
// account, route and (when otelgin started a span) the trace id. Handlers
// and services pick it up with LoggerFrom.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = Redact(c.Request.URL.Path)
		}

		lc := log.With().
			Str("request_id", asString(rid)).
			Str("account_id", AccountIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path)
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			lc = lc.Str("trace_id", sc.TraceID().String())
		}
		l := lc.Logger()
		c.Set(loggerKey, &l)

		c.Next()

		if c.GetBool(ctxKeyAccessLogged) {
			return
		}

		status := c.Writer.Status()
		ev := accessEvent(&l, status, len(c.Errors) > 0).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(Redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("bytes_out", c.Writer.Size())
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// accessEvent picks the level: error for 5xx or handler errors, warn for
// 4xx, info otherwise.
func accessEvent(l *zerolog.Logger, status int, hasErrors bool) *zerolog.Event {
	switch {
	case hasErrors || status >= http.StatusInternalServerError:
		return l.Error()
	case status >= http.StatusBadRequest:
		return l.Warn()
	default:
		return l.Info()
	}
}

// Recovery converts a panic into a 500 with the standard error envelope. If
// the handler already wrote a response only the status is set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := asString(c.Value(requestIDKey))
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// Logger did not run. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
