// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket limiter, one bucket per
// caller. It protects the transport gateway and the ledger from bursts of
// dispatch requests; it is not an authorization mechanism. Idle buckets are
// swept opportunistically. Requests replayed by IdempotencyValidator never
// consume tokens.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	defaultVisitorTTL = 10 * time.Minute
	// sweepEvery is the number of lookups between idle-bucket sweeps.
	sweepEvery = 5000
)

var httpRateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by key scope (acct or ip).",
	},
	[]string{"scope"},
)

func init() {
	prometheus.MustRegister(httpRateLimited)
}

// keyFunc maps a request to its bucket. Keys are "scope:identity".
type keyFunc func(*gin.Context) string

// KeyByAccountOrIP keys by the account resolved by Account(), falling back to
// the client IP ("acct:abc123" vs "ip:203.0.113.7").
func KeyByAccountOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := AccountIDFrom(c); id != "" {
			return "acct:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64

	writesOnly bool
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    max(burst, 1),
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      defaultVisitorTTL,
	}
}

// WritesOnly exempts GET and HEAD so listings and previews stay unthrottled.
func (rl *RateLimiter) WritesOnly() *RateLimiter {
	rl.writesOnly = true
	return rl
}

// getVisitor returns the limiter for key, creating it on first use. The
// sweep runs before the lookup so a stale bucket is dropped even when it is
// the one being asked for.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.cleanupN++; rl.cleanupN >= sweepEvery {
		rl.sweep(now)
		rl.cleanupN = 0
	}
	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// sweep drops buckets idle for at least ttl. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
		}
	}
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyRateBypass).(bool)
	return b
}

// Handler enforces the limit. A rejected request gets 429 with the standard
// error envelope (code "rate_limited") and a Retry-After, in whole seconds,
// of when the next token is due.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		if rl.writesOnly && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		now := time.Now()
		res := rl.getVisitor(key).ReserveN(now, 1)
		if res.OK() && res.DelayFrom(now) == 0 {
			c.Next()
			return
		}
		wait := time.Second
		if res.OK() {
			wait = res.DelayFrom(now)
			res.CancelAt(now)
		}

		scope, _, _ := strings.Cut(key, ":")
		httpRateLimited.WithLabelValues(scope).Inc()

		c.Header("Retry-After", retryAfter(wait))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter renders d as whole seconds, rounded up, at least 1.
func retryAfter(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
