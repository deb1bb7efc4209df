// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods (POST).
// A dispatch that was already answered for (account, route, key) is replayed
// from storage instead of being run again, so a client retrying after a
// timeout never sends a batch twice.
//
// Flow:
//   - validate the Idempotency-Key header and stash it (GetIdempotencyKey)
//   - look up a stored response; on hit, write it back with
//     Idempotency-Replayed: true and stop the chain
//   - a key whose first request is still running answers 409
//   - on miss, reserve the key, capture the response and hand 2xx results
//     to the store; anything else releases the reservation
package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed marks a response served from storage.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemReplay   = "idem.replay" // bool: true when a stored replay was served
	ctxKeyRateBypass   = "rate.bypass" // bool: true to skip rate limiting
	ctxKeyAccessLogged = "log.access"  // bool: access line owned by RedactingLogger
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response for this request was served from a
// stored idempotent result.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// StoredResponse is a previously recorded response. Pending is set while the
// request that owns the key is still running.
type StoredResponse struct {
	Status  int
	Body    []byte
	Pending bool
}

// IdempotencyLookup returns the stored response for (accountID, scope, key)
// if one is still valid at now, or nil. Errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, accountID, scope, key string, now time.Time) (*StoredResponse, error)

// IdempotencyStore records a successful response for later replay.
type IdempotencyStore func(ctx context.Context, accountID, scope, key string, status int, body []byte) error

// IdempotencyReserve claims a key before the handler runs. It returns false
// when another request already holds it.
type IdempotencyReserve func(ctx context.Context, accountID, scope, key string) (bool, error)

// IdempotencyRelease frees a reservation whose request did not succeed.
type IdempotencyRelease func(ctx context.Context, accountID, scope, key string) error

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Store persists 2xx responses of keyed requests. Optional.
	Store IdempotencyStore
	// Reserve and Release guard a key while its request runs. Optional;
	// Reserve errors fail open.
	Reserve IdempotencyReserve
	Release IdempotencyRelease
}

// IdempotencyScope is the scope a keyed request is stored under: method,
// concrete path and a digest of the body. The same key sent with a different
// payload (another event or kind) is a different operation. The body is
// restored for the handler.
func IdempotencyScope(c *gin.Context) (string, error) {
	var body []byte
	if c.Request.Body != nil {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		body = b
		c.Request.Body = io.NopCloser(bytes.NewReader(b))
	}
	sum := sha256.Sum256(body)
	return c.Request.Method + " " + c.Request.URL.Path + " " + hex.EncodeToString(sum[:8]), nil
}

// IdempotencyValidator validates the Idempotency-Key header on POST requests,
// replays stored responses and records new successful ones.
//
// Behavior:
//   - header absent or method not POST: no-op
//   - invalid header: 400 {"code":"bad_idempotency_key"}
//   - stored response found: written as-is, replay + rate-bypass flags set,
//     chain aborted
//   - key reserved by a running request: 409 {"code":"idempotency_in_progress"}
//   - otherwise the handler runs and a 2xx response is passed to opts.Store
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		ctx := c.Request.Context()
		account := AccountIDFrom(c)
		scope, err := IdempotencyScope(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_request",
				"message":    "unreadable request body",
			})
			return
		}

		if lookup != nil {
			if prev, err := lookup(ctx, account, scope, key, time.Now().UTC()); err == nil && prev != nil {
				if prev.Pending {
					abortInProgress(c)
					return
				}
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
				c.Header(HeaderIdempotencyReplayed, "true")
				c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
				c.Abort()
				return
			}
		}

		reserved := false
		if opts.Reserve != nil {
			ok, err := opts.Reserve(ctx, account, scope, key)
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("reserve idempotency key")
			case !ok:
				abortInProgress(c)
				return
			default:
				reserved = true
			}
		}
		stored := false
		if reserved && opts.Release != nil {
			// Deferred so a panicking handler does not pin the key.
			defer func() {
				if stored {
					return
				}
				if err := opts.Release(context.WithoutCancel(ctx), account, scope, key); err != nil {
					LoggerFrom(c).Warn().Err(err).Msg("release idempotency key")
				}
			}()
		}

		if opts.Store == nil {
			c.Next()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		if status := cw.Status(); status >= 200 && status < 300 && cw.buf.Len() > 0 {
			if err := opts.Store(ctx, account, scope, key, status, cw.buf.Bytes()); err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("store idempotent response")
				return
			}
			stored = true
		}
	}
}

func abortInProgress(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusConflict, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "idempotency_in_progress",
		"message":    "a request with this Idempotency-Key is still running",
	})
}

// captureWriter tees the response body into buf.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
