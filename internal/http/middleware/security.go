// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders: baseline hardening for a JSON API plus
// per-prefix cache control. Credit balances and dispatch results are never
// cacheable; listings that carry an ETag (delivery log, schedules) may be
// stored by the client but must be revalidated.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	// Enable it only when the proxy to app hop is HTTPS too.
	EnableHSTS bool
	HSTSMaxAge time.Duration // defaults to 180 days

	// NoStore marks every response no-store; NoStorePrefixes limits that to
	// the listed path prefixes.
	NoStore         bool
	NoStorePrefixes []string

	// RevalidatePrefixes get "private, no-cache" so conditional GETs
	// (If-None-Match) reach the server on every use.
	RevalidatePrefixes []string

	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, then the optional headers selected by opt. X-Request-ID is
// added to Access-Control-Expose-Headers when present.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		path := c.Request.URL.Path
		switch {
		case opt.NoStore || hasAnyPrefix(path, opt.NoStorePrefixes):
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case hasAnyPrefix(path, opt.RevalidatePrefixes):
			h.Set("Cache-Control", "private, no-cache")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}

		c.Next()
	}
}

// isHTTPS reports TLS on the connection or X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// exposeHeader appends name to Access-Control-Expose-Headers once.
func exposeHeader(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	if cur == "" {
		h.Set(hdr, name)
	} else if !strings.Contains(cur, name) {
		h.Set(hdr, cur+", "+name)
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
