package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderAccountID carries the owning account when the request body or query
// does not name one.
const HeaderAccountID = "X-Account-ID"

// ctxKeyAccount is the Gin context key holding the resolved account id.
const ctxKeyAccount = "accountID"

// Account stashes the X-Account-ID header (if any) in the Gin context so
// logging, rate limiting and idempotency can key on it.
func Account() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderAccountID)); id != "" {
			c.Set(ctxKeyAccount, id)
		}
		c.Next()
	}
}

// AccountIDFrom returns the account id stashed by Account, or "".
func AccountIDFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyAccount); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
