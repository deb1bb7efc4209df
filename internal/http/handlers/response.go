// Package handlers provides HTTP handler implementations for the campaign API.
//
// This file holds the response helpers shared by every endpoint. Errors go
// out in one envelope with a stable machine-readable code; a refused dispatch
// extends that envelope with the credit numbers behind the refusal.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "event_canceled",
//	  "message": "event is canceled"
//	}
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "eventId": "6f1c…", "kind": "reminder", "sendAt": "2026-06-03T07:00:00Z", "auto": true }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/event-campaigns/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable code, see errors.go
	Code string `json:"code" example:"not_found"`
	// Safe to show to the event owner
	Message string `json:"message" example:"event not found"`
}

// InsufficientCreditResponse is the 402 body of a refused manual dispatch.
type InsufficientCreditResponse struct {
	ErrorResponse
	Balance  int64 `json:"balance" example:"2"`
	Required int   `json:"required" example:"3"`
}

// envelope builds the error envelope for the current request.
func envelope(c *gin.Context, code, msg string) ErrorResponse {
	return ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
}

// fail aborts the request with the standard envelope.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, code, msg, envelope(c, code, msg))
}

// failWith aborts with body, which must embed or be an ErrorResponse.
// Server errors are logged at error level; client errors at debug with the
// caller account, so refused operations can be traced per owner.
func failWith(c *gin.Context, status int, code, msg string, body any) {
	lg := middleware.LoggerFrom(c)
	if status >= http.StatusInternalServerError {
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	} else {
		lg.Debug().
			Int("status", status).
			Str("code", code).
			Str("account", middleware.AccountIDFrom(c)).
			Msg("request refused")
	}
	c.AbortWithStatusJSON(status, body)
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes 204 with no body (disarm).
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
