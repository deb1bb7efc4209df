// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These codes give clients a stable, machine-readable error taxonomy that
// supplements human-readable messages. Clients branch on `code`, not on the
// message text.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Campaign codes name the business rule that refused the request.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "insufficient_credit",
//	  "message": "insufficient credit: balance 2, required 3"
//	}
package handlers

const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeInternal   = "internal_error"

	// Written by middleware.RateLimiter.
	ErrCodeRateLimited = "rate_limited"

	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Campaign rules:
	ErrCodeInvalidSchedule    = "invalid_schedule"
	ErrCodeEventCanceled      = "event_canceled"
	ErrCodeInsufficientCredit = "insufficient_credit"
	ErrCodeNegativeBalance    = "negative_balance"
	ErrCodeListFailed         = "list_failed"
)
