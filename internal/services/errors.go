// Package services defines the business logic of the campaign engine.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Event and schedule errors.
var (
	// ErrEventNotFound indicates that the event does not exist or is not
	// owned by the calling account.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventCanceled is returned when arming, editing or sending a
	// non-cancel message for a canceled event.
	ErrEventCanceled = errors.New("event is canceled")

	// ErrInvalidSchedule is returned when arming a schedule whose send time
	// is not strictly in the future.
	ErrInvalidSchedule = errors.New("schedule send time must be in the future")

	// ErrKindNotSchedulable is returned for schedule operations on cancel.
	ErrKindNotSchedulable = errors.New("message kind cannot be scheduled")

	// ErrUnknownKind is returned for a message kind outside the closed set.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrInvalidSegment is returned for an unknown cancel segment.
	ErrInvalidSegment = errors.New("unknown segment")
)

// Credit errors.
var (
	// ErrInsufficientCredit is returned by a manual dispatch whose audience
	// is larger than the balance. Nothing is sent.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrNegativeBalance is returned when an adjustment would take the
	// balance below zero.
	ErrNegativeBalance = errors.New("balance cannot become negative")
)

// InsufficientCreditError carries the numbers behind ErrInsufficientCredit.
type InsufficientCreditError struct {
	Balance  int64
	Required int
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: balance %d, required %d", e.Balance, e.Required)
}

// Unwrap lets errors.Is(err, ErrInsufficientCredit) match.
func (e *InsufficientCreditError) Unwrap() error { return ErrInsufficientCredit }

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
