package campaign

import (
	"fmt"
	"time"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// DefaultSendHour is the local hour used for computed schedules.
const DefaultSendHour = 10

// OffsetDays is the default distance, in calendar days, between the event
// date and the send date of a schedulable kind.
func OffsetDays(kind domain.MessageKind) int {
	switch kind {
	case domain.KindSaveDate:
		return -60
	case domain.KindInvitation:
		return -30
	case domain.KindReminder:
		return -7
	case domain.KindTableNumber:
		return 0
	case domain.KindThankYou:
		return 1
	case domain.KindCancel:
		panic("campaign: cancel has no schedule")
	default:
		panic(fmt.Sprintf("campaign: unhandled message kind %q", string(kind)))
	}
}

// DefaultSendAt computes the suggested send instant for kind: the event's
// local calendar date shifted by OffsetDays, at hour:00 in the event's
// timezone. The result is in UTC.
func DefaultSendAt(kind domain.MessageKind, ev domain.Event, hour int) time.Time {
	loc := ev.Location()
	local := ev.EventAt.In(loc)
	d := time.Date(local.Year(), local.Month(), local.Day()+OffsetDays(kind), hour, 0, 0, 0, loc)
	return d.UTC()
}
