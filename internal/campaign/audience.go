// Package campaign holds the pure rules of the notification engine: who is
// eligible for each message kind, how phones are normalized, default send
// times and message composition. Nothing here touches storage or the
// network.
package campaign

import (
	"fmt"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// Phone length bounds after stripping everything but digits (E.164 allows
// at most 15).
const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// Target is a recipient that survived resolution, paired with the
// normalized phone used for sending, logging and dedup.
type Target struct {
	Recipient domain.Recipient
	Phone     string
}

// NormalizePhone keeps only the digits of raw. ok is false when the result
// is too short or too long to be a dialable number.
func NormalizePhone(raw string) (phone string, ok bool) {
	buf := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			buf = append(buf, c)
		}
	}
	if len(buf) < minPhoneDigits || len(buf) > maxPhoneDigits {
		return "", false
	}
	return string(buf), true
}

// Eligible reports whether a recipient with the given RSVP status should get
// kind. The segment only applies to cancel notices.
func Eligible(kind domain.MessageKind, status domain.RSVPStatus, seg domain.Segment) bool {
	switch kind {
	case domain.KindSaveDate:
		return status == domain.RSVPComing || status == domain.RSVPMaybe || status == domain.RSVPNoAnswer
	case domain.KindInvitation, domain.KindTableNumber, domain.KindThankYou:
		return status == domain.RSVPComing
	case domain.KindReminder:
		return status == domain.RSVPNoAnswer
	case domain.KindCancel:
		return inSegment(seg, status)
	default:
		panic(fmt.Sprintf("campaign: unhandled message kind %q", string(kind)))
	}
}

func inSegment(seg domain.Segment, status domain.RSVPStatus) bool {
	switch seg {
	case domain.SegmentAll, "":
		return true
	case domain.SegmentComing:
		return status == domain.RSVPComing
	case domain.SegmentDeclined:
		return status == domain.RSVPNotComing
	case domain.SegmentNoAnswer:
		return status == domain.RSVPNoAnswer
	}
	return false
}

// Resolve returns the recipients that should receive kind, in input order.
// Recipients with unusable phones are dropped and a phone shared by several
// recipients is kept only for the first of them.
func Resolve(kind domain.MessageKind, recipients []domain.Recipient, seg domain.Segment) []Target {
	out := make([]Target, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if !Eligible(kind, r.RSVPStatus, seg) {
			continue
		}
		phone, ok := NormalizePhone(r.Phone)
		if !ok {
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		out = append(out, Target{Recipient: r, Phone: phone})
	}
	return out
}

// ExcludeReached drops targets whose phone is in reached, keeping order.
func ExcludeReached(targets []Target, reached map[string]struct{}) []Target {
	if len(reached) == 0 {
		return targets
	}
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := reached[t.Phone]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
