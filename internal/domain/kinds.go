package domain

import "fmt"

// MessageKind is the closed set of notification kinds the campaign engine
// can send. Every switch over MessageKind must handle all six values.
type MessageKind string

const (
	KindSaveDate    MessageKind = "save-date"
	KindInvitation  MessageKind = "invitation"
	KindReminder    MessageKind = "reminder"
	KindTableNumber MessageKind = "table-number"
	KindThankYou    MessageKind = "thank-you"
	KindCancel      MessageKind = "cancel"
)

// AllKinds lists every MessageKind in presentation order.
var AllKinds = []MessageKind{
	KindSaveDate,
	KindInvitation,
	KindReminder,
	KindTableNumber,
	KindThankYou,
	KindCancel,
}

// ParseMessageKind validates s against the closed set of kinds.
func ParseMessageKind(s string) (MessageKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown message kind %q", s)
}

// Schedulable reports whether the kind can be armed for automatic sending.
// Cancel notices are only ever sent on demand.
func (k MessageKind) Schedulable() bool {
	switch k {
	case KindSaveDate, KindInvitation, KindReminder, KindTableNumber, KindThankYou:
		return true
	case KindCancel:
		return false
	default:
		panic(fmt.Sprintf("domain: unhandled message kind %q", string(k)))
	}
}

// SchedulableKinds returns the kinds that carry a schedule row.
func SchedulableKinds() []MessageKind {
	out := make([]MessageKind, 0, len(AllKinds)-1)
	for _, k := range AllKinds {
		if k.Schedulable() {
			out = append(out, k)
		}
	}
	return out
}

// RSVPStatus is a recipient's attendance answer.
type RSVPStatus string

const (
	RSVPNoAnswer  RSVPStatus = "no-answer"
	RSVPComing    RSVPStatus = "coming"
	RSVPNotComing RSVPStatus = "not-coming"
	RSVPMaybe     RSVPStatus = "maybe"
)

// EventType drives how celebrants are named in outgoing messages.
type EventType string

const (
	EventWedding    EventType = "wedding"
	EventBarMitzvah EventType = "bar-mitzvah"
	EventBatMitzvah EventType = "bat-mitzvah"
	EventBrit       EventType = "brit"
	EventBirthday   EventType = "birthday"
	EventOther      EventType = "other"
)

// Segment filters the audience of a cancel notice.
type Segment string

const (
	SegmentAll      Segment = "all"
	SegmentComing   Segment = "coming"
	SegmentDeclined Segment = "declined"
	SegmentNoAnswer Segment = "no-answer"
)

// ParseSegment maps a request value to a Segment. Empty means all.
func ParseSegment(s string) (Segment, error) {
	switch Segment(s) {
	case "":
		return SegmentAll, nil
	case SegmentAll, SegmentComing, SegmentDeclined, SegmentNoAnswer:
		return Segment(s), nil
	}
	return "", fmt.Errorf("unknown segment %q", s)
}

// Outcome is the result of one send attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Trigger records who started a batch.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)
