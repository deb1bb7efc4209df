package campaign

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/event-campaigns/internal/domain"
)

const (
	dateLayout = "Monday, 2 January 2006"
	timeLayout = "15:04"
)

// Overrides carries operator input for a single dispatch. Only cancel
// notices read it.
type Overrides struct {
	Text            string `json:"text,omitempty"`
	IncludeLocation bool   `json:"includeLocation,omitempty"`
	Link            string `json:"link,omitempty"`
}

// Composer renders message bodies. It is stateless apart from the public
// RSVP base URL and safe for concurrent use.
type Composer struct {
	RSVPBaseURL string
}

// NewComposer returns a Composer that links RSVP pages under rsvpBaseURL.
func NewComposer(rsvpBaseURL string) *Composer {
	return &Composer{RSVPBaseURL: strings.TrimRight(rsvpBaseURL, "/")}
}

// Compose returns the text sent to r for kind. It never fails.
func (c *Composer) Compose(kind domain.MessageKind, r domain.Recipient, ev domain.Event, ov Overrides) string {
	loc := ev.Location()
	at := ev.EventAt.In(loc)
	date := at.Format(dateLayout)
	clock := at.Format(timeLayout)
	occasion := c.Occasion(ev)
	place := joinNonEmpty(", ", ev.Venue, ev.Address)

	var b strings.Builder
	b.WriteString(c.greeting(r))
	b.WriteString("\n\n")

	switch kind {
	case domain.KindSaveDate:
		fmt.Fprintf(&b, "Save the date for %s on %s. A formal invitation will follow.", occasion, date)
	case domain.KindInvitation:
		fmt.Fprintf(&b, "You are invited to %s on %s at %s%s.", occasion, date, clock, prefixed(", ", place))
		c.writeRSVP(&b, r, "Please let us know if you can make it")
	case domain.KindReminder:
		fmt.Fprintf(&b, "A reminder that %s is on %s at %s%s. We have not heard back from you yet.", occasion, date, clock, prefixed(", ", place))
		c.writeRSVP(&b, r, "Please reply here")
	case domain.KindTableNumber:
		fmt.Fprintf(&b, "Welcome to %s!", occasion)
		if t := strings.TrimSpace(r.Table); t != "" {
			fmt.Fprintf(&b, " Your table is %s.", t)
		} else {
			b.WriteString(" Seating is listed at the entrance.")
		}
	case domain.KindThankYou:
		fmt.Fprintf(&b, "Thank you for celebrating %s with us. It meant a lot to have you there.", occasion)
	case domain.KindCancel:
		if txt := strings.TrimSpace(ov.Text); txt != "" {
			b.WriteString(txt)
		} else {
			fmt.Fprintf(&b, "We are sorry to let you know that %s, planned for %s, has been canceled.", occasion, date)
		}
		if ov.IncludeLocation && place != "" {
			fmt.Fprintf(&b, "\n\nLocation: %s", place)
		}
		if link := strings.TrimSpace(ov.Link); link != "" {
			fmt.Fprintf(&b, "\n\n%s", link)
		}
	default:
		panic(fmt.Sprintf("campaign: unhandled message kind %q", string(kind)))
	}
	return b.String()
}

// Celebrants names the people being celebrated according to the event type.
func (c *Composer) Celebrants(ev domain.Event) string {
	n1, n2 := c.name(ev.Name1), c.name(ev.Name2)
	switch ev.Type {
	case domain.EventWedding:
		return joinNonEmpty(" & ", n1, n2)
	case domain.EventBarMitzvah, domain.EventBatMitzvah, domain.EventBrit, domain.EventBirthday:
		if n1 == "" {
			return n2
		}
		return n1
	default:
		return joinNonEmpty(" & ", n1, n2)
	}
}

// Occasion is the phrase used inside sentences, e.g.
// "the Wedding of Dana & Avi".
func (c *Composer) Occasion(ev domain.Event) string {
	label := "Celebration"
	switch ev.Type {
	case domain.EventWedding, domain.EventBarMitzvah, domain.EventBatMitzvah, domain.EventBrit, domain.EventBirthday:
		label = c.caser().String(strings.ReplaceAll(string(ev.Type), "-", " "))
	}
	who := c.Celebrants(ev)
	if who == "" {
		return "our " + label
	}
	return "the " + label + " of " + who
}

// RSVPLink is the per-recipient reply page. Empty when no base URL is set.
func (c *Composer) RSVPLink(r domain.Recipient) string {
	if c.RSVPBaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.RSVPBaseURL, "/") + "/rsvp/" + r.ID
}

func (c *Composer) writeRSVP(b *strings.Builder, r domain.Recipient, lead string) {
	if link := c.RSVPLink(r); link != "" {
		fmt.Fprintf(b, "\n%s: %s", lead, link)
	}
}

func (c *Composer) greeting(r domain.Recipient) string {
	if n := c.name(r.Name); n != "" {
		return "Hi " + n + ","
	}
	return "Hi,"
}

func (c *Composer) name(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return c.caser().String(s)
}

// caser returns a fresh Title caser; a cases.Caser is not safe to share
// between goroutines.
func (c *Composer) caser() cases.Caser {
	return cases.Title(language.English, cases.NoLower)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func prefixed(prefix, s string) string {
	if s == "" {
		return ""
	}
	return prefix + s
}
