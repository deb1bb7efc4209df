package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/event-campaigns/internal/domain"
)

func TestOffsetDays_AllSchedulableKinds(t *testing.T) {
	want := map[domain.MessageKind]int{
		domain.KindSaveDate:    -60,
		domain.KindInvitation:  -30,
		domain.KindReminder:    -7,
		domain.KindTableNumber: 0,
		domain.KindThankYou:    1,
	}
	for _, k := range domain.SchedulableKinds() {
		assert.Equal(t, want[k], OffsetDays(k), "kind %s", k)
	}
	assert.Panics(t, func() { OffsetDays(domain.KindCancel) })
	assert.Panics(t, func() { OffsetDays("bogus") })
}

func TestDefaultSendAt_UsesEventTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	// 01:30 local on 10 July is still 9 July in UTC.
	ev := domain.Event{
		EventAt:  time.Date(2026, 7, 10, 1, 30, 0, 0, loc).UTC(),
		Timezone: "Asia/Jerusalem",
	}
	got := DefaultSendAt(domain.KindReminder, ev, DefaultSendHour)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(time.Date(2026, 7, 3, 10, 0, 0, 0, loc)), "got %v", got.In(loc))

	thanks := DefaultSendAt(domain.KindThankYou, ev, 9)
	assert.True(t, thanks.Equal(time.Date(2026, 7, 11, 9, 0, 0, 0, loc)), "got %v", thanks.In(loc))
}

func TestDefaultSendAt_UTCFallback(t *testing.T) {
	ev := domain.Event{EventAt: time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC)}
	got := DefaultSendAt(domain.KindInvitation, ev, DefaultSendHour)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)), "got %v", got)
}
