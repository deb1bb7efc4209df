package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/event-campaigns/internal/domain"
)

func guest(id, phone string, st domain.RSVPStatus) domain.Recipient {
	return domain.Recipient{ID: id, EventID: "e1", Name: id, Phone: phone, RSVPStatus: st}
}

func ids(ts []Target) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Recipient.ID
	}
	return out
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"050-123-4567", "0501234567", true},
		{"+972 (50) 123 4567", "972501234567", true},
		{"", "", false},
		{"n/a", "", false},
		{"123456", "", false},
		{"1234567", "1234567", true},
		{"1234567890123456", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizePhone(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestEligible_Table(t *testing.T) {
	all := []domain.RSVPStatus{domain.RSVPNoAnswer, domain.RSVPComing, domain.RSVPNotComing, domain.RSVPMaybe}
	want := map[domain.MessageKind][]domain.RSVPStatus{
		domain.KindSaveDate:    {domain.RSVPNoAnswer, domain.RSVPComing, domain.RSVPMaybe},
		domain.KindInvitation:  {domain.RSVPComing},
		domain.KindReminder:    {domain.RSVPNoAnswer},
		domain.KindTableNumber: {domain.RSVPComing},
		domain.KindThankYou:    {domain.RSVPComing},
		domain.KindCancel:      all,
	}
	for _, k := range domain.AllKinds {
		var got []domain.RSVPStatus
		for _, st := range all {
			if Eligible(k, st, domain.SegmentAll) {
				got = append(got, st)
			}
		}
		assert.Equal(t, want[k], got, "kind %s", k)
	}

	assert.True(t, Eligible(domain.KindCancel, domain.RSVPNotComing, domain.SegmentDeclined))
	assert.False(t, Eligible(domain.KindCancel, domain.RSVPComing, domain.SegmentDeclined))
	assert.True(t, Eligible(domain.KindCancel, domain.RSVPNoAnswer, domain.SegmentNoAnswer))
	assert.False(t, Eligible(domain.KindCancel, domain.RSVPMaybe, domain.SegmentComing))

	assert.Panics(t, func() { Eligible("bogus", domain.RSVPComing, domain.SegmentAll) })
}

func TestResolve_ScenarioA_FiltersAndDedups(t *testing.T) {
	in := []domain.Recipient{
		guest("g1", "050-111-1111", domain.RSVPNoAnswer),
		guest("g2", "0501111111", domain.RSVPNoAnswer),
		guest("g3", "", domain.RSVPNoAnswer),
		guest("g4", "0502222222", domain.RSVPComing),
		guest("g5", "0503333333", domain.RSVPNoAnswer),
	}
	got := Resolve(domain.KindReminder, in, domain.SegmentAll)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"g1", "g5"}, ids(got))
	assert.Equal(t, "0501111111", got[0].Phone)
}

func TestResolve_CancelSegment(t *testing.T) {
	in := []domain.Recipient{
		guest("g1", "0501111111", domain.RSVPComing),
		guest("g2", "0502222222", domain.RSVPNotComing),
		guest("g3", "0503333333", domain.RSVPNoAnswer),
	}
	assert.Equal(t, []string{"g2"}, ids(Resolve(domain.KindCancel, in, domain.SegmentDeclined)))
	assert.Equal(t, []string{"g1", "g2", "g3"}, ids(Resolve(domain.KindCancel, in, domain.SegmentAll)))
}

func TestResolve_Properties(t *testing.T) {
	in := []domain.Recipient{
		guest("a", "0501", domain.RSVPComing),
		guest("b", "+1 555 010 0001", domain.RSVPComing),
		guest("c", "15550100001", domain.RSVPComing),
		guest("d", "0509999999", domain.RSVPMaybe),
		guest("e", "0508888888", domain.RSVPComing),
	}
	for _, k := range domain.AllKinds {
		got := Resolve(k, in, domain.SegmentAll)
		seen := map[string]bool{}
		pos := map[string]int{}
		for i, r := range in {
			pos[r.ID] = i
		}
		last := -1
		for _, tg := range got {
			assert.True(t, Eligible(k, tg.Recipient.RSVPStatus, domain.SegmentAll))
			_, ok := NormalizePhone(tg.Phone)
			assert.True(t, ok)
			assert.False(t, seen[tg.Phone], "duplicate phone %s", tg.Phone)
			seen[tg.Phone] = true
			assert.Greater(t, pos[tg.Recipient.ID], last, "order not preserved")
			last = pos[tg.Recipient.ID]
		}
	}
}

func TestExcludeReached(t *testing.T) {
	ts := Resolve(domain.KindInvitation, []domain.Recipient{
		guest("g1", "0501111111", domain.RSVPComing),
		guest("g2", "0502222222", domain.RSVPComing),
		guest("g3", "0503333333", domain.RSVPComing),
	}, domain.SegmentAll)

	assert.Equal(t, ts, ExcludeReached(ts, nil))
	got := ExcludeReached(ts, map[string]struct{}{"0502222222": {}})
	assert.Equal(t, []string{"g1", "g3"}, ids(got))
}
