package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/repo"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newScheduleSvc(t *testing.T) (*ScheduleService, *domain.Event) {
	t.Helper()
	db := newSvcDB(t)
	ev := seedEvent(t, db, "acct", fixedNow.Add(60*24*time.Hour))
	s := NewScheduleService(db, scheduleRepo{})
	s.Now = func() time.Time { return fixedNow }
	return s, ev
}

func TestScheduleService_List_ProjectsDefaultsWithoutWriting(t *testing.T) {
	s, ev := newScheduleSvc(t)
	ctx := context.Background()

	views, err := s.List(ctx, "acct", ev.ID)
	require.NoError(t, err)
	require.Len(t, views, 5)
	for _, v := range views {
		assert.False(t, v.Persisted)
		assert.False(t, v.Auto)
		assert.True(t, v.SendAt.Equal(campaign.DefaultSendAt(v.Kind, *ev, campaign.DefaultSendHour)), "kind %s", v.Kind)
	}

	var n int64
	s.DB.Model(&domain.Schedule{}).Count(&n)
	assert.Zero(t, n, "listing must not persist defaults")

	at := fixedNow.Add(time.Hour)
	_, err = s.Upsert(ctx, "acct", ev.ID, domain.KindReminder, at, true)
	require.NoError(t, err)
	views, err = s.List(ctx, "acct", ev.ID)
	require.NoError(t, err)
	for _, v := range views {
		if v.Kind == domain.KindReminder {
			assert.True(t, v.Persisted)
			assert.True(t, v.Auto)
			assert.True(t, v.SendAt.Equal(at))
		}
	}
}

func TestScheduleService_Upsert_PastTimeRejected_PriorRowUnchanged(t *testing.T) {
	s, ev := newScheduleSvc(t)
	ctx := context.Background()

	at := fixedNow.Add(2 * time.Hour)
	prior, err := s.Upsert(ctx, "acct", ev.ID, domain.KindInvitation, at, true)
	require.NoError(t, err)

	for _, bad := range []time.Time{fixedNow, fixedNow.Add(-time.Minute)} {
		_, err = s.Upsert(ctx, "acct", ev.ID, domain.KindInvitation, bad, true)
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	}
	_, err = s.Patch(ctx, "acct", ev.ID, domain.KindInvitation, SchedulePatch{SendAt: ptr(fixedNow.Add(-time.Hour))})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	got, err := repo.GetSchedule(ctx, s.DB, ev.ID, domain.KindInvitation)
	require.NoError(t, err)
	assert.True(t, got.Auto)
	assert.True(t, got.SendAt.Equal(prior.SendAt))
}

func TestScheduleService_DisarmedEditSkipsFutureRule(t *testing.T) {
	s, ev := newScheduleSvc(t)
	ctx := context.Background()

	past := fixedNow.Add(-48 * time.Hour)
	got, err := s.Upsert(ctx, "acct", ev.ID, domain.KindThankYou, past, false)
	require.NoError(t, err)
	assert.False(t, got.Auto)
	assert.True(t, got.SendAt.Equal(past))

	// Arming the stored past time must fail; arming with a new future time works.
	_, err = s.Patch(ctx, "acct", ev.ID, domain.KindThankYou, SchedulePatch{Auto: ptr(true)})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	future := fixedNow.Add(time.Minute)
	got, err = s.Patch(ctx, "acct", ev.ID, domain.KindThankYou, SchedulePatch{SendAt: &future, Auto: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Auto)
	assert.True(t, got.SendAt.Equal(future))
}

func TestScheduleService_Patch_StartsFromDefault(t *testing.T) {
	s, ev := newScheduleSvc(t)
	got, err := s.Patch(context.Background(), "acct", ev.ID, domain.KindSaveDate, SchedulePatch{Auto: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Auto)
	assert.True(t, got.SendAt.Equal(campaign.DefaultSendAt(domain.KindSaveDate, *ev, campaign.DefaultSendHour)))
}

func TestScheduleService_Disarm_Idempotent(t *testing.T) {
	s, ev := newScheduleSvc(t)
	ctx := context.Background()

	require.NoError(t, s.Disarm(ctx, "acct", ev.ID, domain.KindReminder))
	_, err := repo.GetSchedule(ctx, s.DB, ev.ID, domain.KindReminder)
	assert.ErrorIs(t, err, repo.ErrNotFound, "disarm must not create a row")

	at := fixedNow.Add(time.Hour)
	_, err = s.Upsert(ctx, "acct", ev.ID, domain.KindReminder, at, true)
	require.NoError(t, err)
	require.NoError(t, s.Disarm(ctx, "acct", ev.ID, domain.KindReminder))
	require.NoError(t, s.Disarm(ctx, "acct", ev.ID, domain.KindReminder))

	got, err := repo.GetSchedule(ctx, s.DB, ev.ID, domain.KindReminder)
	require.NoError(t, err)
	assert.False(t, got.Auto)
	assert.True(t, got.SendAt.Equal(at))
}

func TestScheduleService_Rejections(t *testing.T) {
	s, ev := newScheduleSvc(t)
	ctx := context.Background()
	at := fixedNow.Add(time.Hour)

	_, err := s.Upsert(ctx, "acct", ev.ID, domain.KindCancel, at, true)
	assert.ErrorIs(t, err, ErrKindNotSchedulable)
	_, err = s.Upsert(ctx, "acct", ev.ID, "bogus", at, true)
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = s.Upsert(ctx, "someone-else", ev.ID, domain.KindReminder, at, true)
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, err = s.List(ctx, "acct", "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)

	require.NoError(t, s.DB.Model(&domain.Event{}).Where("id = ?", ev.ID).Update("canceled", true).Error)
	_, err = s.Upsert(ctx, "acct", ev.ID, domain.KindReminder, at, true)
	assert.ErrorIs(t, err, ErrEventCanceled)
	_, err = s.Upsert(ctx, "acct", ev.ID, domain.KindReminder, at, false)
	assert.ErrorIs(t, err, ErrEventCanceled)
	_, err = s.Patch(ctx, "acct", ev.ID, domain.KindReminder, SchedulePatch{SendAt: &at})
	assert.ErrorIs(t, err, ErrEventCanceled)
	assert.NoError(t, s.Disarm(ctx, "acct", ev.ID, domain.KindReminder))
}

func ptr[T any](v T) *T { return &v }
