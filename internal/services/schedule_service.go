// Package services – ScheduleService
//
// This file implements ScheduleService, which owns the per-(event, kind)
// send plans. Arming requires a send time strictly in the future; disarming
// keeps the time so the operator can re-arm later. Kinds without a stored
// row are projected from the event date on read and never written back.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
)

// ScheduleRepo defines the repository contract required by ScheduleService.
type ScheduleRepo interface {
	// GetEvent fetches an event by id ensuring it belongs to ownerID.
	GetEvent(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Event, error)

	// GetSchedule returns the stored row for (eventID, kind).
	GetSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (*domain.Schedule, error)

	// ListSchedules returns every stored row of an event.
	ListSchedules(ctx context.Context, db *gorm.DB, eventID string) ([]domain.Schedule, error)

	// UpsertSchedule writes (eventID, kind) and returns the stored row.
	UpsertSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error)

	// DisarmSchedule clears auto for (eventID, kind); a missing row is a no-op.
	DisarmSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (int64, error)
}

// ScheduleView is one line of the schedule panel. Persisted is false for
// a computed default.
type ScheduleView struct {
	EventID   string             `json:"eventId"`
	Kind      domain.MessageKind `json:"kind"`
	SendAt    time.Time          `json:"sendAt"`
	Auto      bool               `json:"auto"`
	Persisted bool               `json:"persisted"`
}

// SchedulePatch holds the fields of a partial update. Nil means unchanged.
type SchedulePatch struct {
	SendAt *time.Time
	Auto   *bool
}

// ScheduleService manages schedules for events owned by the caller.
type ScheduleService struct {
	DB   *gorm.DB
	Repo ScheduleRepo

	// SendHour is the local hour of computed default send times.
	SendHour int
	// Now is the clock used for the future-time rule.
	Now func() time.Time
}

// NewScheduleService constructs a ScheduleService with the default send
// hour and the wall clock.
func NewScheduleService(db *gorm.DB, r ScheduleRepo) *ScheduleService {
	return &ScheduleService{
		DB:       db,
		Repo:     r,
		SendHour: campaign.DefaultSendHour,
		Now:      time.Now,
	}
}

func (s *ScheduleService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// List returns one view per schedulable kind: the stored row when present,
// otherwise the computed default. It never writes.
func (s *ScheduleService) List(ctx context.Context, ownerID, eventID string) ([]ScheduleView, error) {
	ctx, span := otel.Tracer("services/ScheduleService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	ev, err := s.event(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.ListSchedules(ctx, s.DB, eventID)
	if err != nil {
		return nil, err
	}
	stored := make(map[domain.MessageKind]domain.Schedule, len(rows))
	for _, r := range rows {
		stored[r.Kind] = r
	}

	kinds := domain.SchedulableKinds()
	out := make([]ScheduleView, 0, len(kinds))
	for _, k := range kinds {
		if r, ok := stored[k]; ok {
			out = append(out, ScheduleView{EventID: eventID, Kind: k, SendAt: r.SendAt.UTC(), Auto: r.Auto, Persisted: true})
			continue
		}
		out = append(out, ScheduleView{EventID: eventID, Kind: k, SendAt: campaign.DefaultSendAt(k, *ev, s.SendHour)})
	}
	return out, nil
}

// Upsert writes the full schedule for (eventID, kind). Arming with a send
// time that is not in the future fails with ErrInvalidSchedule and leaves
// the stored row untouched.
func (s *ScheduleService) Upsert(ctx context.Context, ownerID, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error) {
	ctx, span := otel.Tracer("services/ScheduleService").Start(ctx, "Upsert",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("kind", string(kind)),
			attribute.Bool("auto", auto),
		),
	)
	defer span.End()

	if err := checkSchedulable(kind); err != nil {
		return nil, err
	}
	ev, err := s.event(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Canceled {
		return nil, ErrEventCanceled
	}
	if auto && !sendAt.After(s.now()) {
		return nil, ErrInvalidSchedule
	}
	return s.Repo.UpsertSchedule(ctx, s.DB, eventID, kind, sendAt.UTC(), auto)
}

// Patch merges p onto the stored row, or onto the computed default when no
// row exists, then applies the same rules as Upsert.
func (s *ScheduleService) Patch(ctx context.Context, ownerID, eventID string, kind domain.MessageKind, p SchedulePatch) (*domain.Schedule, error) {
	ctx, span := otel.Tracer("services/ScheduleService").Start(ctx, "Patch",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("kind", string(kind)),
		),
	)
	defer span.End()

	if err := checkSchedulable(kind); err != nil {
		return nil, err
	}
	ev, err := s.event(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Canceled {
		return nil, ErrEventCanceled
	}

	sendAt := campaign.DefaultSendAt(kind, *ev, s.SendHour)
	auto := false
	cur, err := s.Repo.GetSchedule(ctx, s.DB, eventID, kind)
	switch {
	case err == nil:
		sendAt, auto = cur.SendAt, cur.Auto
	case !isNotFound(err):
		return nil, err
	}
	if p.SendAt != nil {
		sendAt = *p.SendAt
	}
	if p.Auto != nil {
		auto = *p.Auto
	}
	if auto && !sendAt.After(s.now()) {
		return nil, ErrInvalidSchedule
	}
	return s.Repo.UpsertSchedule(ctx, s.DB, eventID, kind, sendAt.UTC(), auto)
}

// Disarm turns automatic sending off for (eventID, kind). Disarming an
// already disarmed or never stored schedule is a no-op.
func (s *ScheduleService) Disarm(ctx context.Context, ownerID, eventID string, kind domain.MessageKind) error {
	ctx, span := otel.Tracer("services/ScheduleService").Start(ctx, "Disarm",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("kind", string(kind)),
		),
	)
	defer span.End()

	if err := checkSchedulable(kind); err != nil {
		return err
	}
	if _, err := s.event(ctx, ownerID, eventID); err != nil {
		return err
	}
	_, err := s.Repo.DisarmSchedule(ctx, s.DB, eventID, kind)
	return err
}

func (s *ScheduleService) event(ctx context.Context, ownerID, eventID string) (*domain.Event, error) {
	ev, err := s.Repo.GetEvent(ctx, s.DB, eventID, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return ev, nil
}

func checkSchedulable(kind domain.MessageKind) error {
	if _, err := domain.ParseMessageKind(string(kind)); err != nil {
		return ErrUnknownKind
	}
	if !kind.Schedulable() {
		return ErrKindNotSchedulable
	}
	return nil
}
