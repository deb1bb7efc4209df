package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/observability"
	"github.com/tbourn/event-campaigns/internal/repo"
)

// Dispatcher runs one batch. *DispatchService implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error)
}

// FiredSchedule reports what happened to one due schedule.
type FiredSchedule struct {
	ScheduleID string             `json:"scheduleId"`
	EventID    string             `json:"eventId"`
	Kind       domain.MessageKind `json:"kind"`
	Result     *DispatchResult    `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// SchedulerService fires due schedules. Each due schedule is claimed
// (atomically disarmed) before it is dispatched, so it is handed to the
// dispatcher at most once and ends disarmed whatever the outcome.
type SchedulerService struct {
	DB         *gorm.DB
	Dispatcher Dispatcher

	// BatchLimit caps schedules handled per run; <= 0 means all.
	BatchLimit int
	// Now is the clock used by Run.
	Now func() time.Time
}

// DueSchedules lists armed schedules whose send time has passed.
func (s *SchedulerService) DueSchedules(ctx context.Context, now time.Time) ([]repo.DueSchedule, error) {
	return repo.DueSchedules(ctx, s.DB, now, s.BatchLimit)
}

// RunDue claims and dispatches every schedule due at now. A failing
// schedule does not stop the others; its error is reported in the result.
func (s *SchedulerService) RunDue(ctx context.Context, now time.Time) ([]FiredSchedule, error) {
	ctx, span := otel.Tracer("services/SchedulerService").Start(ctx, "RunDue",
		trace.WithAttributes(attribute.String("now", now.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	due, err := s.DueSchedules(ctx, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("due", len(due)))

	fired := make([]FiredSchedule, 0, len(due))
	for _, d := range due {
		f := FiredSchedule{ScheduleID: d.ID, EventID: d.EventID, Kind: d.Kind}
		claimed, err := repo.ClaimSchedule(ctx, s.DB, d.ID)
		if err != nil {
			// Still armed; the next run retries it.
			f.Error = fmt.Sprintf("claim: %v", err)
			log.Warn().Err(err).
				Str("schedule_id", d.ID).
				Str("event_id", d.EventID).
				Msg("claim schedule failed")
			fired = append(fired, f)
			continue
		}
		if !claimed {
			continue
		}
		observability.ObserveScheduleFired()

		res, err := s.Dispatcher.Dispatch(ctx, DispatchRequest{
			OwnerID:         d.OwnerID,
			EventID:         d.EventID,
			Kind:            d.Kind,
			Segment:         domain.SegmentAll,
			SkipAlreadySent: true,
			BestEffort:      true,
			Trigger:         domain.TriggerScheduled,
		})
		if err != nil {
			f.Error = err.Error()
			log.Warn().Err(err).
				Str("schedule_id", d.ID).
				Str("event_id", d.EventID).
				Str("kind", string(d.Kind)).
				Msg("scheduled dispatch failed")
		}
		f.Result = res
		fired = append(fired, f)
	}
	return fired, nil
}

// Run calls RunDue immediately and then every interval until ctx is done.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SchedulerService) tick(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	fired, err := s.RunDue(ctx, now)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("scheduler run failed")
	}
	if len(fired) > 0 {
		log.Info().Int("fired", len(fired)).Msg("scheduler run")
	}
}
