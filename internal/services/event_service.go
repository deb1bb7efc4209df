package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/repo"
)

// EventService exposes the one event mutation the campaign engine owns:
// cancellation.
type EventService struct {
	DB *gorm.DB
}

// Get returns an event owned by ownerID.
func (s *EventService) Get(ctx context.Context, ownerID, eventID string) (*domain.Event, error) {
	ev, err := repo.GetEvent(ctx, s.DB, eventID, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return ev, nil
}

// Cancel marks the event canceled and disarms all of its schedules in one
// transaction. Canceling twice is harmless.
func (s *EventService) Cancel(ctx context.Context, ownerID, eventID string) (*domain.Event, error) {
	ctx, span := otel.Tracer("services/EventService").Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	var disarmed int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkEventCanceled(ctx, tx, eventID, ownerID); err != nil {
			return err
		}
		n, err := repo.DisarmAllSchedules(ctx, tx, eventID)
		disarmed = n
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	log.Info().
		Str("event_id", eventID).
		Int64("schedules_disarmed", disarmed).
		Msg("event canceled")
	return s.Get(ctx, ownerID, eventID)
}
