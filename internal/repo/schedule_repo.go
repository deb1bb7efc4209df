package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// GetSchedule returns the persisted schedule for (eventID, kind) or
// ErrNotFound.
func GetSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (*domain.Schedule, error) {
	var s domain.Schedule
	err := db.WithContext(ctx).
		Where("event_id = ? AND kind = ?", eventID, kind).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSchedules returns every persisted schedule of an event.
func ListSchedules(ctx context.Context, db *gorm.DB, eventID string) ([]domain.Schedule, error) {
	var out []domain.Schedule
	err := db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("send_at asc").
		Find(&out).Error
	return out, err
}

// UpsertSchedule inserts or replaces the (eventID, kind) schedule with the
// given sendAt and auto values and returns the stored row.
func UpsertSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error) {
	now := time.Now().UTC()
	s := &domain.Schedule{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Kind:      kind,
		SendAt:    sendAt.UTC(),
		Auto:      auto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"send_at", "auto", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return nil, err
	}
	return GetSchedule(ctx, db, eventID, kind)
}

// DisarmSchedule flips auto to false for (eventID, kind) and keeps sendAt.
// It reports how many rows changed; a missing row is not an error.
func DisarmSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Schedule{}).
		Where("event_id = ? AND kind = ? AND auto = ?", eventID, kind, true).
		Updates(map[string]any{"auto": false, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// DisarmAllSchedules disarms every schedule of an event.
func DisarmAllSchedules(ctx context.Context, db *gorm.DB, eventID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Schedule{}).
		Where("event_id = ? AND auto = ?", eventID, true).
		Updates(map[string]any{"auto": false, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// DueSchedule is a due schedule joined with the owner of its event.
type DueSchedule struct {
	domain.Schedule
	OwnerID string
}

// DueSchedules returns armed schedules with send_at <= now whose event is
// not canceled, oldest first. limit <= 0 means no limit.
func DueSchedules(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]DueSchedule, error) {
	var out []DueSchedule
	q := db.WithContext(ctx).
		Table("schedules AS s").
		Select("s.*, e.owner_id AS owner_id").
		Joins("JOIN events AS e ON e.id = s.event_id").
		Where("s.auto = ? AND s.send_at <= ? AND e.canceled = ?", true, now.UTC(), false).
		Order("s.send_at asc, s.id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&out).Error
	return out, err
}

// ClaimSchedule disarms an armed schedule and reports whether this caller
// won it. Concurrent claimers of the same id see exactly one true.
func ClaimSchedule(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Schedule{}).
		Where("id = ? AND auto = ?", id, true).
		Updates(map[string]any{"auto": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
