// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to the events and guests
// owned by the host application, plus the cancel flag the campaign engine
// maintains.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetEvent fetches an event by id and owner. An event owned by someone else
// is reported as ErrNotFound.
func GetEvent(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Event, error) {
	var ev domain.Event
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListRecipients returns the guests of an event in a stable order
// (creation time, then id).
func ListRecipients(ctx context.Context, db *gorm.DB, eventID string) ([]domain.Recipient, error) {
	var out []domain.Recipient
	err := db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// MarkEventCanceled sets the canceled flag. Returns ErrNotFound when the
// event does not exist for ownerID.
func MarkEventCanceled(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("canceled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
