// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// DeliveryStats returns the number of delivery log rows matching f and the
// newest CreatedAt among them. The log is append-only, so the pair changes
// whenever the listing would.
//
// Return values:
//   - count:        rows matching f
//   - maxCreatedAt: pointer to the greatest CreatedAt, or nil if no rows
//   - err:          database error, if any
func DeliveryStats(ctx context.Context, db *gorm.DB, f DeliveryFilter) (count int64, maxCreatedAt *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.DeliveryLogEntry{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = f.apply(db.WithContext(ctx).Model(&domain.DeliveryLogEntry{})).
		Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
