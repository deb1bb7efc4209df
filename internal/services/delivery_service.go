package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/repo"
)

// DeliveryLogService reads the append-only delivery log.
type DeliveryLogService struct {
	DB *gorm.DB
}

// ListPage returns a page of log rows matching f, newest first, and the
// total count. It applies defaults for invalid page/pageSize.
func (s *DeliveryLogService) ListPage(ctx context.Context, f repo.DeliveryFilter, page, pageSize int) ([]domain.DeliveryLogEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountDeliveries(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DeliveryLogEntry{}, 0, nil
	}
	items, err := repo.ListDeliveriesPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Stats returns the row count and newest timestamp for ETag computation.
func (s *DeliveryLogService) Stats(ctx context.Context, f repo.DeliveryFilter) (int64, *time.Time, error) {
	return repo.DeliveryStats(ctx, s.DB, f)
}

// AlreadyReceived returns the normalized phones that have a successful
// delivery of kind for the event. There is no time window.
func (s *DeliveryLogService) AlreadyReceived(ctx context.Context, ownerID, eventID string, kind domain.MessageKind) (map[string]struct{}, error) {
	return repo.ReachedPhones(ctx, s.DB, ownerID, eventID, kind)
}
