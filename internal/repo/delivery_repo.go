package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// DeliveryFilter narrows delivery log queries. Empty fields match anything
// except OwnerID, which is always applied.
type DeliveryFilter struct {
	OwnerID string
	EventID string
	Kind    domain.MessageKind
	Phone   string
	Outcome domain.Outcome
}

func (f DeliveryFilter) apply(q *gorm.DB) *gorm.DB {
	q = q.Where("owner_id = ?", f.OwnerID)
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Phone != "" {
		q = q.Where("phone = ?", f.Phone)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	return q
}

// AppendDelivery inserts one delivery log row. ID and CreatedAt are filled
// when empty.
func AppendDelivery(ctx context.Context, db *gorm.DB, e *domain.DeliveryLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(e).Error
}

// CountDeliveries returns the number of rows matching f.
func CountDeliveries(ctx context.Context, db *gorm.DB, f DeliveryFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.DeliveryLogEntry{})).Count(&total).Error
	return total, err
}

// ListDeliveriesPage returns rows matching f, newest first.
func ListDeliveriesPage(ctx context.Context, db *gorm.DB, f DeliveryFilter, offset, limit int) ([]domain.DeliveryLogEntry, error) {
	var out []domain.DeliveryLogEntry
	err := f.apply(db.WithContext(ctx).Model(&domain.DeliveryLogEntry{})).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ReachedPhones returns the normalized phones that already have a sent row
// for (ownerID, eventID, kind). Failed rows do not count.
func ReachedPhones(ctx context.Context, db *gorm.DB, ownerID, eventID string, kind domain.MessageKind) (map[string]struct{}, error) {
	var phones []string
	err := db.WithContext(ctx).
		Model(&domain.DeliveryLogEntry{}).
		Where("owner_id = ? AND event_id = ? AND kind = ? AND outcome = ?", ownerID, eventID, kind, domain.OutcomeSent).
		Distinct().
		Pluck("phone", &phones).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		out[p] = struct{}{}
	}
	return out, nil
}
