// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (owner_id, scope, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("owner_id = ? AND scope = ? AND key = ? AND expires_at > ?", ownerID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores the response of a completed request and returns
// ErrDuplicate on unique violation. Expired rows for the same tuple are
// replaced.
func CreateIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string, status int, body []byte, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Scope:     scope,
		Key:       key,
		Status:    status,
		Body:      body,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND scope = ? AND key = ? AND expires_at <= ?", ownerID, scope, key, now).
			Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// ReserveIdempotency inserts a pending record (status 0) before the request
// runs. A concurrent request with the same tuple gets ErrDuplicate. The
// short ttl bounds how long a crashed request blocks its key.
func ReserveIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string, ttl time.Duration) error {
	_, err := CreateIdempotency(ctx, db, ownerID, scope, key, 0, nil, ttl)
	return err
}

// CompleteIdempotency stores the final response on a pending record and
// extends it to ttl. Without a pending row it falls back to
// CreateIdempotency.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string, status int, body []byte, ttl time.Duration) error {
	res := db.WithContext(ctx).Model(&domain.Idempotency{}).
		Where("owner_id = ? AND scope = ? AND key = ? AND status = 0", ownerID, scope, key).
		Updates(map[string]any{
			"status":     status,
			"body":       body,
			"expires_at": time.Now().UTC().Add(ttl),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	_, err := CreateIdempotency(ctx, db, ownerID, scope, key, status, body, ttl)
	return err
}

// ReleaseIdempotency drops a pending record so the key can be retried.
// Completed records are left alone.
func ReleaseIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND scope = ? AND key = ? AND status = 0", ownerID, scope, key).
		Delete(&domain.Idempotency{}).Error
}

// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
