// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the credit ledger. Every mutation is a
// single conditional UPDATE so the balance can never go below zero even
// with concurrent writers.
//
// A send moves one credit through two steps:
//
//	ReserveCredit:  balance-1, reserved+1   (only if balance > 0)
//	CommitCredit:   reserved-1, used+1      (send succeeded)
//	ReleaseCredit:  reserved-1, balance+1   (send failed)
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/event-campaigns/internal/domain"
)

var (
	// ErrNoCredit is returned by ReserveCredit when the balance is zero.
	ErrNoCredit = errors.New("no credit")
	// ErrNegativeBalance is returned by AdjustCredit when the delta would
	// take the balance below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrNoReservation is returned when settling a credit that was never
	// reserved.
	ErrNoReservation = errors.New("no reserved credit")
)

// GetCredit returns the owner's account. A missing account is reported as
// a zero-balance account, not an error.
func GetCredit(ctx context.Context, db *gorm.DB, ownerID string) (*domain.CreditAccount, error) {
	var acc domain.CreditAccount
	err := db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.CreditAccount{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// AdjustCredit adds delta (which may be negative) to the balance and returns
// the updated account. Accounts are created on first positive adjustment.
func AdjustCredit(ctx context.Context, db *gorm.DB, ownerID string, delta int64) (*domain.CreditAccount, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if delta >= 0 {
			acc := domain.CreditAccount{OwnerID: ownerID, UpdatedAt: time.Now().UTC()}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acc).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&domain.CreditAccount{}).
			Where("owner_id = ? AND balance + ? >= 0", ownerID, delta).
			Updates(map[string]any{
				"balance":    gorm.Expr("balance + ?", delta),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNegativeBalance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetCredit(ctx, db, ownerID)
}

// ReserveCredit takes one credit out of the balance into reserved. Returns
// ErrNoCredit when the balance is zero or the account does not exist.
func ReserveCredit(ctx context.Context, db *gorm.DB, ownerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.CreditAccount{}).
		Where("owner_id = ? AND balance > 0", ownerID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - 1"),
			"reserved":   gorm.Expr("reserved + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoCredit
	}
	return nil
}

// CommitCredit consumes a reserved credit.
func CommitCredit(ctx context.Context, db *gorm.DB, ownerID string) error {
	return settle(ctx, db, ownerID, map[string]any{
		"reserved":   gorm.Expr("reserved - 1"),
		"used":       gorm.Expr("used + 1"),
		"updated_at": time.Now().UTC(),
	})
}

// ReleaseCredit returns a reserved credit to the balance.
func ReleaseCredit(ctx context.Context, db *gorm.DB, ownerID string) error {
	return settle(ctx, db, ownerID, map[string]any{
		"reserved":   gorm.Expr("reserved - 1"),
		"balance":    gorm.Expr("balance + 1"),
		"updated_at": time.Now().UTC(),
	})
}

func settle(ctx context.Context, db *gorm.DB, ownerID string, set map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.CreditAccount{}).
		Where("owner_id = ? AND reserved > 0", ownerID).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoReservation
	}
	return nil
}

// ReleaseReservations returns every outstanding reservation to its balance.
// Only safe while no batch is running, i.e. at process start.
func ReleaseReservations(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.CreditAccount{}).
		Where("reserved > 0").
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + reserved"),
			"reserved":   0,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
