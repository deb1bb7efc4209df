package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/repo"
)

// Admission is the answer of the credit gate for a prospective batch.
type Admission string

const (
	AdmissionAllowed      Admission = "allowed"
	AdmissionNoRecipients Admission = "no_recipients"
	AdmissionNoCredit     Admission = "no_credit"
)

// CreditService is the billing-facing side of the ledger.
type CreditService struct {
	DB *gorm.DB
}

// Balance returns the owner's account; unknown owners have zero balance.
func (s *CreditService) Balance(ctx context.Context, ownerID string) (*domain.CreditAccount, error) {
	return repo.GetCredit(ctx, s.DB, ownerID)
}

// Adjust adds delta to the balance. A delta that would make the balance
// negative fails with ErrNegativeBalance and changes nothing.
func (s *CreditService) Adjust(ctx context.Context, ownerID string, delta int64) (*domain.CreditAccount, error) {
	acc, err := repo.AdjustCredit(ctx, s.DB, ownerID, delta)
	if errors.Is(err, repo.ErrNegativeBalance) {
		return nil, ErrNegativeBalance
	}
	return acc, err
}

// Check decides whether a batch of requested sends may start in strict
// (all-or-nothing) mode, and reports the current balance.
func (s *CreditService) Check(ctx context.Context, ownerID string, requested int) (Admission, int64, error) {
	acc, err := repo.GetCredit(ctx, s.DB, ownerID)
	if err != nil {
		return "", 0, err
	}
	return admit(acc.Balance, requested), acc.Balance, nil
}

func admit(balance int64, requested int) Admission {
	switch {
	case requested <= 0:
		return AdmissionNoRecipients
	case balance < int64(requested):
		return AdmissionNoCredit
	default:
		return AdmissionAllowed
	}
}
