// internal/app/ledger/account.go
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"go.uber.org/zap"
)

// Debit returns a with amount taken from its balance. It fails with
// InsufficientFunds rather than letting the balance go negative; on any
// failure a is returned unchanged.
func Debit(a models.Account, amount money.Amount) (models.Account, error) {
	if !amount.IsPositive() {
		return a, apperr.New(apperr.KindValidation, "amount must be greater than zero")
	}
	if amount.GreaterThan(a.Balance) {
		return a, apperr.New(apperr.KindInsufficientFunds,
			"insufficient funds: balance %s, requested %s", a.Balance, amount)
	}
	a.Balance = a.Balance.Sub(amount)
	return a, nil
}

// Credit returns a with amount added to its balance.
func Credit(a models.Account, amount money.Amount) (models.Account, error) {
	if !amount.IsPositive() {
		return a, apperr.New(apperr.KindValidation, "amount must be greater than zero")
	}
	a.Balance = a.Balance.Add(amount)
	return a, nil
}

// OpenAccount creates the caller's account with a zero balance.
// A user has at most one account.
func (s *Service) OpenAccount(ctx context.Context, ownerUserID, currency string) (models.Account, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return models.Account{}, apperr.New(apperr.KindValidation, "owner is required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if len(currency) != 3 {
		return models.Account{}, apperr.New(apperr.KindValidation, "currency must be a 3-letter code")
	}
	a, err := s.d.Accounts.Create(ctx, models.Account{
		OwnerUserID:  ownerUserID,
		CurrencyCode: currency,
		Balance:      money.Zero,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return models.Account{}, err
	}
	s.log.Info("account opened", zap.String("account_id", a.ID), zap.String("user_id", ownerUserID))
	return a, nil
}

// GetAccount returns the account if userID owns it.
func (s *Service) GetAccount(ctx context.Context, accountID, userID string) (models.Account, error) {
	a, err := s.d.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	if err := requireAccountOwner(a, userID); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

// MyAccount returns the caller's account.
func (s *Service) MyAccount(ctx context.Context, userID string) (models.Account, error) {
	return s.d.Accounts.GetByOwner(ctx, userID)
}

func requireAccountOwner(a models.Account, userID string) error {
	if a.OwnerUserID != userID {
		return apperr.New(apperr.KindNotAuthorized, "account does not belong to the caller")
	}
	return nil
}

// updateBalance applies change to a and saves it with a version check.
// On conflict it re-reads the account and re-applies change, so a retry
// re-validates against the fresh balance.
func (s *Service) updateBalance(ctx context.Context, a models.Account, op string, change func(models.Account) (models.Account, error)) (models.Account, error) {
	for attempt := 1; ; attempt++ {
		next, err := change(a)
		if err != nil {
			return models.Account{}, err
		}
		saved, err := s.d.Accounts.SetBalance(ctx, a, next.Balance)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return models.Account{}, err
		}
		if attempt >= s.attempts() {
			s.log.Warn("account update gave up after conflicts",
				zap.String("op", op), zap.String("account_id", a.ID), zap.Int("attempts", attempt))
			return models.Account{}, apperr.Wrap(apperr.KindConflict, err,
				"account was modified concurrently, please retry")
		}
		s.d.Metrics.ConflictRetry(op)
		if a, err = s.d.Accounts.GetByID(ctx, a.ID); err != nil {
			return models.Account{}, err
		}
	}
}
