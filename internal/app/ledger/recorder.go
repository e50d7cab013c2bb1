// internal/app/ledger/recorder.go
package ledger

import (
	"context"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/htmlsanitize"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"go.uber.org/zap"
)

// RecordInput describes one income (ingreso) or expense (gasto).
type RecordInput struct {
	AccountID   string
	UserID      string
	Type        string
	Amount      money.Amount
	Description string
	Category    string
}

func (s *Service) validateRecord(in RecordInput) error {
	if !models.IsValidTransactionType(in.Type) {
		return apperr.New(apperr.KindValidation, "type must be %q or %q", models.TransactionIngreso, models.TransactionGasto)
	}
	if !in.Amount.IsPositive() {
		return apperr.New(apperr.KindValidation, "amount must be greater than zero")
	}
	if in.Amount.GreaterThan(s.cfg.MaxTransactionAmount) {
		return apperr.New(apperr.KindValidation, "amount %s exceeds the per-transaction limit of %s",
			in.Amount, s.cfg.MaxTransactionAmount)
	}
	return nil
}

// Record stores a transaction and applies it to the account balance.
//
// The transaction row is written first. If the balance update then fails
// the row stays and the caller gets PartialFailure; an expense is checked
// against the balance before anything is written.
func (s *Service) Record(ctx context.Context, in RecordInput) (models.Transaction, models.Account, error) {
	if err := s.validateRecord(in); err != nil {
		return models.Transaction{}, models.Account{}, err
	}

	acct, err := s.GetAccount(ctx, in.AccountID, in.UserID)
	if err != nil {
		return models.Transaction{}, models.Account{}, err
	}

	change := Credit
	if in.Type == models.TransactionGasto {
		change = Debit
		if _, err := Debit(acct, in.Amount); err != nil {
			return models.Transaction{}, models.Account{}, err
		}
	}

	tx, err := s.d.Transactions.Create(ctx, models.Transaction{
		AccountID:   acct.ID,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: htmlsanitize.Limit(in.Description, maxDescriptionLen),
		Category:    htmlsanitize.Limit(in.Category, maxCategoryLen),
		CreatedAt:   s.now(),
	})
	if err != nil {
		return models.Transaction{}, models.Account{}, err
	}

	updated, err := s.updateBalance(ctx, acct, "transaction", func(a models.Account) (models.Account, error) {
		return change(a, in.Amount)
	})
	if err != nil {
		s.d.Metrics.PartialFailure("transaction")
		s.log.Error("transaction recorded but balance not updated",
			zap.String("transaction_id", tx.ID),
			zap.String("account_id", acct.ID),
			zap.String("type", tx.Type),
			zap.String("amount", tx.Amount.String()),
			zap.Error(err))
		return tx, models.Account{}, apperr.Wrap(apperr.KindPartialFailure, err,
			"transaction %s was recorded but the balance could not be updated", tx.ID)
	}

	s.d.Metrics.Transaction(tx.Type)
	return tx, updated, nil
}

// ListTransactions returns the account's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, accountID, userID string, limit int64) ([]models.Transaction, error) {
	if _, err := s.GetAccount(ctx, accountID, userID); err != nil {
		return nil, err
	}
	return s.d.Transactions.ListByAccount(ctx, accountID, limit)
}
