// internal/app/ledger/goals.go
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/htmlsanitize"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"go.uber.org/zap"
)

// GoalInput describes a new personal goal.
type GoalInput struct {
	OwnerUserID  string
	Name         string
	TargetAmount money.Amount
	TargetDate   *time.Time
}

// ContributeInput moves Amount from AccountID into a goal.
type ContributeInput struct {
	GoalID    string
	AccountID string
	UserID    string
	Amount    money.Amount
}

// ContributionResult is the state after a successful personal contribution.
type ContributionResult struct {
	Goal      models.Goal    `json:"goal"`
	Account   models.Account `json:"account"`
	Completed bool           `json:"completed"`
}

func validateGoal(name string, target money.Amount) (string, error) {
	name = htmlsanitize.Limit(name, maxNameLen)
	if name == "" {
		return "", apperr.New(apperr.KindValidation, "name is required")
	}
	if !target.IsPositive() {
		return "", apperr.New(apperr.KindValidation, "target amount must be greater than zero")
	}
	return name, nil
}

// checkContribution applies the shared funding rules in order: enough
// balance, then no more than what the goal still needs.
func checkContribution(balance, remaining, amount money.Amount) error {
	if amount.GreaterThan(balance) {
		return apperr.New(apperr.KindInsufficientFunds,
			"insufficient funds: balance %s, requested %s", balance, amount)
	}
	if amount.GreaterThan(remaining) {
		return apperr.New(apperr.KindAmountExceedsRemaining,
			"amount %s exceeds the remaining %s", amount, remaining)
	}
	return nil
}

func (s *Service) CreateGoal(ctx context.Context, in GoalInput) (models.Goal, error) {
	name, err := validateGoal(in.Name, in.TargetAmount)
	if err != nil {
		return models.Goal{}, err
	}
	if strings.TrimSpace(in.OwnerUserID) == "" {
		return models.Goal{}, apperr.New(apperr.KindValidation, "owner is required")
	}
	return s.d.Goals.Create(ctx, models.Goal{
		Name:          name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: money.Zero,
		TargetDate:    in.TargetDate,
		OwnerUserID:   in.OwnerUserID,
		CreatedAt:     s.now(),
	})
}

// GetGoal returns the goal if userID owns it.
func (s *Service) GetGoal(ctx context.Context, goalID, userID string) (models.Goal, error) {
	g, err := s.d.Goals.GetByID(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	if g.OwnerUserID != userID {
		return models.Goal{}, apperr.New(apperr.KindNotAuthorized, "goal does not belong to the caller")
	}
	return g, nil
}

func (s *Service) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	return s.d.Goals.ListByOwner(ctx, userID)
}

// Contribute moves money from the caller's account into their goal.
//
// The goal is updated first, then the account is debited. If the debit
// fails the goal update is reverted; if the revert also fails the caller
// gets PartialFailure and the goal shows money the account still holds.
func (s *Service) Contribute(ctx context.Context, in ContributeInput) (ContributionResult, error) {
	if !in.Amount.IsPositive() {
		return ContributionResult{}, apperr.New(apperr.KindValidation, "amount must be greater than zero")
	}

	var (
		goal          models.Goal
		acct          models.Account
		justCompleted bool
	)
	for attempt := 1; ; attempt++ {
		g, err := s.GetGoal(ctx, in.GoalID, in.UserID)
		if err != nil {
			return ContributionResult{}, err
		}
		a, err := s.GetAccount(ctx, in.AccountID, in.UserID)
		if err != nil {
			return ContributionResult{}, err
		}
		if err := checkContribution(a.Balance, g.Remaining(), in.Amount); err != nil {
			return ContributionResult{}, err
		}

		current := g.CurrentAmount.Add(in.Amount)
		completed := g.Completed || !current.LessThan(g.TargetAmount)
		goal, err = s.d.Goals.SetProgress(ctx, g, current, completed)
		if err == nil {
			acct = a
			justCompleted = completed && !g.Completed
			break
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return ContributionResult{}, err
		}
		if attempt >= s.attempts() {
			return ContributionResult{}, apperr.Wrap(apperr.KindConflict, err,
				"goal was modified concurrently, please retry")
		}
		s.d.Metrics.ConflictRetry("goal_progress")
	}

	debited, err := s.updateBalance(ctx, acct, "goal_debit", func(a models.Account) (models.Account, error) {
		return Debit(a, in.Amount)
	})
	if err != nil {
		if rerr := s.revertGoal(ctx, goal, in.Amount); rerr != nil {
			s.d.Metrics.PartialFailure("goal_contribution")
			s.log.Error("goal credited but account not debited and revert failed",
				zap.String("goal_id", goal.ID),
				zap.String("account_id", acct.ID),
				zap.String("amount", in.Amount.String()),
				zap.NamedError("debit_error", err),
				zap.Error(rerr))
			return ContributionResult{}, apperr.Wrap(apperr.KindPartialFailure, err,
				"goal %s was credited but the account could not be debited", goal.ID)
		}
		return ContributionResult{}, err
	}

	s.d.Metrics.Contribution(kindPersonal)
	if justCompleted {
		s.d.Metrics.GoalCompleted(kindPersonal)
	}
	return ContributionResult{Goal: goal, Account: debited, Completed: goal.Completed}, nil
}

// revertGoal undoes a contribution whose debit failed. Completed is
// recomputed from the reverted amount: money that never left the account
// cannot complete a goal.
func (s *Service) revertGoal(ctx context.Context, g models.Goal, amount money.Amount) error {
	for attempt := 1; ; attempt++ {
		current := g.CurrentAmount.Sub(amount)
		if current.IsNegative() {
			current = money.Zero
		}
		_, err := s.d.Goals.SetProgress(ctx, g, current, !current.LessThan(g.TargetAmount))
		if err == nil {
			return nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) || attempt >= s.attempts() {
			return err
		}
		if g, err = s.d.Goals.GetByID(ctx, g.ID); err != nil {
			return err
		}
	}
}

// DeleteGoal removes a goal that has never been funded.
func (s *Service) DeleteGoal(ctx context.Context, goalID, userID string) error {
	for attempt := 1; ; attempt++ {
		g, err := s.GetGoal(ctx, goalID, userID)
		if err != nil {
			return err
		}
		if !g.CurrentAmount.IsZero() {
			return apperr.New(apperr.KindGoalHasProgress,
				"goal has %s saved and cannot be deleted", g.CurrentAmount)
		}
		err = s.d.Goals.DeleteIfUnchanged(ctx, g)
		if err == nil {
			return nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return err
		}
		if attempt >= s.attempts() {
			return apperr.Wrap(apperr.KindConflict, err, "goal was modified concurrently, please retry")
		}
	}
}
