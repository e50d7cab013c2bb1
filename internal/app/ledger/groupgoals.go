// internal/app/ledger/groupgoals.go
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/htmlsanitize"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"go.uber.org/zap"
)

// GroupGoalInput describes a new group goal.
type GroupGoalInput struct {
	GroupID       string
	CreatorUserID string
	Name          string
	Description   string
	TargetAmount  money.Amount
	TargetDate    *time.Time
}

// GroupContributeInput moves Amount from the member's account into a group goal.
type GroupContributeInput struct {
	GroupGoalID string
	AccountID   string
	UserID      string
	Amount      money.Amount
}

// GroupContributionResult is the state after a successful group contribution.
type GroupContributionResult struct {
	GroupGoal    models.GroupGoal    `json:"group_goal"`
	Account      models.Account      `json:"account"`
	Contribution models.Contribution `json:"contribution"`
	Completed    bool                `json:"completed"`
}

// CreateGroupGoal creates a goal for the group. Only admins may do this.
func (s *Service) CreateGroupGoal(ctx context.Context, in GroupGoalInput) (models.GroupGoal, error) {
	name, err := validateGoal(in.Name, in.TargetAmount)
	if err != nil {
		return models.GroupGoal{}, err
	}
	if _, err := s.d.Policy.RequireAdmin(ctx, in.GroupID, in.CreatorUserID); err != nil {
		return models.GroupGoal{}, err
	}
	g, err := s.d.GroupGoals.Create(ctx, models.GroupGoal{
		GroupID:         in.GroupID,
		Name:            name,
		Description:     htmlsanitize.Limit(in.Description, maxDescriptionLen),
		TargetAmount:    in.TargetAmount,
		CurrentAmount:   money.Zero,
		TargetDate:      in.TargetDate,
		CreatedByUserID: in.CreatorUserID,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return models.GroupGoal{}, err
	}
	s.log.Info("group goal created",
		zap.String("group_goal_id", g.ID), zap.String("group_id", g.GroupID))
	return g, nil
}

// ListGroupGoals returns the group's goals to any member.
func (s *Service) ListGroupGoals(ctx context.Context, groupID, userID string) ([]models.GroupGoal, error) {
	if _, err := s.d.Policy.RequireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.d.GroupGoals.ListByGroup(ctx, groupID)
}

// GetGroupGoal returns a group goal to any member of its group.
func (s *Service) GetGroupGoal(ctx context.Context, groupGoalID, userID string) (models.GroupGoal, error) {
	g, err := s.d.GroupGoals.GetByID(ctx, groupGoalID)
	if err != nil {
		return models.GroupGoal{}, err
	}
	if _, err := s.d.Policy.RequireMember(ctx, g.GroupID, userID); err != nil {
		return models.GroupGoal{}, err
	}
	return g, nil
}

func checkGroupContribution(g models.GroupGoal, balance, amount money.Amount) error {
	if g.Completed {
		return apperr.New(apperr.KindGoalAlreadyCompleted, "goal %q is already completed", g.Name)
	}
	return checkContribution(balance, g.Remaining(), amount)
}

// ContributeToGroupGoal moves money from a member's account into a group goal.
//
// Steps run in order: goal progress, contribution row, account debit. The
// progress write bumps the goal version before the row exists, so a
// concurrent DeleteGroupGoal either fails its version check or sees the
// progress and refuses; no row can outlive its goal. If the row cannot be
// written the progress is reverted. A debit failure reverts the progress
// but keeps the row as a record of the attempt and returns PartialFailure.
func (s *Service) ContributeToGroupGoal(ctx context.Context, in GroupContributeInput) (GroupContributionResult, error) {
	if !in.Amount.IsPositive() {
		return GroupContributionResult{}, apperr.New(apperr.KindValidation, "amount must be greater than zero")
	}

	gg, err := s.GetGroupGoal(ctx, in.GroupGoalID, in.UserID)
	if err != nil {
		return GroupContributionResult{}, err
	}
	acct, err := s.GetAccount(ctx, in.AccountID, in.UserID)
	if err != nil {
		return GroupContributionResult{}, err
	}
	if err := checkGroupContribution(gg, acct.Balance, in.Amount); err != nil {
		return GroupContributionResult{}, err
	}

	updated, justCompleted, err := s.addGroupProgress(ctx, gg, acct.Balance, in.Amount)
	if err != nil {
		return GroupContributionResult{}, err
	}

	partial := func(step, contributionID string, cause error) error {
		s.d.Metrics.PartialFailure("group_contribution")
		s.log.Error("group contribution not fully applied",
			zap.String("step", step),
			zap.String("contribution_id", contributionID),
			zap.String("group_goal_id", gg.ID),
			zap.String("account_id", acct.ID),
			zap.String("amount", in.Amount.String()),
			zap.Error(cause))
		if contributionID == "" {
			return apperr.Wrap(apperr.KindPartialFailure, cause,
				"group goal %s shows a contribution that was not recorded", gg.ID)
		}
		return apperr.Wrap(apperr.KindPartialFailure, cause,
			"contribution %s was recorded but could not be applied", contributionID)
	}

	c, err := s.d.Contributions.Create(ctx, models.Contribution{
		GroupGoalID: gg.ID,
		GroupID:     gg.GroupID,
		UserID:      in.UserID,
		Amount:      in.Amount,
		CreatedAt:   s.now(),
	})
	if err != nil {
		if rerr := s.revertGroupGoal(ctx, updated, in.Amount); rerr != nil {
			s.log.Error("group goal revert failed", zap.String("group_goal_id", gg.ID), zap.Error(rerr))
			return GroupContributionResult{}, partial("contribution", "", err)
		}
		return GroupContributionResult{}, err
	}

	debited, err := s.updateBalance(ctx, acct, "group_goal_debit", func(a models.Account) (models.Account, error) {
		return Debit(a, in.Amount)
	})
	if err != nil {
		if rerr := s.revertGroupGoal(ctx, updated, in.Amount); rerr != nil {
			s.log.Error("group goal revert failed", zap.String("group_goal_id", gg.ID), zap.Error(rerr))
		}
		return GroupContributionResult{}, partial("debit", c.ID, err)
	}

	s.d.Metrics.Contribution(kindGroup)
	if justCompleted {
		s.d.Metrics.GoalCompleted(kindGroup)
	}
	return GroupContributionResult{
		GroupGoal:    updated,
		Account:      debited,
		Contribution: c,
		Completed:    updated.Completed,
	}, nil
}

// addGroupProgress adds amount to the goal, re-checking completion and
// the remaining amount against a fresh read after every conflict.
func (s *Service) addGroupProgress(ctx context.Context, g models.GroupGoal, balance, amount money.Amount) (models.GroupGoal, bool, error) {
	for attempt := 1; ; attempt++ {
		current := g.CurrentAmount.Add(amount)
		completed := g.Completed || !current.LessThan(g.TargetAmount)
		saved, err := s.d.GroupGoals.SetProgress(ctx, g, current, completed)
		if err == nil {
			return saved, completed && !g.Completed, nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return models.GroupGoal{}, false, err
		}
		if attempt >= s.attempts() {
			return models.GroupGoal{}, false, apperr.Wrap(apperr.KindConflict, err,
				"group goal was modified concurrently, please retry")
		}
		s.d.Metrics.ConflictRetry("group_goal_progress")
		if g, err = s.d.GroupGoals.GetByID(ctx, g.ID); err != nil {
			return models.GroupGoal{}, false, err
		}
		if err := checkGroupContribution(g, balance, amount); err != nil {
			return models.GroupGoal{}, false, err
		}
	}
}

// revertGroupGoal takes amount back off the goal, recomputing Completed
// the same way revertGoal does.
func (s *Service) revertGroupGoal(ctx context.Context, g models.GroupGoal, amount money.Amount) error {
	for attempt := 1; ; attempt++ {
		current := g.CurrentAmount.Sub(amount)
		if current.IsNegative() {
			current = money.Zero
		}
		_, err := s.d.GroupGoals.SetProgress(ctx, g, current, !current.LessThan(g.TargetAmount))
		if err == nil {
			return nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) || attempt >= s.attempts() {
			return err
		}
		if g, err = s.d.GroupGoals.GetByID(ctx, g.ID); err != nil {
			return err
		}
	}
}

// DeleteGroupGoal removes a group goal that has no contributions.
// Only admins may do this.
func (s *Service) DeleteGroupGoal(ctx context.Context, groupGoalID, userID string) error {
	for attempt := 1; ; attempt++ {
		g, err := s.d.GroupGoals.GetByID(ctx, groupGoalID)
		if err != nil {
			return err
		}
		if _, err := s.d.Policy.RequireAdmin(ctx, g.GroupID, userID); err != nil {
			return err
		}
		// Progress lands before its contribution row, so a non-zero
		// amount means a contribution is recorded or in flight.
		if !g.CurrentAmount.IsZero() {
			return apperr.New(apperr.KindGoalHasContributions,
				"goal has %s saved and cannot be deleted", g.CurrentAmount)
		}
		n, err := s.d.Contributions.CountByGoal(ctx, g.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.New(apperr.KindGoalHasContributions,
				"goal has %d contributions and cannot be deleted", n)
		}
		err = s.d.GroupGoals.DeleteIfUnchanged(ctx, g)
		if err == nil {
			s.log.Info("group goal deleted", zap.String("group_goal_id", g.ID))
			return nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return err
		}
		if attempt >= s.attempts() {
			return apperr.Wrap(apperr.KindConflict, err, "group goal was modified concurrently, please retry")
		}
	}
}
