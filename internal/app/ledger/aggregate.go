// internal/app/ledger/aggregate.go
package ledger

import (
	"context"
	"sort"

	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"golang.org/x/sync/errgroup"
)

// ContributorTotal is one member's share of a group goal.
type ContributorTotal struct {
	UserID            string       `json:"user_id"`
	User              *models.User `json:"user,omitempty"`
	TotalAmount       money.Amount `json:"total_amount"`
	ContributionCount int          `json:"contribution_count"`
}

// Aggregate is the read-only statistics view of a group goal.
type Aggregate struct {
	GroupGoal          models.GroupGoal      `json:"group_goal"`
	Contributions      []models.Contribution `json:"contributions"`
	TopContributors    []ContributorTotal    `json:"top_contributors"`
	TotalContributions int                   `json:"total_contributions"`
	TotalAmount        money.Amount          `json:"total_amount"`
}

// Summarize builds the aggregate from contributions in insertion order
// (oldest first). Contributions come back newest first. TopContributors is
// ordered by total descending; members with equal totals keep the order of
// their first contribution.
func Summarize(goal models.GroupGoal, contributions []models.Contribution) Aggregate {
	agg := Aggregate{
		GroupGoal:          goal,
		Contributions:      make([]models.Contribution, len(contributions)),
		TopContributors:    []ContributorTotal{},
		TotalContributions: len(contributions),
		TotalAmount:        money.Zero,
	}

	index := map[string]int{}
	for i, c := range contributions {
		agg.Contributions[len(contributions)-1-i] = c
		agg.TotalAmount = agg.TotalAmount.Add(c.Amount)

		j, ok := index[c.UserID]
		if !ok {
			j = len(agg.TopContributors)
			index[c.UserID] = j
			agg.TopContributors = append(agg.TopContributors, ContributorTotal{UserID: c.UserID, TotalAmount: money.Zero})
		}
		agg.TopContributors[j].TotalAmount = agg.TopContributors[j].TotalAmount.Add(c.Amount)
		agg.TopContributors[j].ContributionCount++
	}

	sort.SliceStable(agg.TopContributors, func(a, b int) bool {
		return agg.TopContributors[a].TotalAmount.GreaterThan(agg.TopContributors[b].TotalAmount)
	})
	return agg
}

// Aggregate returns contribution statistics for a group goal, with
// contributor user details filled in. Any member of the group may read it.
//
// Totals are summed from contribution rows. A contribution that ended in
// PartialFailure at the debit step keeps its row, so it is counted here
// even though the goal's CurrentAmount was reverted; TotalAmount can then
// exceed GroupGoal.CurrentAmount.
func (s *Service) Aggregate(ctx context.Context, groupGoalID, userID string) (Aggregate, error) {
	goal, err := s.d.GroupGoals.GetByID(ctx, groupGoalID)
	if err != nil {
		return Aggregate{}, err
	}

	var contributions []models.Contribution
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.d.Policy.RequireMember(gctx, goal.GroupID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		contributions, err = s.d.Contributions.ListByGoal(gctx, goal.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Aggregate{}, err
	}

	agg := Summarize(goal, contributions)
	if len(agg.TopContributors) == 0 {
		return agg, nil
	}

	ids := make([]string, len(agg.TopContributors))
	for i, t := range agg.TopContributors {
		ids[i] = t.UserID
	}
	users, err := s.d.Users.GetByIDs(ctx, ids)
	if err != nil {
		return Aggregate{}, err
	}
	for i := range agg.TopContributors {
		if u, ok := users[agg.TopContributors[i].UserID]; ok {
			u := u
			agg.TopContributors[i].User = &u
		}
	}
	return agg, nil
}
