package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
)

func TestContribute_FullGoalRejectsWithRemaining(t *testing.T) {
	h := newHarness(t)
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "50.00")

	_, err := h.svc.Contribute(context.Background(), ContributeInput{
		GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("10.00"),
	})
	wantKind(t, err, apperr.KindAmountExceedsRemaining)
	if !strings.Contains(err.Error(), "0.00") {
		t.Errorf("message should report the remaining amount: %q", err.Error())
	}
	wantAmount(t, "balance", h.balance(t, a.ID), "100.00")
}

func TestContribute_CompletesGoal(t *testing.T) {
	h := newHarness(t)
	a := h.account("u1", "20.00")
	g := h.goal("u1", "100.00", "90.00")

	res, err := h.svc.Contribute(context.Background(), ContributeInput{
		GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("10.00"),
	})
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if !res.Completed || !res.Goal.Completed {
		t.Error("expected goal to be completed")
	}
	wantAmount(t, "goal current", res.Goal.CurrentAmount, "100.00")
	wantAmount(t, "balance", res.Account.Balance, "10.00")
	wantAmount(t, "stored balance", h.balance(t, a.ID), "10.00")
}

func TestContribute_PreconditionOrder(t *testing.T) {
	tests := []struct {
		name     string
		balance  string
		target   string
		current  string
		amount   string
		wantKind apperr.Kind
	}{
		{"zero amount", "100.00", "50.00", "0.00", "0", apperr.KindValidation},
		{"negative amount", "100.00", "50.00", "0.00", "-5.00", apperr.KindValidation},
		{"funds checked before remaining", "5.00", "50.00", "45.00", "10.00", apperr.KindInsufficientFunds},
		{"exceeds remaining", "100.00", "50.00", "45.00", "10.00", apperr.KindAmountExceedsRemaining},
		{"exact remaining ok", "100.00", "50.00", "40.00", "10.00", ""},
		{"exact balance ok", "10.00", "50.00", "0.00", "10.00", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.account("u1", tt.balance)
			g := h.goal("u1", tt.target, tt.current)

			_, err := h.svc.Contribute(context.Background(), ContributeInput{
				GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt(tt.amount),
			})
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			wantKind(t, err, tt.wantKind)
			wantAmount(t, "balance", h.balance(t, a.ID), tt.balance)
			wantAmount(t, "goal current", h.goalCurrent(t, g.ID), tt.current)
		})
	}
}

func TestContribute_Ownership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.account("u1", "100.00")
	theirs := h.account("u2", "100.00")
	myGoal := h.goal("u1", "50.00", "0.00")
	theirGoal := h.goal("u2", "50.00", "0.00")

	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: theirGoal.ID, AccountID: mine.ID, UserID: "u1", Amount: amt("1.00")})
	wantKind(t, err, apperr.KindNotAuthorized)
	_, err = h.svc.Contribute(ctx, ContributeInput{GoalID: myGoal.ID, AccountID: theirs.ID, UserID: "u1", Amount: amt("1.00")})
	wantKind(t, err, apperr.KindNotAuthorized)
	_, err = h.svc.Contribute(ctx, ContributeInput{GoalID: "missing", AccountID: mine.ID, UserID: "u1", Amount: amt("1.00")})
	wantKind(t, err, apperr.KindNotFound)
}

func TestContribute_ConservesMoney(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "75.00")
	g := h.goal("u1", "60.00", "0.00")
	total := amt("75.00")

	for _, s := range []string{"10.00", "25.50", "30.00", "24.50", "0.01"} {
		_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt(s)})
		if err != nil && !isDomainRejection(err) {
			t.Fatalf("Contribute(%s): %v", s, err)
		}
		sum := h.balance(t, a.ID).Add(h.goalCurrent(t, g.ID))
		if !sum.Equal(total) {
			t.Fatalf("after %s: balance + goal = %s, want %s", s, sum, total)
		}
		if h.goalCurrent(t, g.ID).GreaterThan(amt("60.00")) {
			t.Fatalf("goal over-funded: %s", h.goalCurrent(t, g.ID))
		}
	}
}

func isDomainRejection(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindInsufficientFunds, apperr.KindAmountExceedsRemaining, apperr.KindGoalAlreadyCompleted:
		return true
	}
	return false
}

func TestContribute_CompletionIsMonotonic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "30.00", "0.00")

	if _, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("30.00")}); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	// A later failed attempt must not touch the completed flag.
	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("1.00")})
	wantKind(t, err, apperr.KindAmountExceedsRemaining)

	stored, _ := h.db.Goals.GetByID(ctx, g.ID)
	if !stored.Completed {
		t.Error("completed flag reverted")
	}
}

func TestContribute_RevertsGoalWhenDebitFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "0.00")
	h.db.Accounts.FailNext("SetBalance", apperr.New(apperr.KindStoreUnavailable, "down"))

	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("20.00")})
	wantKind(t, err, apperr.KindStoreUnavailable)
	wantAmount(t, "goal current", h.goalCurrent(t, g.ID), "0.00")
	wantAmount(t, "balance", h.balance(t, a.ID), "100.00")
}

func TestContribute_RevertClearsCompletionItSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "30.00")
	var seen []bool
	h.db.Goals.BeforeSetProgress = func(g models.Goal) { seen = append(seen, g.Completed) }
	h.db.Accounts.FailNext("SetBalance", apperr.New(apperr.KindStoreUnavailable, "down"))

	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("20.00")})
	wantKind(t, err, apperr.KindStoreUnavailable)
	if len(seen) != 2 || seen[0] || !seen[1] {
		t.Fatalf("completed before each write = %v, want [false true]", seen)
	}
	stored, _ := h.db.Goals.GetByID(ctx, g.ID)
	if stored.Completed {
		t.Error("a goal completed only by an unpaid contribution should be open again")
	}
	wantAmount(t, "goal current", stored.CurrentAmount, "30.00")
}

func TestContribute_PartialFailureWhenRevertFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "0.00")
	h.db.Accounts.FailNext("SetBalance", apperr.New(apperr.KindStoreUnavailable, "down"))
	calls := 0
	h.db.Goals.BeforeSetProgress = func(models.Goal) {
		calls++
		if calls == 2 {
			h.db.Goals.FailNext("SetProgress", apperr.New(apperr.KindStoreUnavailable, "down"))
		}
	}

	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("20.00")})
	wantKind(t, err, apperr.KindPartialFailure)
	// The goal keeps the unpaid progress; the account was never debited.
	wantAmount(t, "goal current", h.goalCurrent(t, g.ID), "20.00")
	wantAmount(t, "balance", h.balance(t, a.ID), "100.00")
}

func TestContribute_RetriesAfterConcurrentSpend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "0.00")
	bumped := false
	h.db.Accounts.BeforeSetBalance = func(models.Account) {
		if !bumped {
			bumped = true
			h.db.Accounts.Bump(a.ID, amt("60.00"))
		}
	}

	res, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("20.00")})
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	wantAmount(t, "balance", res.Account.Balance, "40.00")
	wantAmount(t, "goal current", res.Goal.CurrentAmount, "20.00")
}

func TestContribute_RetriesAfterConcurrentContribution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "0.00")
	bumped := false
	h.db.Goals.BeforeSetProgress = func(seen models.Goal) {
		if !bumped {
			bumped = true
			seen.CurrentAmount = amt("45.00")
			seen.Version++
			h.db.Goals.Put(seen)
		}
	}

	// After the concurrent write only 5.00 remains, so 20.00 no longer fits.
	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("20.00")})
	wantKind(t, err, apperr.KindAmountExceedsRemaining)
	wantAmount(t, "balance", h.balance(t, a.ID), "100.00")
}

func TestContribute_ConflictExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConflictRetries = 2
	h := newHarnessWithConfig(t, cfg)
	ctx := context.Background()
	a := h.account("u1", "100.00")
	g := h.goal("u1", "50.00", "0.00")
	h.db.Accounts.BeforeSetBalance = func(seen models.Account) {
		h.db.Accounts.Bump(a.ID, seen.Balance)
	}

	_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("20.00")})
	wantKind(t, err, apperr.KindConflict)
	if n := h.db.Accounts.Calls("SetBalance"); n != 3 {
		t.Errorf("SetBalance calls = %d, want 3", n)
	}
	wantAmount(t, "goal current", h.goalCurrent(t, g.ID), "0.00")
}

func TestContribute_ConcurrentCallsNeverOverfund(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConflictRetries = 200
	h := newHarnessWithConfig(t, cfg)
	ctx := context.Background()
	a := h.account("u1", "1000.00")
	g := h.goal("u1", "50.00", "0.00")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Contribute(ctx, ContributeInput{GoalID: g.ID, AccountID: a.ID, UserID: "u1", Amount: amt("10.00")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.KindOf(err) == apperr.KindAmountExceedsRemaining:
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Errorf("successful contributions = %d, want 5", succeeded)
	}
	wantAmount(t, "goal current", h.goalCurrent(t, g.ID), "50.00")
	wantAmount(t, "balance", h.balance(t, a.ID), "950.00")
}

func TestCreateAndDeleteGoal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateGoal(ctx, GoalInput{OwnerUserID: "u1", Name: "  ", TargetAmount: amt("10.00")})
	wantKind(t, err, apperr.KindValidation)
	_, err = h.svc.CreateGoal(ctx, GoalInput{OwnerUserID: "u1", Name: "Bici", TargetAmount: money.Zero})
	wantKind(t, err, apperr.KindValidation)

	g, err := h.svc.CreateGoal(ctx, GoalInput{OwnerUserID: "u1", Name: "Bici", TargetAmount: amt("10.00")})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if !g.CurrentAmount.IsZero() || g.Completed {
		t.Errorf("new goal should start empty: %+v", g)
	}

	funded := h.goal("u1", "10.00", "2.00")
	wantKind(t, h.svc.DeleteGoal(ctx, funded.ID, "u1"), apperr.KindGoalHasProgress)
	wantKind(t, h.svc.DeleteGoal(ctx, g.ID, "u2"), apperr.KindNotAuthorized)

	if err := h.svc.DeleteGoal(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	goals, err := h.svc.ListGoals(ctx, "u1")
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 1 || goals[0].ID != funded.ID {
		t.Errorf("ListGoals = %+v", goals)
	}
}
