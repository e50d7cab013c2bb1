package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"github.com/dalemusser/alcancia/internal/testutil/memstore"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

type harness struct {
	db  *memstore.DB
	svc *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConfig(t, DefaultConfig())
}

func newHarnessWithConfig(t *testing.T, cfg Config) *harness {
	t.Helper()
	db := memstore.New()
	svc := New(Deps{
		Accounts:      db.Accounts,
		Transactions:  db.Transactions,
		Goals:         db.Goals,
		GroupGoals:    db.GroupGoals,
		Contributions: db.Contributions,
		Users:         db.Users,
		Policy:        grouppolicy.New(db.Memberships),
	}, cfg, zap.NewNop())
	svc.SetClock(func() time.Time { return testNow })
	return &harness{db: db, svc: svc}
}

func amt(s string) money.Amount { return money.MustParse(s) }

func (h *harness) account(owner, balance string) models.Account {
	return h.db.Accounts.Put(models.Account{OwnerUserID: owner, CurrencyCode: "MXN", Balance: amt(balance)})
}

func (h *harness) goal(owner, target, current string) models.Goal {
	t, c := amt(target), amt(current)
	return h.db.Goals.Put(models.Goal{
		Name:          "Meta",
		OwnerUserID:   owner,
		TargetAmount:  t,
		CurrentAmount: c,
		Completed:     !c.LessThan(t),
	})
}

func (h *harness) balance(t *testing.T, id string) money.Amount {
	t.Helper()
	a, err := h.db.Accounts.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	return a.Balance
}

func (h *harness) goalCurrent(t *testing.T, id string) money.Amount {
	t.Helper()
	g, err := h.db.Goals.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load goal: %v", err)
	}
	return g.CurrentAmount
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !errors.Is(err, &apperr.Error{Kind: kind}) {
		t.Fatalf("expected kind %s, got %s (%v)", kind, apperr.KindOf(err), err)
	}
}

func wantAmount(t *testing.T, what string, got money.Amount, want string) {
	t.Helper()
	if !got.Equal(amt(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}
