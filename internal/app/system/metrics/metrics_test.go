package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	l, err := NewLedger(reg)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	l.Transaction("gasto")
	l.Transaction("gasto")
	l.Contribution("group")
	l.ConflictRetry("account_debit")

	if got := testutil.ToFloat64(l.transactions.WithLabelValues("gasto")); got != 2 {
		t.Errorf("transactions{gasto} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(l.contributions.WithLabelValues("group")); got != 1 {
		t.Errorf("contributions{group} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(l.conflictRetries.WithLabelValues("account_debit")); got != 1 {
		t.Errorf("conflict_retries{account_debit} = %v, want 1", got)
	}
}

func TestNewLedger_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewLedger(reg); err != nil {
		t.Fatalf("first NewLedger: %v", err)
	}
	if _, err := NewLedger(reg); err == nil {
		t.Error("expected an error registering the same collectors twice")
	}
}

func TestNilLedgerIsNoop(t *testing.T) {
	var l *Ledger
	l.Transaction("ingreso")
	l.Contribution("personal")
	l.GoalCompleted("personal")
	l.ConflictRetry("x")
	l.PartialFailure("x")
	l.InvitationTransition("aceptada")
}
