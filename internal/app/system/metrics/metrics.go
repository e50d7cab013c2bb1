// internal/app/system/metrics/metrics.go
//
// Package metrics holds the Prometheus collectors for ledger activity.
// A nil *Ledger is valid and records nothing, so services and tests that
// don't care about metrics can leave it unset.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "alcancia"

// Ledger counts money movements and their failure modes.
type Ledger struct {
	transactions    *prometheus.CounterVec
	contributions   *prometheus.CounterVec
	goalsCompleted  *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
	partialFailures *prometheus.CounterVec
	invitations     *prometheus.CounterVec
}

// NewLedger creates the collectors and registers them with reg.
func NewLedger(reg prometheus.Registerer) (*Ledger, error) {
	l := &Ledger{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Recorded income/expense transactions by type.",
		}, []string{"type"}),
		contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_total",
			Help:      "Successful goal contributions by goal kind (personal, group).",
		}, []string{"kind"}),
		goalsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goals_completed_total",
			Help:      "Goals that reached their target, by goal kind.",
		}, []string{"kind"}),
		conflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_retries_total",
			Help:      "Version-conflict retries by operation.",
		}, []string{"op"}),
		partialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_failures_total",
			Help:      "Multi-step operations that left a partial write behind, by operation.",
		}, []string{"op"}),
		invitations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitation_transitions_total",
			Help:      "Invitation status transitions by target status.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{
		l.transactions, l.contributions, l.goalsCompleted,
		l.conflictRetries, l.partialFailures, l.invitations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Ledger) Transaction(txType string) {
	if l != nil {
		l.transactions.WithLabelValues(txType).Inc()
	}
}

func (l *Ledger) Contribution(kind string) {
	if l != nil {
		l.contributions.WithLabelValues(kind).Inc()
	}
}

func (l *Ledger) GoalCompleted(kind string) {
	if l != nil {
		l.goalsCompleted.WithLabelValues(kind).Inc()
	}
}

func (l *Ledger) ConflictRetry(op string) {
	if l != nil {
		l.conflictRetries.WithLabelValues(op).Inc()
	}
}

func (l *Ledger) PartialFailure(op string) {
	if l != nil {
		l.partialFailures.WithLabelValues(op).Inc()
	}
}

func (l *Ledger) InvitationTransition(status string) {
	if l != nil {
		l.invitations.WithLabelValues(status).Inc()
	}
}
