// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/alcancia/internal/app/invitations"
	"github.com/dalemusser/alcancia/internal/app/ledger"
	"github.com/dalemusser/alcancia/internal/app/onboarding"
	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	accountstore "github.com/dalemusser/alcancia/internal/app/store/accounts"
	contributionstore "github.com/dalemusser/alcancia/internal/app/store/contributions"
	goalstore "github.com/dalemusser/alcancia/internal/app/store/goals"
	groupgoalstore "github.com/dalemusser/alcancia/internal/app/store/groupgoals"
	groupstore "github.com/dalemusser/alcancia/internal/app/store/groups"
	invitationstore "github.com/dalemusser/alcancia/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/alcancia/internal/app/store/memberships"
	transactionstore "github.com/dalemusser/alcancia/internal/app/store/transactions"
	userstore "github.com/dalemusser/alcancia/internal/app/store/users"
	"github.com/dalemusser/alcancia/internal/app/system/codegen"
	"github.com/dalemusser/alcancia/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type userStore interface {
	onboarding.Users
	invitations.Users
	codegen.TagChecker
}

type groupStore interface {
	onboarding.Groups
	invitations.Groups
	codegen.TagChecker
}

type membershipStore interface {
	onboarding.Memberships
	invitations.Memberships
	grouppolicy.Memberships
}

// storeSet is the persistence every service is built on. Production uses
// the Mongo stores; tests substitute in-memory ones.
type storeSet struct {
	Accounts      ledger.Accounts
	Transactions  ledger.Transactions
	Goals         ledger.Goals
	GroupGoals    ledger.GroupGoals
	Contributions ledger.Contributions
	Users         userStore
	Groups        groupStore
	Memberships   membershipStore
	Invitations   invitations.Store
}

func mongoStores(db *mongo.Database) storeSet {
	return storeSet{
		Accounts:      accountstore.New(db),
		Transactions:  transactionstore.New(db),
		Goals:         goalstore.New(db),
		GroupGoals:    groupgoalstore.New(db),
		Contributions: contributionstore.New(db),
		Users:         userstore.New(db),
		Groups:        groupstore.New(db),
		Memberships:   membershipstore.New(db),
		Invitations:   invitationstore.New(db),
	}
}

// services are the domain services the HTTP features call.
type services struct {
	Ledger      *ledger.Service
	Invitations *invitations.Service
	Onboarding  *onboarding.Service
}

func newServices(s storeSet, appCfg AppConfig, m *metrics.Ledger, logger *zap.Logger) services {
	policy := grouppolicy.New(s.Memberships)

	ledgerCfg := ledger.DefaultConfig()
	ledgerCfg.ConflictRetries = appCfg.ConflictRetries
	if appCfg.MaxTransactionAmount.IsPositive() {
		ledgerCfg.MaxTransactionAmount = appCfg.MaxTransactionAmount
	}
	if appCfg.DefaultCurrency != "" {
		ledgerCfg.DefaultCurrency = appCfg.DefaultCurrency
	}

	return services{
		Ledger: ledger.New(ledger.Deps{
			Accounts:      s.Accounts,
			Transactions:  s.Transactions,
			Goals:         s.Goals,
			GroupGoals:    s.GroupGoals,
			Contributions: s.Contributions,
			Users:         s.Users,
			Policy:        policy,
			Metrics:       m,
		}, ledgerCfg, logger.Named("ledger")),
		Invitations: invitations.New(invitations.Deps{
			Invitations: s.Invitations,
			Memberships: s.Memberships,
			Groups:      s.Groups,
			Users:       s.Users,
			Policy:      policy,
			Metrics:     m,
		}, appCfg.InvitationTTL, logger.Named("invitations")),
		Onboarding: onboarding.New(onboarding.Deps{
			Users:       s.Users,
			Groups:      s.Groups,
			Memberships: s.Memberships,
			Tags:        codegen.New(s.Groups, s.Users, codegen.WithMaxAttempts(appCfg.CodeMaxAttempts)),
			Policy:      policy,
		}, logger.Named("onboarding")),
	}
}
