// internal/app/ledger/ledger.go
//
// Package ledger moves money between a user's cash account and their
// personal and group savings goals.
//
// Every balance-like field (Account.Balance, Goal.CurrentAmount,
// GroupGoal.CurrentAmount) is written with a version-checked update. When
// the version moved underneath us the step re-reads, re-checks its
// preconditions and tries again, up to Config.ConflictRetries extra times.
// Steps are never re-run once they have succeeded.
package ledger

import (
	"context"
	"time"

	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	"github.com/dalemusser/alcancia/internal/app/system/metrics"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"go.uber.org/zap"
)

// Accounts is the account persistence the ledger needs.
type Accounts interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetByOwner(ctx context.Context, userID string) (models.Account, error)
	SetBalance(ctx context.Context, a models.Account, balance money.Amount) (models.Account, error)
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, limit int64) ([]models.Transaction, error)
}

type Goals interface {
	Create(ctx context.Context, g models.Goal) (models.Goal, error)
	GetByID(ctx context.Context, id string) (models.Goal, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Goal, error)
	SetProgress(ctx context.Context, g models.Goal, current money.Amount, completed bool) (models.Goal, error)
	DeleteIfUnchanged(ctx context.Context, g models.Goal) error
}

type GroupGoals interface {
	Create(ctx context.Context, g models.GroupGoal) (models.GroupGoal, error)
	GetByID(ctx context.Context, id string) (models.GroupGoal, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.GroupGoal, error)
	SetProgress(ctx context.Context, g models.GroupGoal, current money.Amount, completed bool) (models.GroupGoal, error)
	DeleteIfUnchanged(ctx context.Context, g models.GroupGoal) error
}

type Contributions interface {
	Create(ctx context.Context, c models.Contribution) (models.Contribution, error)
	ListByGoal(ctx context.Context, groupGoalID string) ([]models.Contribution, error)
	CountByGoal(ctx context.Context, groupGoalID string) (int64, error)
}

type Users interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Deps are the collaborators of a Service. Metrics may be nil.
type Deps struct {
	Accounts      Accounts
	Transactions  Transactions
	Goals         Goals
	GroupGoals    GroupGoals
	Contributions Contributions
	Users         Users
	Policy        *grouppolicy.Policy
	Metrics       *metrics.Ledger
}

// Config holds the ledger's tunables.
type Config struct {
	// MaxTransactionAmount caps a single income/expense record.
	MaxTransactionAmount money.Amount
	// ConflictRetries is how many times a version-checked write is retried.
	ConflictRetries int
	// DefaultCurrency is used when an account is opened without one.
	DefaultCurrency string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxTransactionAmount: money.FromCents(400000),
		ConflictRetries:      3,
		DefaultCurrency:      "MXN",
	}
}

const (
	kindPersonal = "personal"
	kindGroup    = "group"

	maxNameLen        = 100
	maxDescriptionLen = 500
	maxCategoryLen    = 50
)

type Service struct {
	d   Deps
	cfg Config
	log *zap.Logger
	now func() time.Time
}

func New(d Deps, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = 0
	}
	return &Service{
		d:   d,
		cfg: cfg,
		log: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) attempts() int { return 1 + s.cfg.ConflictRetries }
