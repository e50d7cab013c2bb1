package memstore

import (
	"context"
	"sync"
	"time"

	accountstore "github.com/dalemusser/alcancia/internal/app/store/accounts"
	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
)

/* -------------------------------- accounts -------------------------------- */

type accountRow struct{ a models.Account }

type Accounts struct {
	Faults
	// BeforeSetBalance runs before the version check, outside the lock.
	BeforeSetBalance func(a models.Account)

	mu   sync.Mutex
	rows map[string]*accountRow
}

func (s *Accounts) Create(_ context.Context, a models.Account) (models.Account, error) {
	if err := s.check("Create"); err != nil {
		return models.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.a.OwnerUserID == a.OwnerUserID {
			return models.Account{}, accountstore.ErrAccountExists
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.Version = 1
	a.CreatedAt = stamp(a.CreatedAt)
	a.UpdatedAt = a.CreatedAt
	s.rows[a.ID] = &accountRow{a: a}
	return a, nil
}

func (s *Accounts) GetByID(_ context.Context, id string) (models.Account, error) {
	if err := s.check("GetByID"); err != nil {
		return models.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.Account{}, apperr.New(apperr.KindNotFound, "account %s not found", id)
	}
	return r.a, nil
}

func (s *Accounts) GetByOwner(_ context.Context, userID string) (models.Account, error) {
	if err := s.check("GetByOwner"); err != nil {
		return models.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.a.OwnerUserID == userID {
			return r.a, nil
		}
	}
	return models.Account{}, apperr.New(apperr.KindNotFound, "no account for user %s", userID)
}

func (s *Accounts) SetBalance(_ context.Context, a models.Account, balance money.Amount) (models.Account, error) {
	if s.BeforeSetBalance != nil {
		s.BeforeSetBalance(a)
	}
	if err := s.check("SetBalance"); err != nil {
		return models.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[a.ID]
	if !ok || r.a.Version != a.Version {
		return models.Account{}, docstore.ErrVersionConflict
	}
	r.a.Balance = balance
	r.a.Version++
	r.a.UpdatedAt = time.Now().UTC()
	return r.a, nil
}

// Put stores a as-is, for seeding tests. A zero version becomes 1.
func (s *Accounts) Put(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Version == 0 {
		a.Version = 1
	}
	s.rows[a.ID] = &accountRow{a: a}
	return a
}

// Bump changes the balance behind the caller's back, as a concurrent writer would.
func (s *Accounts) Bump(id string, balance money.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		r.a.Balance = balance
		r.a.Version++
	}
}

/* ------------------------------ transactions ------------------------------ */

type Transactions struct {
	Faults

	mu   sync.Mutex
	rows []models.Transaction
}

func (s *Transactions) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	if err := s.check("Create"); err != nil {
		return models.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = stamp(t.CreatedAt)
	s.rows = append(s.rows, t)
	return t, nil
}

func (s *Transactions) ListByAccount(_ context.Context, accountID string, limit int64) ([]models.Transaction, error) {
	if err := s.check("ListByAccount"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Transaction{}
	for _, t := range s.rows {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	out = reversed(out)
	byCreated(out, func(t models.Transaction) time.Time { return t.CreatedAt }, true)
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every stored transaction in insertion order.
func (s *Transactions) All() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transaction(nil), s.rows...)
}

/* ---------------------------------- goals --------------------------------- */

type goalRow struct{ g models.Goal }

type Goals struct {
	Faults
	BeforeSetProgress func(g models.Goal)

	mu    sync.Mutex
	rows  map[string]*goalRow
	order []string
}

func (s *Goals) Create(_ context.Context, g models.Goal) (models.Goal, error) {
	if err := s.check("Create"); err != nil {
		return models.Goal{}, err
	}
	return s.Put(g), nil
}

// Put stores g, for seeding tests. A zero version becomes 1.
func (s *Goals) Put(g models.Goal) models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	if g.Version == 0 {
		g.Version = 1
	}
	g.CreatedAt = stamp(g.CreatedAt)
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	if _, ok := s.rows[g.ID]; !ok {
		s.order = append(s.order, g.ID)
	}
	s.rows[g.ID] = &goalRow{g: g}
	return g
}

func (s *Goals) GetByID(_ context.Context, id string) (models.Goal, error) {
	if err := s.check("GetByID"); err != nil {
		return models.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.Goal{}, apperr.New(apperr.KindNotFound, "goal %s not found", id)
	}
	return r.g, nil
}

func (s *Goals) ListByOwner(_ context.Context, userID string) ([]models.Goal, error) {
	if err := s.check("ListByOwner"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Goal{}
	for _, id := range s.order {
		if r, ok := s.rows[id]; ok && r.g.OwnerUserID == userID {
			out = append(out, r.g)
		}
	}
	byCreated(out, func(g models.Goal) time.Time { return g.CreatedAt }, false)
	return out, nil
}

func (s *Goals) SetProgress(_ context.Context, g models.Goal, current money.Amount, completed bool) (models.Goal, error) {
	if s.BeforeSetProgress != nil {
		s.BeforeSetProgress(g)
	}
	if err := s.check("SetProgress"); err != nil {
		return models.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[g.ID]
	if !ok || r.g.Version != g.Version {
		return models.Goal{}, docstore.ErrVersionConflict
	}
	r.g.CurrentAmount = current
	r.g.Completed = completed
	r.g.Version++
	r.g.UpdatedAt = time.Now().UTC()
	return r.g, nil
}

func (s *Goals) DeleteIfUnchanged(_ context.Context, g models.Goal) error {
	if err := s.check("DeleteIfUnchanged"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[g.ID]
	if !ok || r.g.Version != g.Version {
		return docstore.ErrVersionConflict
	}
	delete(s.rows, g.ID)
	return nil
}

/* ------------------------------- group goals ------------------------------ */

type groupGoalRow struct{ g models.GroupGoal }

type GroupGoals struct {
	Faults
	BeforeSetProgress func(g models.GroupGoal)

	mu    sync.Mutex
	rows  map[string]*groupGoalRow
	order []string
}

func (s *GroupGoals) Create(_ context.Context, g models.GroupGoal) (models.GroupGoal, error) {
	if err := s.check("Create"); err != nil {
		return models.GroupGoal{}, err
	}
	return s.Put(g), nil
}

// Put stores g, for seeding tests. A zero version becomes 1.
func (s *GroupGoals) Put(g models.GroupGoal) models.GroupGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	if g.Version == 0 {
		g.Version = 1
	}
	g.CreatedAt = stamp(g.CreatedAt)
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	if _, ok := s.rows[g.ID]; !ok {
		s.order = append(s.order, g.ID)
	}
	s.rows[g.ID] = &groupGoalRow{g: g}
	return g
}

func (s *GroupGoals) GetByID(_ context.Context, id string) (models.GroupGoal, error) {
	if err := s.check("GetByID"); err != nil {
		return models.GroupGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.GroupGoal{}, apperr.New(apperr.KindNotFound, "group goal %s not found", id)
	}
	return r.g, nil
}

func (s *GroupGoals) ListByGroup(_ context.Context, groupID string) ([]models.GroupGoal, error) {
	if err := s.check("ListByGroup"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.GroupGoal{}
	for _, id := range s.order {
		if r, ok := s.rows[id]; ok && r.g.GroupID == groupID {
			out = append(out, r.g)
		}
	}
	byCreated(out, func(g models.GroupGoal) time.Time { return g.CreatedAt }, false)
	return out, nil
}

func (s *GroupGoals) SetProgress(_ context.Context, g models.GroupGoal, current money.Amount, completed bool) (models.GroupGoal, error) {
	if s.BeforeSetProgress != nil {
		s.BeforeSetProgress(g)
	}
	if err := s.check("SetProgress"); err != nil {
		return models.GroupGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[g.ID]
	if !ok || r.g.Version != g.Version {
		return models.GroupGoal{}, docstore.ErrVersionConflict
	}
	r.g.CurrentAmount = current
	r.g.Completed = completed
	r.g.Version++
	r.g.UpdatedAt = time.Now().UTC()
	return r.g, nil
}

func (s *GroupGoals) DeleteIfUnchanged(_ context.Context, g models.GroupGoal) error {
	if err := s.check("DeleteIfUnchanged"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[g.ID]
	if !ok || r.g.Version != g.Version {
		return docstore.ErrVersionConflict
	}
	delete(s.rows, g.ID)
	return nil
}

/* ------------------------------ contributions ----------------------------- */

type Contributions struct {
	Faults

	mu   sync.Mutex
	rows []models.Contribution
}

func (s *Contributions) Create(_ context.Context, c models.Contribution) (models.Contribution, error) {
	if err := s.check("Create"); err != nil {
		return models.Contribution{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = stamp(c.CreatedAt)
	s.rows = append(s.rows, c)
	return c, nil
}

func (s *Contributions) ListByGoal(_ context.Context, groupGoalID string) ([]models.Contribution, error) {
	if err := s.check("ListByGoal"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Contribution{}
	for _, c := range s.rows {
		if c.GroupGoalID == groupGoalID {
			out = append(out, c)
		}
	}
	byCreated(out, func(c models.Contribution) time.Time { return c.CreatedAt }, false)
	return out, nil
}

func (s *Contributions) CountByGoal(_ context.Context, groupGoalID string) (int64, error) {
	if err := s.check("CountByGoal"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.rows {
		if c.GroupGoalID == groupGoalID {
			n++
		}
	}
	return n, nil
}
