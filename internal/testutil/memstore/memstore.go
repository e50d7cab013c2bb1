// Package memstore is an in-memory stand-in for the Mongo stores, used by
// service tests. Each store mirrors its Mongo counterpart's method set and
// error kinds, including version-checked writes and unique constraints.
//
// Faults lets a test make the next call of a named operation fail, and the
// Before* hooks let a test slip a concurrent write in ahead of a guarded one.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Faults holds injected failures keyed by operation name ("SetBalance",
// "Create", ...). A fault fires once and is then cleared.
type Faults struct {
	mu    sync.Mutex
	next  map[string][]error
	calls map[string]int
}

// FailNext makes the next call of op return err.
// Queued errors for the same op fire in order.
func (f *Faults) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == nil {
		f.next = map[string][]error{}
	}
	f.next[op] = append(f.next[op], err)
}

// Calls returns how many times op has been invoked.
func (f *Faults) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faults) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
	q := f.next[op]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	f.next[op] = q[1:]
	return err
}

func newID() string { return uuid.NewString() }

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// byCreated sorts rows by created time then insertion order.
func byCreated[T any](rows []T, at func(T) time.Time, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return at(rows[i]).After(at(rows[j]))
		}
		return at(rows[i]).Before(at(rows[j]))
	})
}

func reversed[T any](rows []T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}

// DB bundles one of each store.
type DB struct {
	Accounts      *Accounts
	Transactions  *Transactions
	Goals         *Goals
	GroupGoals    *GroupGoals
	Contributions *Contributions
	Groups        *Groups
	Memberships   *Memberships
	Invitations   *Invitations
	Users         *Users
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		Accounts:      &Accounts{rows: map[string]*accountRow{}},
		Transactions:  &Transactions{},
		Goals:         &Goals{rows: map[string]*goalRow{}},
		GroupGoals:    &GroupGoals{rows: map[string]*groupGoalRow{}},
		Contributions: &Contributions{},
		Groups:        &Groups{rows: map[string]*groupRow{}},
		Memberships:   &Memberships{},
		Invitations:   &Invitations{},
		Users:         &Users{rows: map[string]*userRow{}},
	}
}
