// internal/domain/models/goal.go
package models

import (
	"time"

	"github.com/dalemusser/alcancia/internal/domain/money"
)

// Goal is a personal savings target owned by one user.
//
// Invariants kept by the ledger:
//   - 0 <= CurrentAmount <= TargetAmount
//   - Completed flips false -> true once and never back for applied
//     contributions. Reverting a contribution whose debit failed restores
//     the goal as it was before it, which can clear a Completed that the
//     reverted contribution had set.
type Goal struct {
	ID            string       `bson:"_id" json:"id"`
	Name          string       `bson:"name" json:"name"`
	TargetAmount  money.Amount `bson:"target_amount" json:"target_amount"`
	CurrentAmount money.Amount `bson:"current_amount" json:"current_amount"`
	TargetDate    *time.Time   `bson:"target_date,omitempty" json:"target_date,omitempty"`
	Completed     bool         `bson:"completed" json:"completed"`
	OwnerUserID   string       `bson:"owner_user_id" json:"owner_user_id"`
	Version       int64        `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Remaining is how much can still be contributed before the target is reached.
func (g Goal) Remaining() money.Amount {
	return g.TargetAmount.Sub(g.CurrentAmount)
}
