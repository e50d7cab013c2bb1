// internal/domain/models/groupgoal.go
package models

import (
	"time"

	"github.com/dalemusser/alcancia/internal/domain/money"
)

// GroupGoal is a savings target shared by a group and funded by its members.
// Per-member totals are derived from the contributions collection on read.
type GroupGoal struct {
	ID              string       `bson:"_id" json:"id"`
	GroupID         string       `bson:"group_id" json:"group_id"`
	Name            string       `bson:"name" json:"name"`
	Description     string       `bson:"description,omitempty" json:"description,omitempty"`
	TargetAmount    money.Amount `bson:"target_amount" json:"target_amount"`
	CurrentAmount   money.Amount `bson:"current_amount" json:"current_amount"`
	TargetDate      *time.Time   `bson:"target_date,omitempty" json:"target_date,omitempty"`
	Completed       bool         `bson:"completed" json:"completed"`
	CreatedByUserID string       `bson:"created_by_user_id" json:"created_by_user_id"`
	Version         int64        `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Remaining is how much can still be contributed before the target is reached.
func (g GroupGoal) Remaining() money.Amount {
	return g.TargetAmount.Sub(g.CurrentAmount)
}
