// internal/domain/models/contribution.go
package models

import (
	"time"

	"github.com/dalemusser/alcancia/internal/domain/money"
)

// Contribution (aporte) is one member's funding event against a GroupGoal.
// Append-only: never updated, never deleted individually.
type Contribution struct {
	ID          string       `bson:"_id" json:"id"`
	GroupGoalID string       `bson:"group_goal_id" json:"group_goal_id"`
	GroupID     string       `bson:"group_id" json:"group_id"`
	UserID      string       `bson:"user_id" json:"user_id"`
	Amount      money.Amount `bson:"amount" json:"amount"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
}
