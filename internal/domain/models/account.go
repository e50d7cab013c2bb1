// internal/domain/models/account.go
package models

import (
	"time"

	"github.com/dalemusser/alcancia/internal/domain/money"
)

// Account is the single cash balance backing a user's spending and funding.
//
// NOTE:
//   - Exactly one Account per user (unique index on owner_user_id).
//   - Version is the optimistic-concurrency counter; every balance write
//     matches on it and increments it.
type Account struct {
	ID           string       `bson:"_id" json:"id"`
	Balance      money.Amount `bson:"balance" json:"balance"`
	CurrencyCode string       `bson:"currency_code" json:"currency_code"`
	OwnerUserID  string       `bson:"owner_user_id" json:"owner_user_id"`
	Version      int64        `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
