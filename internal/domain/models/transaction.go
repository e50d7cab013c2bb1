// internal/domain/models/transaction.go
package models

import (
	"time"

	"github.com/dalemusser/alcancia/internal/domain/money"
)

// Transaction types.
const (
	TransactionIngreso = "ingreso" // income, credits the account
	TransactionGasto   = "gasto"   // expense, debits the account
)

// Transaction is an immutable income/expense record against an Account.
type Transaction struct {
	ID          string       `bson:"_id" json:"id"`
	AccountID   string       `bson:"account_id" json:"account_id"`
	Type        string       `bson:"type" json:"type"`
	Amount      money.Amount `bson:"amount" json:"amount"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Category    string       `bson:"category,omitempty" json:"category,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
}

// IsValidTransactionType reports whether t is ingreso or gasto.
func IsValidTransactionType(t string) bool {
	return t == TransactionIngreso || t == TransactionGasto
}
