package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoDescription is stored when the user explicitly skips description entry.
// The literal value is a storage-boundary convention; reports and suggestion
// queries depend on it.
const NoDescription = "No description"

// ImportedDescription marks records created by bulk import rather than the
// entry conversation.
const ImportedDescription = "Imported from Excel"

// ExpenseRecord is a single recorded expense. Records are append-only: they
// are created once and removed only via delete-most-recent, never updated.
type ExpenseRecord struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Category    string          `json:"category"`
	Subcategory *string         `json:"subcategory,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Account     *string         `json:"account,omitempty"`
	Date        time.Time       `json:"date"`
}

// AccountBalance is the running balance for one payment account. A balance
// exists only after the user explicitly initializes the account; recording
// expenses against an unknown account label never creates one.
type AccountBalance struct {
	UserID      int64           `json:"user_id"`
	Account     string          `json:"account"`
	Initial     decimal.Decimal `json:"initial_balance"`
	Current     decimal.Decimal `json:"current_balance"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Spent returns how much has been drawn from the account since it was
// initialized or last reset.
func (b *AccountBalance) Spent() decimal.Decimal {
	return b.Initial.Sub(b.Current)
}

// AdjustOp selects how a balance adjustment is applied.
type AdjustOp int

const (
	// AdjustSet overwrites the current balance.
	AdjustSet AdjustOp = iota
	// AdjustAdd increases the current balance.
	AdjustAdd
	// AdjustSubtract decreases the current balance.
	AdjustSubtract
)

// ExpenseFilter narrows an expense query. Zero-valued fields are ignored.
type ExpenseFilter struct {
	Category string
	Account  string
	From     time.Time
	To       time.Time
	Limit    int
}
