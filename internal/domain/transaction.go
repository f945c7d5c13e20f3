package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeExpense, TransactionTypeIncome, TransactionTypeTransfer:
		return true
	}
	return false
}

// Transaction is one entry of a user's ledger.
// Amount is signed: negative for expenses, positive for income. For transfers
// the magnitude is what moves from AccountID to DestinationAccountID.
// Date has calendar-day semantics only; see Day.
type Transaction struct {
	ID                   string          `json:"id"`
	Amount               decimal.Decimal `json:"amount"`
	Type                 TransactionType `json:"type"`
	Description          string          `json:"description,omitempty"`
	Date                 time.Time       `json:"date"`
	IsPaid               bool            `json:"isPaid"`
	AccountID            string          `json:"accountId"`
	DestinationAccountID string          `json:"destinationAccountId,omitempty"` // only for TRANSFER
	CategoryID           string          `json:"categoryId,omitempty"`           // empty means uncategorized
	UserID               string          `json:"userId"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// MovesBetweenAccounts reports whether the transaction touches two accounts.
func (t Transaction) MovesBetweenAccounts() bool {
	return t.Type == TransactionTypeTransfer && t.DestinationAccountID != ""
}

// Categorized reports whether a category has been assigned.
func (t Transaction) Categorized() bool {
	return t.CategoryID != ""
}

// TransactionPatch carries the fields of an update. Nil means unchanged.
// An empty DestinationAccountID or CategoryID clears the reference.
type TransactionPatch struct {
	Amount               *decimal.Decimal `json:"amount,omitempty"`
	Type                 *TransactionType `json:"type,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Date                 *time.Time       `json:"date,omitempty"`
	IsPaid               *bool            `json:"isPaid,omitempty"`
	AccountID            *string          `json:"accountId,omitempty"`
	DestinationAccountID *string          `json:"destinationAccountId,omitempty"`
	CategoryID           *string          `json:"categoryId,omitempty"`
}

// SignedAmount applies the sign convention of t to amount: expenses are
// forced negative, income positive, transfers keep the sign they were given.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionTypeExpense:
		return amount.Abs().Neg()
	case TransactionTypeIncome:
		return amount.Abs()
	}
	return amount
}

// Day truncates ts to its calendar day in UTC.
func Day(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire and storage format of transaction dates.
const DateLayout = "2006-01-02"
