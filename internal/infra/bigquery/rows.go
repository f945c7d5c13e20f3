package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// numericScale is the number of fractional digits of a BigQuery NUMERIC.
const numericScale = 9

// TransactionRow mirrors one row of <dataset>.transactions.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	AccountID     string `bigquery:"account_id"`     // REQUIRED

	DestinationAccountID bigquery.NullString `bigquery:"destination_account_id"` // NULLABLE, transfers only
	CategoryID           bigquery.NullString `bigquery:"category_id"`            // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC, signed
	Type            string     `bigquery:"type"`             // REQUIRED: EXPENSE | INCOME | TRANSFER

	Description bigquery.NullString `bigquery:"description"` // NULLABLE
	IsPaid      bool                `bigquery:"is_paid"`     // REQUIRED

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// CategoryRow mirrors one row of <dataset>.categories.
type CategoryRow struct {
	CategoryID string `bigquery:"category_id"` // REQUIRED
	UserID     string `bigquery:"user_id"`     // REQUIRED
	Name       string `bigquery:"name"`        // REQUIRED
	Type       string `bigquery:"type"`        // REQUIRED: EXPENSE | INCOME | BOTH

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED, listing order
}

// NewTransactionRow converts a ledger transaction for insertion.
func NewTransactionRow(t domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:        t.ID,
		UserID:               t.UserID,
		AccountID:            t.AccountID,
		DestinationAccountID: nullString(t.DestinationAccountID),
		CategoryID:           nullString(t.CategoryID),
		TransactionDate:      civil.DateOf(t.Date),
		Amount:               t.Amount.Rat(),
		Type:                 string(t.Type),
		Description:          nullString(t.Description),
		IsPaid:               t.IsPaid,
		CreatedTS:            t.CreatedAt,
	}
	if !t.UpdatedAt.IsZero() {
		row.UpdatedTS = bigquery.NullTimestamp{Timestamp: t.UpdatedAt, Valid: true}
	}
	return row
}

// Transaction converts the row back to a ledger transaction.
func (r *TransactionRow) Transaction() (domain.Transaction, error) {
	amount := decimal.Zero
	if r.Amount != nil {
		var err error
		amount, err = decimal.NewFromString(r.Amount.FloatString(numericScale))
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("transaction %s: amount: %w", r.TransactionID, err)
		}
	}
	t := domain.Transaction{
		ID:                   r.TransactionID,
		Amount:               amount,
		Type:                 domain.TransactionType(r.Type),
		Description:          r.Description.StringVal,
		Date:                 r.TransactionDate.In(time.UTC),
		IsPaid:               r.IsPaid,
		AccountID:            r.AccountID,
		DestinationAccountID: r.DestinationAccountID.StringVal,
		CategoryID:           r.CategoryID.StringVal,
		UserID:               r.UserID,
		CreatedAt:            r.CreatedTS,
		UpdatedAt:            r.CreatedTS,
	}
	if r.UpdatedTS.Valid {
		t.UpdatedAt = r.UpdatedTS.Timestamp
	}
	return t, nil
}

// Category converts the row to a domain category.
func (r CategoryRow) Category() domain.Category {
	return domain.Category{
		ID:     r.CategoryID,
		Name:   r.Name,
		Type:   domain.CategoryType(r.Type),
		UserID: r.UserID,
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
