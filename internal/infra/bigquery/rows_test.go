package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	created := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	in := domain.Transaction{
		ID:                   "t1",
		Amount:               decimal.RequireFromString("-42.17"),
		Type:                 domain.TransactionTypeTransfer,
		Description:          "to savings",
		Date:                 time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		IsPaid:               true,
		AccountID:            "a",
		DestinationAccountID: "b",
		UserID:               "u1",
		CreatedAt:            created,
		UpdatedAt:            created.Add(time.Hour),
	}

	row := NewTransactionRow(in)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.February, Day: 3}, row.TransactionDate)
	assert.True(t, row.DestinationAccountID.Valid)
	assert.False(t, row.CategoryID.Valid)
	assert.True(t, row.UpdatedTS.Valid)

	out, err := row.Transaction()
	require.NoError(t, err)
	assert.True(t, in.Amount.Equal(out.Amount))
	out.Amount = in.Amount
	assert.Equal(t, in, out)
}

func TestTransactionRow_NullableFields(t *testing.T) {
	row := &TransactionRow{
		TransactionID:   "t2",
		UserID:          "u1",
		TransactionDate: civil.Date{Year: 2026, Month: time.March, Day: 1},
		Type:            "EXPENSE",
		CreatedTS:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	out, err := row.Transaction()
	require.NoError(t, err)
	assert.True(t, out.Amount.IsZero())
	assert.Empty(t, out.Description)
	assert.Empty(t, out.CategoryID)
	assert.Equal(t, row.CreatedTS, out.UpdatedAt)
}

func TestCategoryRow(t *testing.T) {
	c := CategoryRow{CategoryID: "c1", UserID: "u1", Name: "Food", Type: "BOTH"}.Category()
	assert.Equal(t, domain.Category{ID: "c1", Name: "Food", Type: domain.CategoryTypeBoth, UserID: "u1"}, c)
}

func TestFindAllCategoriesSQL_CreationOrder(t *testing.T) {
	q := findAllCategoriesSQL("`p.finance.categories`")
	assert.Contains(t, q, "ORDER BY created_ts, category_id")
	assert.NotContains(t, q, "ORDER BY name")
}

func TestDatasetName(t *testing.T) {
	assert.True(t, datasetName.MatchString("finance"))
	assert.True(t, datasetName.MatchString("ledger_2026"))
	assert.False(t, datasetName.MatchString("finance.x"))
	assert.False(t, datasetName.MatchString("a`b"))
}
