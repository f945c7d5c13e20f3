package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSignedAmount(t *testing.T) {
	tests := []struct {
		name   string
		typ    TransactionType
		amount string
		want   string
	}{
		{"expense positive input", TransactionTypeExpense, "50", "-50"},
		{"expense already negative", TransactionTypeExpense, "-50", "-50"},
		{"income negative input", TransactionTypeIncome, "-20.5", "20.5"},
		{"income positive", TransactionTypeIncome, "20.5", "20.5"},
		{"transfer keeps given sign", TransactionTypeTransfer, "-200", "-200"},
		{"zero expense", TransactionTypeExpense, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SignedAmount(tt.typ, decimal.RequireFromString(tt.amount))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestMovesBetweenAccounts(t *testing.T) {
	assert.True(t, Transaction{Type: TransactionTypeTransfer, DestinationAccountID: "b"}.MovesBetweenAccounts())
	assert.False(t, Transaction{Type: TransactionTypeTransfer}.MovesBetweenAccounts())
	assert.False(t, Transaction{Type: TransactionTypeExpense, DestinationAccountID: "b"}.MovesBetweenAccounts())
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("x", 3*3600)
	got := Day(time.Date(2025, 3, 4, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestCategoryTypeMatches(t *testing.T) {
	assert.True(t, CategoryTypeBoth.Matches(CategoryTypeExpense))
	assert.True(t, CategoryTypeBoth.Matches(CategoryTypeIncome))
	assert.True(t, CategoryTypeExpense.Matches(""))
	assert.False(t, CategoryTypeIncome.Matches(CategoryTypeExpense))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, errors.Is(NotFound("account", "a1"), ErrNotFound))
	err := Invalid("source and destination must differ (%s)", "a1")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "a1")
}
