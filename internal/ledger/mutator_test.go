package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

func TestPostings(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want map[string]string
	}{
		{
			name: "expense adjusts source by signed amount",
			tx:   domain.Transaction{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(-50), AccountID: "A"},
			want: map[string]string{"A": "-50"},
		},
		{
			name: "income adjusts source by signed amount",
			tx:   domain.Transaction{Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(75), AccountID: "A"},
			want: map[string]string{"A": "75"},
		},
		{
			name: "transfer moves magnitude regardless of sign",
			tx: domain.Transaction{Type: domain.TransactionTypeTransfer, Amount: decimal.NewFromInt(-200),
				AccountID: "A", DestinationAccountID: "B"},
			want: map[string]string{"A": "-200", "B": "200"},
		},
		{
			name: "transfer without destination is a single leg",
			tx:   domain.Transaction{Type: domain.TransactionTypeTransfer, Amount: decimal.NewFromInt(30), AccountID: "A"},
			want: map[string]string{"A": "30"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[string]string{}
			for _, p := range Postings(tt.tx) {
				got[p.AccountID] = p.Delta.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMutator_ReverseUndoesApply(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.TransactionTypeExpense, Amount: decimal.RequireFromString("-12.34"), AccountID: "A"},
		{Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(500), AccountID: "B"},
		{Type: domain.TransactionTypeTransfer, Amount: decimal.NewFromInt(99), AccountID: "A", DestinationAccountID: "B"},
	}
	for _, tx := range txs {
		store := newMemStore()
		store.addAccount("A", "u", "100")
		store.addAccount("B", "u", "40")

		err := store.WithinTx(context.Background(), func(scope Tx) error {
			m := NewMutator(scope.Accounts())
			if err := m.Apply(context.Background(), tx); err != nil {
				return err
			}
			return m.Reverse(context.Background(), tx)
		})
		require.NoError(t, err)
		assert.Equal(t, "100", store.balance("A"))
		assert.Equal(t, "40", store.balance("B"))
	}
}

func TestMutator_FailureIsBalanceUpdateError(t *testing.T) {
	store := newMemStore()
	store.addAccount("A", "u", "100")
	store.failBalance = "A"

	err := store.WithinTx(context.Background(), func(scope Tx) error {
		return NewMutator(scope.Accounts()).Apply(context.Background(),
			domain.Transaction{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(-1), AccountID: "A"})
	})
	assert.ErrorIs(t, err, domain.ErrBalanceUpdate)
}
