package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Posting is the balance change a transaction causes on one account.
type Posting struct {
	AccountID string
	Delta     decimal.Decimal
}

// Postings returns the balance effect of t. A transfer with a destination
// moves |amount| between the two accounts; anything else adjusts the source
// account by the signed amount.
func Postings(t domain.Transaction) []Posting {
	if t.MovesBetweenAccounts() {
		mag := t.Amount.Abs()
		return []Posting{
			{AccountID: t.AccountID, Delta: mag.Neg()},
			{AccountID: t.DestinationAccountID, Delta: mag},
		}
	}
	return []Posting{{AccountID: t.AccountID, Delta: t.Amount}}
}

// Mutator applies and reverses the balance effect of transactions. It must be
// bound to the Accounts of the storage transaction that also writes the
// ledger entry, so that both legs of a transfer commit together.
type Mutator struct {
	accounts Accounts
}

// NewMutator binds a mutator to accounts.
func NewMutator(accounts Accounts) *Mutator {
	return &Mutator{accounts: accounts}
}

// Apply posts the balance effect of t.
func (m *Mutator) Apply(ctx context.Context, t domain.Transaction) error {
	return m.post(ctx, Postings(t), false)
}

// Reverse undoes Apply for the same snapshot of t. Callers must pass the
// transaction as it was when applied, not its updated state.
func (m *Mutator) Reverse(ctx context.Context, t domain.Transaction) error {
	return m.post(ctx, Postings(t), true)
}

func (m *Mutator) post(ctx context.Context, postings []Posting, reverse bool) error {
	for _, p := range postings {
		delta := p.Delta
		if reverse {
			delta = delta.Neg()
		}
		if delta.IsZero() {
			continue
		}
		if _, err := m.accounts.UpdateBalance(ctx, p.AccountID, delta); err != nil {
			return fmt.Errorf("%w: account %q: %w", domain.ErrBalanceUpdate, p.AccountID, err)
		}
	}
	return nil
}
