package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Accounts is the balance store as seen from inside a storage transaction.
type Accounts interface {
	// FindOne returns the account if it exists and belongs to userID.
	FindOne(ctx context.Context, id, userID string) (domain.Account, error)

	// UpdateBalance adds delta to the account balance and returns the new state.
	UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error)
}

// Transactions persists ledger entries.
type Transactions interface {
	FindOne(ctx context.Context, id, userID string) (domain.Transaction, error)
	Insert(ctx context.Context, t domain.Transaction) error
	Update(ctx context.Context, t domain.Transaction) error
	Delete(ctx context.Context, id, userID string) error
}

// Categories resolves category references.
type Categories interface {
	FindOne(ctx context.Context, id, userID string) (domain.Category, error)
}

// Tx groups the repositories bound to one storage transaction.
type Tx interface {
	Accounts() Accounts
	Transactions() Transactions
	Categories() Categories
}

// Store runs fn atomically: either every write made through tx commits or none does.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
