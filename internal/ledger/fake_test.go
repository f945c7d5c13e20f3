package ledger

import (
	"context"
	"errors"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// memStore is a copy-on-commit fake of Store.
type memStore struct {
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	categories   map[string]domain.Category

	// failBalance makes UpdateBalance fail for the named account.
	failBalance string
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     map[string]domain.Account{},
		transactions: map[string]domain.Transaction{},
		categories:   map[string]domain.Category{},
	}
}

func (s *memStore) addAccount(id, userID, balance string) {
	s.accounts[id] = domain.Account{ID: id, UserID: userID, Balance: decimal.RequireFromString(balance)}
}

func (s *memStore) balance(id string) string {
	return s.accounts[id].Balance.String()
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	scope := &memScope{
		store:        s,
		accounts:     maps.Clone(s.accounts),
		transactions: maps.Clone(s.transactions),
	}
	if err := fn(scope); err != nil {
		return err
	}
	s.accounts = scope.accounts
	s.transactions = scope.transactions
	return nil
}

type memScope struct {
	store        *memStore
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
}

func (m *memScope) Accounts() Accounts         { return memAccounts{m} }
func (m *memScope) Transactions() Transactions { return memTransactions{m} }
func (m *memScope) Categories() Categories     { return memCategories{m} }

type memAccounts struct{ *memScope }

func (a memAccounts) FindOne(_ context.Context, id, userID string) (domain.Account, error) {
	acc, ok := a.accounts[id]
	if !ok || acc.UserID != userID {
		return domain.Account{}, domain.NotFound("account", id)
	}
	return acc, nil
}

func (a memAccounts) UpdateBalance(_ context.Context, id string, delta decimal.Decimal) (domain.Account, error) {
	if id == a.store.failBalance {
		return domain.Account{}, errors.New("disk full")
	}
	acc, ok := a.accounts[id]
	if !ok {
		return domain.Account{}, domain.NotFound("account", id)
	}
	acc.Balance = acc.Balance.Add(delta)
	a.accounts[id] = acc
	return acc, nil
}

type memTransactions struct{ *memScope }

func (t memTransactions) FindOne(_ context.Context, id, userID string) (domain.Transaction, error) {
	tx, ok := t.transactions[id]
	if !ok || tx.UserID != userID {
		return domain.Transaction{}, domain.NotFound("transaction", id)
	}
	return tx, nil
}

func (t memTransactions) Insert(_ context.Context, tx domain.Transaction) error {
	t.transactions[tx.ID] = tx
	return nil
}

func (t memTransactions) Update(_ context.Context, tx domain.Transaction) error {
	if _, ok := t.transactions[tx.ID]; !ok {
		return domain.NotFound("transaction", tx.ID)
	}
	t.transactions[tx.ID] = tx
	return nil
}

func (t memTransactions) Delete(_ context.Context, id, _ string) error {
	delete(t.transactions, id)
	return nil
}

type memCategories struct{ *memScope }

func (c memCategories) FindOne(_ context.Context, id, userID string) (domain.Category, error) {
	cat, ok := c.store.categories[id]
	if !ok || cat.UserID != userID {
		return domain.Category{}, domain.NotFound("category", id)
	}
	return cat, nil
}
