// Package sqlite implements the ledger store and the analytics read providers
// on top of database/sql and the embedded SQLite schema.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/smart-ledger/internal/database"
	"github.com/dvloznov/smart-ledger/internal/ledger"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const tsLayout = time.RFC3339Nano

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullable maps an empty reference to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Store is the SQLite implementation of ledger.Store.
type Store struct {
	db *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx implements ledger.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(txScope{tx: tx})
	})
}

type txScope struct {
	tx *sql.Tx
}

func (s txScope) Accounts() ledger.Accounts         { return &AccountRepo{q: s.tx} }
func (s txScope) Transactions() ledger.Transactions { return &TransactionRepo{q: s.tx} }
func (s txScope) Categories() ledger.Categories     { return &CategoryRepo{q: s.tx} }

// Repositories bundles the non-transactional repositories over one database.
type Repositories struct {
	Accounts     *AccountRepo
	Categories   *CategoryRepo
	Transactions *TransactionRepo
}

// NewRepositories creates repositories bound to db.
func NewRepositories(db *sql.DB) Repositories {
	return Repositories{
		Accounts:     &AccountRepo{q: db},
		Categories:   &CategoryRepo{q: db},
		Transactions: &TransactionRepo{q: db},
	}
}

// Ensure Store implements ledger.Store.
var _ ledger.Store = (*Store)(nil)
