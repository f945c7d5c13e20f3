package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/database"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	q querier
}

const accountColumns = `id, user_id, name, balance, created_at, updated_at`

// Create inserts a.
func (r *AccountRepo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO accounts(id, user_id, name, balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Balance.String(), formatTS(a.CreatedAt), formatTS(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("AccountRepo.Create: %w", err)
	}
	return nil
}

// List returns the user's accounts ordered by name.
func (r *AccountRepo) List(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("AccountRepo.List: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("AccountRepo.List: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindOne returns the account when it exists and belongs to userID.
func (r *AccountRepo) FindOne(ctx context.Context, id, userID string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.NotFound("account", id)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("AccountRepo.FindOne: %w", err)
	}
	return a, nil
}

// UpdateBalance adds delta to the stored balance. Outside a transaction the
// read-modify-write runs in its own transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error) {
	db, ok := r.q.(*sql.DB)
	if !ok {
		return updateBalance(ctx, r.q, id, delta)
	}
	var out domain.Account
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		out, err = updateBalance(ctx, tx, id, delta)
		return err
	})
	return out, err
}

func updateBalance(ctx context.Context, q querier, id string, delta decimal.Decimal) (domain.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.NotFound("account", id)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("updateBalance: read: %w", err)
	}

	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = database.Now()
	if _, err := q.ExecContext(ctx, `UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		a.Balance.String(), formatTS(a.UpdatedAt), id); err != nil {
		return domain.Account{}, fmt.Errorf("updateBalance: write: %w", err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (domain.Account, error) {
	var (
		a                  domain.Account
		balance            string
		created, updatedAt string
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &balance, &created, &updatedAt); err != nil {
		return domain.Account{}, err
	}
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return domain.Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	if a.CreatedAt, err = parseTS(created); err != nil {
		return domain.Account{}, err
	}
	if a.UpdatedAt, err = parseTS(updatedAt); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}
