package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// TransactionRepo handles ledger entries. It serves both the ledger service
// and the analytics read paths.
type TransactionRepo struct {
	q querier
}

const transactionColumns = `id, user_id, account_id, destination_account_id, category_id,
	amount, type, description, date, is_paid, created_at, updated_at`

// Insert stores a new transaction.
func (r *TransactionRepo) Insert(ctx context.Context, t domain.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO transactions(`+transactionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, nullable(t.DestinationAccountID), nullable(t.CategoryID),
		t.Amount.String(), string(t.Type), t.Description, t.Date.Format(domain.DateLayout), t.IsPaid,
		formatTS(t.CreatedAt), formatTS(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("TransactionRepo.Insert: %w", err)
	}
	return nil
}

// Update overwrites every mutable field of t.
func (r *TransactionRepo) Update(ctx context.Context, t domain.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
	UPDATE transactions SET
	 account_id = ?, destination_account_id = ?, category_id = ?, amount = ?, type = ?,
	 description = ?, date = ?, is_paid = ?, updated_at = ?
	WHERE id = ? AND user_id = ?`,
		t.AccountID, nullable(t.DestinationAccountID), nullable(t.CategoryID), t.Amount.String(), string(t.Type),
		t.Description, t.Date.Format(domain.DateLayout), t.IsPaid, formatTS(t.UpdatedAt),
		t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("TransactionRepo.Update: %w", err)
	}
	return expectOne(res, t.ID)
}

// Delete removes the transaction.
func (r *TransactionRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("TransactionRepo.Delete: %w", err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFound("transaction", id)
	}
	return nil
}

// FindOne returns the transaction when it exists and belongs to userID.
func (r *TransactionRepo) FindOne(ctx context.Context, id, userID string) (domain.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, domain.NotFound("transaction", id)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("TransactionRepo.FindOne: %w", err)
	}
	return t, nil
}

// FindByPeriod returns the user's paid transactions dated within [start, end],
// oldest first.
func (r *TransactionRepo) FindByPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	return r.query(ctx, "TransactionRepo.FindByPeriod", `
	SELECT `+transactionColumns+` FROM transactions
	WHERE user_id = ? AND is_paid = 1 AND date >= ? AND date <= ?
	ORDER BY date, created_at`,
		userID, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
}

// List returns all of the user's transactions within [start, end], paid or not, newest first.
func (r *TransactionRepo) List(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	return r.query(ctx, "TransactionRepo.List", `
	SELECT `+transactionColumns+` FROM transactions
	WHERE user_id = ? AND date >= ? AND date <= ?
	ORDER BY date DESC, created_at DESC`,
		userID, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
}

// FindRecent returns the user's latest transactions, most recent first.
func (r *TransactionRepo) FindRecent(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	return r.query(ctx, "TransactionRepo.FindRecent", `
	SELECT `+transactionColumns+` FROM transactions
	WHERE user_id = ?
	ORDER BY date DESC, created_at DESC
	LIMIT ?`, userID, limit)
}

// FindCategorized returns the latest categorized transactions across all users.
func (r *TransactionRepo) FindCategorized(ctx context.Context, limit int) ([]domain.Transaction, error) {
	return r.query(ctx, "TransactionRepo.FindCategorized", `
	SELECT `+transactionColumns+` FROM transactions
	WHERE category_id IS NOT NULL
	ORDER BY date DESC, created_at DESC
	LIMIT ?`, limit)
}

func (r *TransactionRepo) query(ctx context.Context, op, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

func scanTransaction(s rowScanner) (domain.Transaction, error) {
	var (
		t                  domain.Transaction
		dest, category     sql.NullString
		amount, typ, date  string
		created, updatedAt string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &dest, &category,
		&amount, &typ, &t.Description, &date, &t.IsPaid, &created, &updatedAt); err != nil {
		return domain.Transaction{}, err
	}
	t.DestinationAccountID = dest.String
	t.CategoryID = category.String
	t.Type = domain.TransactionType(typ)

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.Date, err = time.Parse(domain.DateLayout, date); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	if t.CreatedAt, err = parseTS(created); err != nil {
		return domain.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTS(updatedAt); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}
