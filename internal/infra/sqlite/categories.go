package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	q querier
}

// Create inserts c.
func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO categories(id, user_id, name, type) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type))
	if err != nil {
		return fmt.Errorf("CategoryRepo.Create: %w", err)
	}
	return nil
}

// FindAll returns the user's categories in creation order. A non-empty typ
// filters to that type; BOTH categories match either side.
func (r *CategoryRepo) FindAll(ctx context.Context, userID string, typ domain.CategoryType) ([]domain.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
	SELECT id, user_id, name, type FROM categories
	WHERE user_id = ? AND (? = '' OR type = ? OR type = 'BOTH')
	ORDER BY rowid`, userID, string(typ), string(typ))
	if err != nil {
		return nil, fmt.Errorf("CategoryRepo.FindAll: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("CategoryRepo.FindAll: scan: %w", err)
		}
		c.Type = domain.CategoryType(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindOne returns the category when it exists and belongs to userID.
func (r *CategoryRepo) FindOne(ctx context.Context, id, userID string) (domain.Category, error) {
	var c domain.Category
	var typ string
	err := r.q.QueryRowContext(ctx, `SELECT id, user_id, name, type FROM categories WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, domain.NotFound("category", id)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("CategoryRepo.FindOne: %w", err)
	}
	c.Type = domain.CategoryType(typ)
	return c, nil
}
