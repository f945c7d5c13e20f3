// Package analyticstest provides in-memory providers for analytics tests.
package analyticstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Ledger is an in-memory TransactionsProvider. CategoryProvider exposes its
// categories. Set Err to make every call fail.
type Ledger struct {
	mu           sync.Mutex
	Transactions []domain.Transaction
	Categories   []domain.Category
	Err          error
}

var _ analytics.TransactionsProvider = (*Ledger)(nil)

// AddCategory appends a category.
func (l *Ledger) AddCategory(userID, id, name string, typ domain.CategoryType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Categories = append(l.Categories, domain.Category{ID: id, Name: name, Type: typ, UserID: userID})
}

// Add appends a transaction and returns it. The type follows the amount's sign.
func (l *Ledger) Add(t domain.Transaction) domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.Type == "" {
		t.Type = domain.TransactionTypeIncome
		if t.Amount.IsNegative() {
			t.Type = domain.TransactionTypeExpense
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.Date.Add(time.Duration(len(l.Transactions)) * time.Second)
	}
	l.Transactions = append(l.Transactions, t)
	return t
}

// Paid is shorthand for adding a paid transaction.
func (l *Ledger) Paid(id, userID, categoryID, description string, amount float64, date time.Time) domain.Transaction {
	return l.Add(domain.Transaction{
		ID: id, UserID: userID, CategoryID: categoryID, Description: description,
		Amount: decimal.NewFromFloat(amount), Date: domain.Day(date), IsPaid: true, AccountID: "acc",
	})
}

func (l *Ledger) FindByPeriod(_ context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	from, to := domain.Day(start), domain.Day(end)
	var out []domain.Transaction
	for _, t := range l.Transactions {
		if t.UserID == userID && t.IsPaid && !t.Date.Before(from) && !t.Date.After(to) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (l *Ledger) FindRecent(_ context.Context, userID string, limit int) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	var out []domain.Transaction
	for _, t := range l.Transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return newestFirst(out, limit), nil
}

func (l *Ledger) FindCategorized(_ context.Context, limit int) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	var out []domain.Transaction
	for _, t := range l.Transactions {
		if t.Categorized() {
			out = append(out, t)
		}
	}
	return newestFirst(out, limit), nil
}

func (l *Ledger) FindOne(_ context.Context, id, userID string) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return domain.Transaction{}, l.Err
	}
	for _, t := range l.Transactions {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return domain.Transaction{}, domain.NotFound("transaction", id)
}

// CategoryProvider returns a CategoriesProvider view of the ledger.
func (l *Ledger) CategoryProvider() analytics.CategoriesProvider {
	return categoryView{l}
}

type categoryView struct{ l *Ledger }

func (v categoryView) FindAll(_ context.Context, userID string, typ domain.CategoryType) ([]domain.Category, error) {
	return v.l.findAllCategories(userID, typ)
}

func (v categoryView) FindOne(_ context.Context, id, userID string) (domain.Category, error) {
	return v.l.findCategory(id, userID)
}

func (l *Ledger) findAllCategories(userID string, typ domain.CategoryType) ([]domain.Category, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	var out []domain.Category
	for _, c := range l.Categories {
		if c.UserID == userID && c.Type.Matches(typ) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *Ledger) findCategory(id, userID string) (domain.Category, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return domain.Category{}, l.Err
	}
	for _, c := range l.Categories {
		if c.ID == id && c.UserID == userID {
			return c, nil
		}
	}
	return domain.Category{}, domain.NotFound("category", id)
}

func newestFirst(txs []domain.Transaction, limit int) []domain.Transaction {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}
