// Package bigquery reads the ledger from a BigQuery warehouse so analytics
// can run against exported history instead of the local store.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

const (
	transactionsTable = "transactions"
	categoriesTable   = "categories"
	dateFormat        = "2006-01-02"
)

var datasetName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Warehouse holds a shared BigQuery client bound to one dataset.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	dataset   string
}

// NewWarehouse connects to projectID and targets dataset.
func NewWarehouse(ctx context.Context, projectID, dataset string) (*Warehouse, error) {
	if !datasetName.MatchString(dataset) {
		return nil, fmt.Errorf("NewWarehouse: invalid dataset name %q", dataset)
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{client: client, projectID: projectID, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

func (w *Warehouse) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", w.projectID, w.dataset, name)
}

// Transactions returns the warehouse as a TransactionsProvider.
func (w *Warehouse) Transactions() *TransactionRepository {
	return &TransactionRepository{w: w}
}

// Categories returns the warehouse as a CategoriesProvider.
func (w *Warehouse) Categories() *CategoryRepository {
	return &CategoryRepository{w: w}
}

// TransactionRepository reads ledger transactions from the warehouse.
type TransactionRepository struct {
	w *Warehouse
}

var _ analytics.TransactionsProvider = (*TransactionRepository)(nil)

const transactionColumns = `
	transaction_id, user_id, account_id, destination_account_id, category_id,
	transaction_date, amount, type, description, is_paid, created_ts, updated_ts`

// FindByPeriod returns paid transactions dated within [start, end], oldest first.
func (r *TransactionRepository) FindByPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	q := r.w.client.Query(`SELECT` + transactionColumns + `
		FROM ` + r.w.table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND is_paid
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start.Format(dateFormat)},
		{Name: "end_date", Value: end.Format(dateFormat)},
	}
	return readTransactions(ctx, q, "FindByPeriod")
}

// FindRecent returns the user's latest transactions, most recent first.
func (r *TransactionRepository) FindRecent(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	q := r.w.client.Query(`SELECT` + transactionColumns + `
		FROM ` + r.w.table(transactionsTable) + `
		WHERE user_id = @user_id
		ORDER BY transaction_date DESC, created_ts DESC
		LIMIT @limit`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: limit},
	}
	return readTransactions(ctx, q, "FindRecent")
}

// FindCategorized returns the latest categorized transactions of all users.
func (r *TransactionRepository) FindCategorized(ctx context.Context, limit int) ([]domain.Transaction, error) {
	q := r.w.client.Query(`SELECT` + transactionColumns + `
		FROM ` + r.w.table(transactionsTable) + `
		WHERE category_id IS NOT NULL
		ORDER BY transaction_date DESC, created_ts DESC
		LIMIT @limit`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}
	return readTransactions(ctx, q, "FindCategorized")
}

// FindOne returns one of the user's transactions.
func (r *TransactionRepository) FindOne(ctx context.Context, id, userID string) (domain.Transaction, error) {
	q := r.w.client.Query(`SELECT` + transactionColumns + `
		FROM ` + r.w.table(transactionsTable) + `
		WHERE transaction_id = @transaction_id AND user_id = @user_id
		LIMIT 1`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
		{Name: "user_id", Value: userID},
	}
	txs, err := readTransactions(ctx, q, "FindOne")
	if err != nil {
		return domain.Transaction{}, err
	}
	if len(txs) == 0 {
		return domain.Transaction{}, domain.NotFound("transaction", id)
	}
	return txs[0], nil
}

// InsertTransactions streams a batch of ledger transactions into the warehouse.
func (r *TransactionRepository) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]*TransactionRow, len(txs))
	for i, t := range txs {
		rows[i] = NewTransactionRow(t)
	}
	inserter := r.w.client.DatasetInProject(r.w.projectID, r.w.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

func readTransactions(ctx context.Context, q *bigquery.Query, op string) ([]domain.Transaction, error) {
	rows, err := readAll[TransactionRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		t, err := rows[i].Transaction()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// CategoryRepository reads categories from the warehouse.
type CategoryRepository struct {
	w *Warehouse
}

var _ analytics.CategoriesProvider = (*CategoryRepository)(nil)

// findAllCategoriesSQL lists categories in creation order, matching the
// local store, so the first category of a polarity is the same on both.
func findAllCategoriesSQL(table string) string {
	return `
		SELECT category_id, user_id, name, type, created_ts
		FROM ` + table + `
		WHERE user_id = @user_id
		  AND (@type = '' OR type = @type OR type = 'BOTH')
		ORDER BY created_ts, category_id`
}

// FindAll returns the user's categories in creation order. BOTH categories
// match either side when typ is set.
func (r *CategoryRepository) FindAll(ctx context.Context, userID string, typ domain.CategoryType) ([]domain.Category, error) {
	q := r.w.client.Query(findAllCategoriesSQL(r.w.table(categoriesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "type", Value: string(typ)},
	}
	rows, err := readAll[CategoryRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("CategoryRepository.FindAll: %w", err)
	}
	out := make([]domain.Category, len(rows))
	for i, row := range rows {
		out[i] = row.Category()
	}
	return out, nil
}

// FindOne returns one of the user's categories.
func (r *CategoryRepository) FindOne(ctx context.Context, id, userID string) (domain.Category, error) {
	q := r.w.client.Query(`
		SELECT category_id, user_id, name, type, created_ts
		FROM ` + r.w.table(categoriesTable) + `
		WHERE category_id = @category_id AND user_id = @user_id
		LIMIT 1`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_id", Value: id},
		{Name: "user_id", Value: userID},
	}
	rows, err := readAll[CategoryRow](ctx, q)
	if err != nil {
		return domain.Category{}, fmt.Errorf("CategoryRepository.FindOne: %w", err)
	}
	if len(rows) == 0 {
		return domain.Category{}, domain.NotFound("category", id)
	}
	return rows[0].Category(), nil
}

// readAll runs q and loads every row into a T.
func readAll[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}
	var rows []T
	for {
		var r T
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
