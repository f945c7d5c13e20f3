// Package analytics holds the read-side collaborators and numeric helpers
// shared by the classifier, forecaster and anomaly detector.
package analytics

import (
	"context"
	"time"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// TransactionsProvider is the ledger as seen by analytics.
type TransactionsProvider interface {
	// FindByPeriod returns paid transactions dated within [start, end].
	FindByPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error)

	// FindRecent returns the user's latest transactions, most recent first.
	FindRecent(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)

	// FindCategorized returns the latest categorized transactions of all users.
	FindCategorized(ctx context.Context, limit int) ([]domain.Transaction, error)

	FindOne(ctx context.Context, id, userID string) (domain.Transaction, error)
}

// CategoriesProvider exposes the user's taxonomy. An empty typ returns all
// categories; BOTH categories are returned for either side.
type CategoriesProvider interface {
	FindAll(ctx context.Context, userID string, typ domain.CategoryType) ([]domain.Category, error)
	FindOne(ctx context.Context, id, userID string) (domain.Category, error)
}
