// Package handlers exposes the ledger and the analytics engine over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/smart-ledger/internal/analytics/anomaly"
	"github.com/dvloznov/smart-ledger/internal/analytics/classifier"
	"github.com/dvloznov/smart-ledger/internal/analytics/dashboard"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/ledger"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// LedgerService mutates transactions and their balance effects.
type LedgerService interface {
	Create(ctx context.Context, userID string, in ledger.NewTransaction) (domain.Transaction, error)
	Update(ctx context.Context, userID, id string, patch domain.TransactionPatch) (domain.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
}

// AccountStore persists accounts.
type AccountStore interface {
	Create(ctx context.Context, a domain.Account) error
	List(ctx context.Context, userID string) ([]domain.Account, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	Create(ctx context.Context, c domain.Category) error
	FindAll(ctx context.Context, userID string, typ domain.CategoryType) ([]domain.Category, error)
}

// TransactionLister lists a user's transactions in a date range.
type TransactionLister interface {
	List(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error)
}

// Classifier is the categorization side of the analytics engine.
type Classifier interface {
	SuggestCategory(ctx context.Context, description string, amount float64, userID string) *classifier.Suggestion
	LearnFromFeedback(ctx context.Context, transactionID, categoryID, userID string) error
	Ready() bool
	Documents() int
}

// Forecaster predicts spending.
type Forecaster interface {
	PredictNextMonthSpending(ctx context.Context, userID string) []forecast.CategoryPrediction
	GetCategoryTrend(ctx context.Context, userID, categoryID string, months int) []forecast.MonthlyAggregate
}

// Detector reports anomalies and missing recurrences.
type Detector interface {
	DetectAnomalies(ctx context.Context, userID string, maxResults int) []anomaly.AnomalyDetection
	DetectUnusualFrequency(ctx context.Context, userID string) []anomaly.MissingRecurrence
}

// DashboardBuilder composes the dashboard view.
type DashboardBuilder interface {
	Build(ctx context.Context, userID string) (dashboard.Dashboard, error)
}

// writeDomainError maps error kinds onto HTTP status codes. A balance failure
// is a server error even when its cause is a missing row.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBalanceUpdate):
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// intParam reads a positive integer query parameter, falling back to def.
func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, domain.Invalid("%s must be a positive integer", name)
	}
	return n, nil
}

// parseDate parses YYYY-MM-DD.
func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, domain.Invalid("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}
