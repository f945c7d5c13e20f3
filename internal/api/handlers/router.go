package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/jobs"
)

// Deps are the collaborators served by the router.
type Deps struct {
	Ledger       LedgerService
	Accounts     AccountStore
	Categories   CategoryStore
	Transactions TransactionLister
	Classifier   Classifier
	Forecaster   Forecaster
	Detector     Detector
	Dashboard    DashboardBuilder
	JobStore     jobs.JobStore
	Publisher    jobs.Publisher
	Reports      ReportReader
}

// NewRouter registers every route and wraps the mux in the middleware chain.
// Everything under /api/ requires an X-User-ID header.
func NewRouter(d Deps, log zerolog.Logger) http.Handler {
	accounts := NewAccountsHandler(d.Accounts, log)
	categories := NewCategoriesHandler(d.Categories, log)
	transactions := NewTransactionsHandler(d.Ledger, d.Transactions, log)
	analytics := NewAnalyticsHandler(d.Classifier, d.Forecaster, d.Detector, d.Dashboard, log)
	jobsHandler := NewJobsHandler(d.JobStore, d.Publisher, log)
	reports := NewReportsHandler(d.Reports, log)
	health := NewHealthHandler(d.Classifier)

	api := http.NewServeMux()

	api.HandleFunc("GET /api/accounts", accounts.ListAccounts)
	api.HandleFunc("POST /api/accounts", accounts.CreateAccount)

	api.HandleFunc("GET /api/categories", categories.ListCategories)
	api.HandleFunc("POST /api/categories", categories.CreateCategory)

	api.HandleFunc("GET /api/transactions", transactions.ListTransactions)
	api.HandleFunc("POST /api/transactions", transactions.CreateTransaction)
	api.HandleFunc("PATCH /api/transactions/{id}", transactions.UpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", transactions.DeleteTransaction)

	api.HandleFunc("POST /api/analytics/suggest", analytics.Suggest)
	api.HandleFunc("POST /api/analytics/feedback", analytics.Feedback)
	api.HandleFunc("GET /api/analytics/forecast", analytics.Forecast)
	api.HandleFunc("GET /api/analytics/trend/{categoryId}", analytics.Trend)
	api.HandleFunc("GET /api/analytics/anomalies", analytics.Anomalies)
	api.HandleFunc("GET /api/analytics/missing", analytics.Missing)
	api.HandleFunc("GET /api/analytics/dashboard", analytics.Dashboard)

	api.HandleFunc("POST /api/reports/dashboard", jobsHandler.ExportDashboard)
	api.HandleFunc("GET /api/reports/dashboard/{date}", reports.GetDashboardReport)
	api.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	api.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.RequireUser(api))
	mux.HandleFunc("GET /health", health.Health)

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)
}
