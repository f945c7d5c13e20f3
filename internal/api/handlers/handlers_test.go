package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/analytics/anomaly"
	"github.com/dvloznov/smart-ledger/internal/analytics/classifier"
	"github.com/dvloznov/smart-ledger/internal/analytics/dashboard"
	"github.com/dvloznov/smart-ledger/internal/analytics/features"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
	"github.com/dvloznov/smart-ledger/internal/api/handlers"
	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/database"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/infra/sqlite"
	"github.com/dvloznov/smart-ledger/internal/jobs"
	"github.com/dvloznov/smart-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/smart-ledger/internal/ledger"
	"github.com/dvloznov/smart-ledger/internal/reports"
)

type server struct {
	handler  http.Handler
	jobStore *inmemory.Store
	exporter *reports.Exporter
}

type memObjects map[string][]byte

func (m memObjects) Put(_ context.Context, bucket, object, _ string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m[reports.GCSURI(bucket, object)] = data
	return nil
}

func (m memObjects) Fetch(_ context.Context, uri string) ([]byte, error) {
	data, ok := m[uri]
	if !ok {
		return nil, domain.NotFound("report", uri)
	}
	return data, nil
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.OpenMigrated(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	repos := sqlite.NewRepositories(db)
	keywords, err := classifier.DefaultKeywords()
	require.NoError(t, err)

	c := classifier.New(repos.Transactions, repos.Categories, log, classifier.Options{Keywords: keywords})
	f := forecast.New(repos.Transactions, repos.Categories, log)
	d := anomaly.New(repos.Transactions, repos.Categories, features.SubstringMatcher{}, log)

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, store, log)
	t.Cleanup(func() { _ = queue.Close() })

	dash := dashboard.New(f, d, anomaly.DefaultMaxResults)
	exporter := reports.NewExporter(dash, memObjects{}, "ledger-reports", log)

	return &server{
		handler: handlers.NewRouter(handlers.Deps{
			Ledger:       ledger.NewService(sqlite.NewStore(db), log),
			Accounts:     repos.Accounts,
			Categories:   repos.Categories,
			Transactions: repos.Transactions,
			Classifier:   c,
			Forecaster:   f,
			Detector:     d,
			Dashboard:    dash,
			JobStore:     store,
			Publisher:    queue,
			Reports:      exporter,
		}, log),
		jobStore: store,
		exporter: exporter,
	}
}

func (s *server) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *server) createAccount(t *testing.T, user, name, balance string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/accounts", user, map[string]any{"name": name, "balance": balance})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](t, rec)["id"].(string)
}

func (s *server) balance(t *testing.T, user, id string) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/accounts", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Accounts []struct {
			ID      string `json:"id"`
			Balance string `json:"balance"`
		} `json:"accounts"`
	}](t, rec)
	for _, a := range body.Accounts {
		if a.ID == id {
			return a.Balance
		}
	}
	t.Fatalf("account %s not listed", id)
	return ""
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/api/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, false, health["classifier_ready"])
	assert.Equal(t, float64(0), health["classifier_documents"])
}

func TestTransactionLifecycle(t *testing.T) {
	s := newServer(t)
	const user = "u1"
	a := s.createAccount(t, user, "Checking", "1000")

	rec := s.do(t, http.MethodPost, "/api/transactions", user, map[string]any{
		"amount": 50, "type": "EXPENSE", "description": "groceries",
		"date": "2026-03-04", "isPaid": true, "accountId": a,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	id := created["id"].(string)
	assert.Equal(t, "-50", created["amount"])
	assert.Equal(t, "950", s.balance(t, user, a))

	rec = s.do(t, http.MethodPatch, "/api/transactions/"+id, user, map[string]any{"amount": 80, "date": "2026-03-05"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "920", s.balance(t, user, a))

	rec = s.do(t, http.MethodGet, "/api/transactions?start=2026-03-01&end=2026-03-31", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "-80", list[0]["amount"])

	rec = s.do(t, http.MethodDelete, "/api/transactions/"+id, user, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1000", s.balance(t, user, a))

	rec = s.do(t, http.MethodDelete, "/api/transactions/"+id, user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionErrors(t *testing.T) {
	s := newServer(t)
	a := s.createAccount(t, "u1", "A", "0")
	b := s.createAccount(t, "u2", "B", "0")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"self transfer", map[string]any{"amount": 10, "type": "TRANSFER", "accountId": a, "destinationAccountId": a, "isPaid": true}, http.StatusBadRequest},
		{"unknown type", map[string]any{"amount": 10, "type": "GIFT", "accountId": a}, http.StatusBadRequest},
		{"bad date", map[string]any{"amount": 10, "type": "EXPENSE", "accountId": a, "date": "04/03/2026"}, http.StatusBadRequest},
		{"another user's account", map[string]any{"amount": 10, "type": "EXPENSE", "accountId": b}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/transactions", "u1", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("{"))
	req.Header.Set(middleware.UserIDHeader, "u1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategories(t *testing.T) {
	s := newServer(t)
	for _, c := range []map[string]any{
		{"name": "Food", "type": "EXPENSE"},
		{"name": "Salary", "type": "INCOME"},
		{"name": "Gifts", "type": "BOTH"},
	} {
		rec := s.do(t, http.MethodPost, "/api/categories", "u1", c)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodPost, "/api/categories", "u1", map[string]any{"name": "X", "type": "OTHER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/categories?type=EXPENSE", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/categories", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, rec)["count"])
}

func TestSuggestAndFeedback(t *testing.T) {
	s := newServer(t)
	const user = "u1"
	a := s.createAccount(t, user, "A", "0")
	rec := s.do(t, http.MethodPost, "/api/categories", user, map[string]any{"name": "Food", "type": "EXPENSE"})
	require.Equal(t, http.StatusCreated, rec.Code)
	food := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/analytics/suggest", user, map[string]any{"description": "TESCO Metro", "amount": -23.5})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Suggestion *classifier.Suggestion `json:"suggestion"`
		AutoApply  bool                   `json:"autoApply"`
	}](t, rec)
	require.NotNil(t, body.Suggestion)
	assert.Equal(t, food, body.Suggestion.CategoryID)
	assert.Equal(t, "keyword", body.Suggestion.Strategy)
	assert.True(t, body.AutoApply)

	rec = s.do(t, http.MethodPost, "/api/analytics/suggest", user, map[string]any{"description": "salary", "amount": 1000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"suggestion":null}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/transactions", user, map[string]any{
		"amount": 12, "type": "EXPENSE", "description": "corner bakery", "isPaid": true, "accountId": a,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	txID := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/analytics/feedback", user, map[string]any{"transactionId": txID, "categoryId": food})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["documents"])

	rec = s.do(t, http.MethodPost, "/api/analytics/feedback", "u2", map[string]any{"transactionId": txID, "categoryId": food})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/analytics/feedback", user, map[string]any{"transactionId": txID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsReads(t *testing.T) {
	s := newServer(t)
	const user = "u1"

	rec := s.do(t, http.MethodGet, "/api/analytics/forecast", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/analytics/anomalies?limit=3", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/analytics/anomalies?limit=zero", user, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/analytics/missing", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/analytics/trend/nope?months=3", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/analytics/dashboard", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[map[string]any](t, rec)
	assert.Equal(t, user, d["userId"])
	assert.Equal(t, float64(0), d["totalPredictedSpending"])
}

func TestExportJobs(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/reports/dashboard", "u1", map[string]any{"report_date": "2026-05-02"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decode[map[string]string](t, rec)["job_id"]
	require.NotEmpty(t, jobID)

	rec = s.do(t, http.MethodPost, "/api/reports/dashboard", "u1", map[string]any{"report_date": "May"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[jobs.ExportDashboardJob](t, rec)
	assert.Equal(t, "2026-05-02", job.ReportDate)
	assert.Equal(t, jobs.JobStatusPending, job.Status)

	rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/jobs?status=pending", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/jobs", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/jobs?status=lost", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardReport(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/reports/dashboard/2026-05-02", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := s.exporter.Export(context.Background(), "u1", "2026-05-02")
	require.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/api/reports/dashboard/2026-05-02", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "u1", decode[map[string]any](t, rec)["userId"])

	rec = s.do(t, http.MethodGet, "/api/reports/dashboard/2026-05-02", "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/reports/dashboard/May", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
