package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/analytics/anomaly"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
	"github.com/dvloznov/smart-ledger/internal/api/middleware"
)

// AnalyticsHandler serves suggestions, forecasts and anomaly reports.
type AnalyticsHandler struct {
	classifier Classifier
	forecaster Forecaster
	detector   Detector
	dashboard  DashboardBuilder
	log        zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(c Classifier, f Forecaster, d Detector, b DashboardBuilder, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{classifier: c, forecaster: f, detector: d, dashboard: b, log: log}
}

// Suggest handles POST /api/analytics/suggest. A null suggestion is returned
// as {"suggestion": null}.
func (h *AnalyticsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	s := h.classifier.SuggestCategory(r.Context(), req.Description, req.Amount, middleware.UserIDFrom(r.Context()))
	resp := map[string]interface{}{"suggestion": s}
	if s != nil {
		resp["autoApply"] = s.AutoApply()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Feedback handles POST /api/analytics/feedback
func (h *AnalyticsHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transactionId"`
		CategoryID    string `json:"categoryId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TransactionID == "" || req.CategoryID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "transactionId and categoryId are required")
		return
	}

	if err := h.classifier.LearnFromFeedback(r.Context(), req.TransactionID, req.CategoryID, middleware.UserIDFrom(r.Context())); err != nil {
		writeDomainError(w, r, err, "Failed to record feedback")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "learned",
		"documents": h.classifier.Documents(),
	})
}

// Forecast handles GET /api/analytics/forecast
func (h *AnalyticsHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	predictions := h.forecaster.PredictNextMonthSpending(r.Context(), middleware.UserIDFrom(r.Context()))
	if predictions == nil {
		predictions = []forecast.CategoryPrediction{}
	}
	middleware.WriteJSON(w, http.StatusOK, predictions)
}

// Trend handles GET /api/analytics/trend/{categoryId}?months=
func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	months, err := intParam(r, "months", forecast.WindowMonths)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	series := h.forecaster.GetCategoryTrend(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("categoryId"), months)
	if series == nil {
		series = []forecast.MonthlyAggregate{}
	}
	middleware.WriteJSON(w, http.StatusOK, series)
}

// Anomalies handles GET /api/analytics/anomalies?limit=
func (h *AnalyticsHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", anomaly.DefaultMaxResults)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	found := h.detector.DetectAnomalies(r.Context(), middleware.UserIDFrom(r.Context()), limit)
	if found == nil {
		found = []anomaly.AnomalyDetection{}
	}
	middleware.WriteJSON(w, http.StatusOK, found)
}

// Missing handles GET /api/analytics/missing
func (h *AnalyticsHandler) Missing(w http.ResponseWriter, r *http.Request) {
	missing := h.detector.DetectUnusualFrequency(r.Context(), middleware.UserIDFrom(r.Context()))
	if missing == nil {
		missing = []anomaly.MissingRecurrence{}
	}
	middleware.WriteJSON(w, http.StatusOK, missing)
}

// Dashboard handles GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Build(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err, "Failed to build dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

// HealthHandler reports liveness and classifier readiness.
type HealthHandler struct {
	classifier Classifier
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(c Classifier) *HealthHandler {
	return &HealthHandler{classifier: c}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":               "healthy",
		"time":                 time.Now().Format(time.RFC3339),
		"classifier_ready":     h.classifier.Ready(),
		"classifier_documents": h.classifier.Documents(),
	})
}
