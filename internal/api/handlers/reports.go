package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
)

// ReportReader loads exported dashboard snapshots.
type ReportReader interface {
	Snapshot(ctx context.Context, userID, date string) ([]byte, error)
}

// ReportsHandler serves stored dashboard exports.
type ReportsHandler struct {
	reports ReportReader
	log     zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports ReportReader, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{reports: reports, log: log}
}

// GetDashboardReport handles GET /api/reports/dashboard/{date}
func (h *ReportsHandler) GetDashboardReport(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r.Context())
	data, err := h.reports.Snapshot(r.Context(), userID, r.PathValue("date"))
	if err != nil {
		writeDomainError(w, r, err, "Failed to load report")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
