// Package reports exports dashboard snapshots to object storage.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/analytics/dashboard"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/jobs"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// DashboardBuilder produces the dashboard being exported.
type DashboardBuilder interface {
	Build(ctx context.Context, userID string) (dashboard.Dashboard, error)
}

// Exporter renders dashboards as JSON objects under reports/<user>/<date>.json.
type Exporter struct {
	builder DashboardBuilder
	store   ObjectStore
	bucket  string
	log     zerolog.Logger
	now     func() time.Time
}

// NewExporter creates an exporter writing to bucket.
func NewExporter(builder DashboardBuilder, store ObjectStore, bucket string, log zerolog.Logger) *Exporter {
	return &Exporter{
		builder: builder,
		store:   store,
		bucket:  bucket,
		log:     logger.Component(log, "reports"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ObjectName returns the object path of a user's snapshot for date.
func ObjectName(userID, date string) string {
	return fmt.Sprintf("reports/%s/%s.json", userID, date)
}

// Export writes the user's current dashboard and returns its URI. An empty
// date uses today.
func (e *Exporter) Export(ctx context.Context, userID, date string) (string, error) {
	date, err := e.reportDate(date)
	if err != nil {
		return "", err
	}

	d, err := e.builder.Build(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("Export: build dashboard: %w", err)
	}
	body, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Export: encode dashboard: %w", err)
	}

	object := ObjectName(userID, date)
	if err := e.store.Put(ctx, e.bucket, object, "application/json", bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("Export: upload %s: %w", object, err)
	}

	uri := GCSURI(e.bucket, object)
	e.log.Info().Str("user_id", userID).Str("uri", uri).Msg("dashboard exported")
	return uri, nil
}

// Snapshot returns the JSON of a previously exported dashboard. An empty
// date uses today.
func (e *Exporter) Snapshot(ctx context.Context, userID, date string) ([]byte, error) {
	date, err := e.reportDate(date)
	if err != nil {
		return nil, err
	}
	data, err := e.store.Fetch(ctx, GCSURI(e.bucket, ObjectName(userID, date)))
	if err != nil {
		return nil, fmt.Errorf("Snapshot: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("Snapshot: %s is not valid JSON", ObjectName(userID, date))
	}
	return data, nil
}

func (e *Exporter) reportDate(date string) (string, error) {
	if e.bucket == "" {
		return "", domain.Invalid("no report bucket configured")
	}
	if date == "" {
		date = e.now().Format(domain.DateLayout)
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return "", domain.Invalid("report date %q is not YYYY-MM-DD", date)
	}
	return date, nil
}

// Handle runs an ExportDashboardJob. It is a jobs.JobHandler.
func (e *Exporter) Handle(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.ExportDashboardJob)
	if !ok {
		return fmt.Errorf("Handle: unsupported job type %s", job.GetType())
	}
	if j.ReportDate == "" {
		j.ReportDate = e.now().Format(domain.DateLayout)
	}
	uri, err := e.Export(ctx, j.UserID, j.ReportDate)
	if err != nil {
		return err
	}
	j.ObjectURI = uri
	return nil
}
