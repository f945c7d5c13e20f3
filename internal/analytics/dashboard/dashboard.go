// Package dashboard composes forecasts and anomaly reports into one view.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/smart-ledger/internal/analytics/anomaly"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
)

// Forecaster is the forecasting side of the dashboard.
type Forecaster interface {
	PredictNextMonthSpending(ctx context.Context, userID string) []forecast.CategoryPrediction
}

// Detector is the anomaly side of the dashboard.
type Detector interface {
	DetectAnomalies(ctx context.Context, userID string, maxResults int) []anomaly.AnomalyDetection
	DetectUnusualFrequency(ctx context.Context, userID string) []anomaly.MissingRecurrence
}

// Dashboard is the consolidated analytics view for one user.
type Dashboard struct {
	UserID                 string                        `json:"userId"`
	Predictions            []forecast.CategoryPrediction `json:"predictions"`
	Anomalies              []anomaly.AnomalyDetection    `json:"anomalies"`
	MissingRecurrences     []anomaly.MissingRecurrence   `json:"missingRecurrences"`
	TotalPredictedSpending float64                       `json:"totalPredictedSpending"`
	GeneratedAt            time.Time                     `json:"generatedAt"`
}

// Service builds dashboards.
type Service struct {
	forecaster Forecaster
	detector   Detector
	maxResults int
	now        func() time.Time
}

// New creates a dashboard service. maxResults caps the anomaly list.
func New(forecaster Forecaster, detector Detector, maxResults int) *Service {
	return &Service{
		forecaster: forecaster,
		detector:   detector,
		maxResults: maxResults,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Build runs the three reads concurrently and merges them. Each read is
// best-effort, so Build only fails when ctx is cancelled.
func (s *Service) Build(ctx context.Context, userID string) (Dashboard, error) {
	d := Dashboard{UserID: userID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Predictions = s.forecaster.PredictNextMonthSpending(gctx, userID)
		return nil
	})
	g.Go(func() error {
		d.Anomalies = s.detector.DetectAnomalies(gctx, userID, s.maxResults)
		return nil
	})
	g.Go(func() error {
		d.MissingRecurrences = s.detector.DetectUnusualFrequency(gctx, userID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	if err := ctx.Err(); err != nil {
		return Dashboard{}, err
	}

	for _, p := range d.Predictions {
		d.TotalPredictedSpending += p.NextMonthPrediction
	}
	d.GeneratedAt = s.now()
	return d, nil
}
