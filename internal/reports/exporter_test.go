package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/analytics/dashboard"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/jobs"
)

type memObjects struct {
	objects map[string][]byte
	err     error
}

func (m *memObjects) Put(_ context.Context, bucket, object, _ string, r io.Reader) error {
	if m.err != nil {
		return m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.objects[GCSURI(bucket, object)] = buf.Bytes()
	return nil
}

func (m *memObjects) Fetch(_ context.Context, uri string) ([]byte, error) {
	data, ok := m.objects[uri]
	if !ok {
		return nil, domain.NotFound("report", uri)
	}
	return data, nil
}

type stubBuilder struct{}

func (stubBuilder) Build(_ context.Context, userID string) (dashboard.Dashboard, error) {
	return dashboard.Dashboard{
		UserID:                 userID,
		Predictions:            []forecast.CategoryPrediction{{CategoryID: "food", NextMonthPrediction: 120}},
		TotalPredictedSpending: 120,
	}, nil
}

func newTestExporter(store ObjectStore, bucket string) *Exporter {
	e := NewExporter(stubBuilder{}, store, bucket, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2026, 5, 2, 13, 0, 0, 0, time.UTC) }
	return e
}

func TestExport(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}
	e := newTestExporter(store, "ledger-reports")

	uri, err := e.Export(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "gs://ledger-reports/reports/u1/2026-05-02.json", uri)

	data, err := store.Fetch(context.Background(), uri)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 120.0, got["totalPredictedSpending"])
	assert.Contains(t, got, "predictions")
	assert.Contains(t, got, "missingRecurrences")
	assert.Contains(t, got, "generatedAt")
}

func TestExport_Invalid(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}

	_, err := newTestExporter(store, "").Export(context.Background(), "u1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = newTestExporter(store, "b").Export(context.Background(), "u1", "May 2nd")
	assert.ErrorIs(t, err, domain.ErrValidation)

	store.err = errors.New("403")
	_, err = newTestExporter(store, "b").Export(context.Background(), "u1", "2026-05-01")
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}
	e := newTestExporter(store, "ledger-reports")
	ctx := context.Background()

	_, err := e.Snapshot(ctx, "u1", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.Export(ctx, "u1", "2026-05-01")
	require.NoError(t, err)

	data, err := e.Snapshot(ctx, "u1", "2026-05-01")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "u1", got["userId"])

	_, err = e.Snapshot(ctx, "u2", "2026-05-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.Snapshot(ctx, "u1", "yesterday")
	assert.ErrorIs(t, err, domain.ErrValidation)

	store.objects[GCSURI("ledger-reports", ObjectName("u1", "2026-04-30"))] = []byte("{truncated")
	_, err = e.Snapshot(ctx, "u1", "2026-04-30")
	assert.Error(t, err)
}

func TestHandle(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}
	e := newTestExporter(store, "b")

	job := &jobs.ExportDashboardJob{UserID: "u9"}
	require.NoError(t, e.Handle(context.Background(), job))
	assert.Equal(t, "2026-05-02", job.ReportDate)
	assert.Equal(t, "gs://b/reports/u9/2026-05-02.json", job.ObjectURI)
	assert.Contains(t, store.objects, job.ObjectURI)
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://b/reports/u1/2026-05-02.json", "b", "reports/u1/2026-05-02.json", false},
		{"gs://b/x", "b", "x", false},
		{"s3://b/x", "", "", true},
		{"gs://b", "", "", true},
		{"gs:///x", "", "", true},
	}
	for _, tt := range tests {
		bucket, object, err := ParseGCSURI(tt.uri)
		if tt.wantErr {
			assert.Error(t, err, tt.uri)
			continue
		}
		require.NoError(t, err, tt.uri)
		assert.Equal(t, tt.bucket, bucket)
		assert.Equal(t, tt.object, object)
	}
}
