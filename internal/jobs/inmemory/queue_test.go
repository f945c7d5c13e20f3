package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/jobs"
)

func newTestQueue(store jobs.JobStore) *Queue {
	q := NewQueue(10, 2, store, zerolog.Nop())
	q.backoff = time.Millisecond
	return q
}

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.ExportDashboardJob {
	t.Helper()
	var got *jobs.ExportDashboardJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx := context.Background()

	require.NoError(t, q.Start(ctx, func(_ context.Context, job jobs.Job) error {
		j := job.(*jobs.ExportDashboardJob)
		j.ObjectURI = "gs://bucket/reports/" + j.UserID + "/" + j.ReportDate + ".json"
		return nil
	}))
	defer q.Stop(ctx)

	job := &jobs.ExportDashboardJob{UserID: "u1", ReportDate: "2026-05-01"}
	require.NoError(t, q.PublishExportDashboard(ctx, job))
	require.NotEmpty(t, job.JobID)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "gs://bucket/reports/u1/2026-05-01.json", got.ObjectURI)
	assert.Equal(t, jobs.DefaultMaxRetries, got.MaxRetries)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx := context.Background()

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, jobs.Job) error {
		attempts.Add(1)
		return errors.New("bucket unavailable")
	}))
	defer q.Stop(ctx)

	job := &jobs.ExportDashboardJob{UserID: "u1", MaxRetries: 2}
	require.NoError(t, q.PublishExportDashboard(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "bucket unavailable", got.Error)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueue_RetrySucceeds(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx := context.Background()

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))
	defer q.Stop(ctx)

	job := &jobs.ExportDashboardJob{UserID: "u1"}
	require.NoError(t, q.PublishExportDashboard(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_ClosedRejectsWork(t *testing.T) {
	q := newTestQueue(NewStore())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.Error(t, q.PublishExportDashboard(context.Background(), &jobs.ExportDashboardJob{UserID: "u1"}))
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))
}
