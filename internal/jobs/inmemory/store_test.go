package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/jobs"
)

func TestStore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []jobs.ExportDashboardJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusFailed},
		{JobID: "c", UserID: "u2", Status: jobs.JobStatusCompleted},
		{JobID: "d", UserID: "u1", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveJob(ctx, &j))
	}
	assert.Error(t, s.SaveJob(ctx, &jobs.ExportDashboardJob{}))

	ids := func(list []*jobs.ExportDashboardJob) []string {
		out := []string{}
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a"}, ids(all))

	completed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(completed))

	page, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(page))

	empty, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.UpdateJobStatus(ctx, "d", jobs.JobStatusFailed, "boom"))
	got, err := s.GetJob(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	got.Status = jobs.JobStatusCompleted
	again, _ := s.GetJob(ctx, "d")
	assert.Equal(t, jobs.JobStatusFailed, again.Status)

	_, err = s.GetJob(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "zzz", jobs.JobStatusFailed, ""), domain.ErrNotFound)
}
