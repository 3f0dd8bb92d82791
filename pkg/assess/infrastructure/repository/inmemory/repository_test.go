package inmemory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/infrastructure/repository/inmemory"
)

func newJob(accountID string) *model.BatchJob {
	return model.NewBatchJob(accountID, model.BatchJobConfig{
		FrameworkID: "fw-1",
		Filters: model.ConversationFilters{
			DateFrom: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
		},
	}, "tester")
}

func TestJobRepositoryRoundTrip(t *testing.T) {
	repo := inmemory.NewJobRepository()
	job := newJob("acct-1")
	require.NoError(t, repo.SaveJob(context.Background(), job))

	found, err := repo.FindJobByID(context.Background(), "acct-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
	assert.Equal(t, model.JobStatusQueued, found.Status)

	require.NoError(t, job.TransitionTo(model.JobStatusFetching))
	require.NoError(t, repo.UpdateJob(context.Background(), job))
	found, err = repo.FindJobByID(context.Background(), "acct-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFetching, found.Status)
}

func TestJobRepositoryReadsAreSnapshots(t *testing.T) {
	repo := inmemory.NewJobRepository()
	job := newJob("acct-1")
	require.NoError(t, repo.SaveJob(context.Background(), job))

	// Mutating the saved aggregate or a returned snapshot never leaks into
	// the store.
	job.Status = model.JobStatusFailed
	found, err := repo.FindJobByID(context.Background(), "acct-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, found.Status)

	found.Status = model.JobStatusCancelled
	again, err := repo.FindJobByID(context.Background(), "acct-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, again.Status)
}

func TestJobRepositoryScopesByAccount(t *testing.T) {
	repo := inmemory.NewJobRepository()
	job := newJob("acct-1")
	require.NoError(t, repo.SaveJob(context.Background(), job))

	_, err := repo.FindJobByID(context.Background(), "acct-2", job.ID)
	assert.ErrorIs(t, err, repository.ErrJobNotFound)

	_, err = repo.FindJobByID(context.Background(), "acct-1", "job-unknown")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}

func TestFindJobsByAccountOrdersAndLimits(t *testing.T) {
	repo := inmemory.NewJobRepository()
	base := time.Now()
	for i := 0; i < 5; i++ {
		job := newJob("acct-1")
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveJob(context.Background(), job))
	}
	other := newJob("acct-2")
	require.NoError(t, repo.SaveJob(context.Background(), other))

	jobs, err := repo.FindJobsByAccount(context.Background(), "acct-1", 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	for i := 1; i < len(jobs); i++ {
		assert.True(t, jobs[i-1].CreatedAt.After(jobs[i].CreatedAt))
	}

	all, err := repo.FindJobsByAccount(context.Background(), "acct-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestFrameworkStore(t *testing.T) {
	store := inmemory.NewFrameworkStore()
	store.Put(&model.Framework{ID: "fw-1", Name: "service quality"})

	framework, err := store.GetByID(context.Background(), "fw-1")
	require.NoError(t, err)
	assert.Equal(t, "service quality", framework.Name)

	_, err = store.GetByID(context.Background(), "fw-missing")
	assert.ErrorIs(t, err, port.ErrFrameworkNotFound)
}

func TestSettingsStore(t *testing.T) {
	store := inmemory.NewSettingsStore()
	store.Put("acct-1", "ai_assessment_flow_id", "flow-9")

	value, err := store.GetSetting(context.Background(), "acct-1", "ai_assessment_flow_id")
	require.NoError(t, err)
	assert.Equal(t, "flow-9", value)

	_, err = store.GetSetting(context.Background(), "acct-2", "ai_assessment_flow_id")
	assert.ErrorIs(t, err, port.ErrSettingNotFound)
}
