package sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

func TestJobEntityRoundTrip(t *testing.T) {
	job := model.NewBatchJob("acct-1", model.BatchJobConfig{
		Name:        "weekly assessment",
		FrameworkID: "fw-1",
		Filters: model.ConversationFilters{
			DateFrom: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
			SkillIDs: []string{"sales"},
		},
		SamplingRate: 20,
	}, "tester")
	score := 85.0
	passed := true
	job.RecordResult(model.AssessmentItem{
		ConversationID: "c-1",
		Status:         model.ItemStatusCompleted,
		Score:          &score,
		Passed:         &passed,
		ProcessedAt:    time.Now(),
		AssessmentID:   "a-1",
	})
	require.NoError(t, job.TransitionTo(model.JobStatusFetching))
	require.NoError(t, job.TransitionTo(model.JobStatusCompleted))

	entity := toJobEntity(job)
	assert.Equal(t, "assessment_batch_job", entity.TableName())
	assert.Equal(t, string(model.JobStatusCompleted), entity.Status)

	back := toJobModel(entity)
	assert.Equal(t, job.ID, back.ID)
	assert.Equal(t, job.AccountID, back.AccountID)
	assert.Equal(t, job.Status, back.Status)
	assert.Equal(t, job.Config, back.Config)
	assert.Equal(t, job.Progress, back.Progress)
	assert.Equal(t, job.RecentResults, back.RecentResults)
	assert.Equal(t, job.CreatedBy, back.CreatedBy)
	require.NotNil(t, back.CompletedAt)
	assert.True(t, back.CompletedAt.Equal(*job.CompletedAt))
}

func TestJobModelBackfillsNilResultLog(t *testing.T) {
	entity := &BatchJobEntity{
		ID:        "job-1",
		AccountID: "acct-1",
		Status:    string(model.JobStatusQueued),
	}
	job := toJobModel(entity)
	require.NotNil(t, job.RecentResults)
	assert.Empty(t, job.RecentResults)
}

func TestFrameworkModelBackfillsIdentity(t *testing.T) {
	entity := &FrameworkEntity{
		ID:   "fw-1",
		Name: "service quality",
		Document: model.FrameworkDocument{
			PassingScore: 70,
			Sections: []model.FrameworkSection{
				{ID: "s1", Weight: 100, Items: []model.FrameworkItem{{ID: "i1", Type: model.ItemTypeBinary}}},
			},
		},
	}

	framework := toFrameworkModel(entity)
	assert.Equal(t, "fw-1", framework.ID)
	assert.Equal(t, "service quality", framework.Name)
	assert.Equal(t, 70.0, framework.PassingScore)

	// A document carrying its own identity wins over the row columns.
	entity.Document.ID = "fw-doc"
	entity.Document.Name = "doc name"
	framework = toFrameworkModel(entity)
	assert.Equal(t, "fw-doc", framework.ID)
	assert.Equal(t, "doc name", framework.Name)
}
