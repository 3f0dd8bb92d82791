package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/application/usecase"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/engine/analyzer"
	"github.com/tigerroll/scorin/pkg/assess/engine/cancellation"
	"github.com/tigerroll/scorin/pkg/assess/engine/fetcher"
	"github.com/tigerroll/scorin/pkg/assess/engine/loader"
	"github.com/tigerroll/scorin/pkg/assess/engine/pipeline"
	"github.com/tigerroll/scorin/pkg/assess/engine/retry"
	"github.com/tigerroll/scorin/pkg/assess/infrastructure/repository/inmemory"
)

const testAccount = "acct-1"

// stubSource serves a fixed conversation set in a single page.
type stubSource struct {
	ids []string
}

func (s *stubSource) Search(ctx context.Context, accountID string, query port.SearchQuery) (*port.ConversationPage, error) {
	page := &port.ConversationPage{TotalCount: len(s.ids)}
	if query.Offset >= len(s.ids) {
		return page, nil
	}
	for _, id := range s.ids[query.Offset:] {
		page.Records = append(page.Records, port.ConversationRecord{ID: id})
	}
	return page, nil
}

func (s *stubSource) GetByIDs(ctx context.Context, accountID string, ids []string) ([]port.Transcript, error) {
	var out []port.Transcript
	for _, id := range ids {
		out = append(out, port.Transcript{
			ConversationID: id,
			Messages:       []port.TranscriptMessage{{Sender: "agent", Type: "text", Text: "hello there"}},
		})
	}
	return out, nil
}

// gateInvoker returns a perfect score, optionally blocking until released
// or the invocation context is cancelled.
type gateInvoker struct {
	gate  chan struct{}
	calls int64
}

func (g *gateInvoker) Invoke(ctx context.Context, flowID string, input port.AIInput) (*port.AIResponse, error) {
	atomic.AddInt64(&g.calls, 1)
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &port.AIResponse{
		Payload: map[string]interface{}{
			"text": `{"scores": [{"sectionId": "s1", "itemId": "i1", "score": 1}], "overallAssessment": "fine"}`,
		},
	}, nil
}

type fixture struct {
	repo     *inmemory.JobRepository
	registry *cancellation.Registry
	manager  *usecase.DefaultJobManager
	invoker  *gateInvoker
}

func newFixture(t *testing.T, source *stubSource, invoker *gateInvoker, maxConcurrency int) *fixture {
	t.Helper()

	repo := inmemory.NewJobRepository()
	frameworks := inmemory.NewFrameworkStore()
	frameworks.Put(&model.Framework{
		ID:           "fw-1",
		PassingScore: 50,
		Sections: []model.FrameworkSection{
			{ID: "s1", Weight: 100, Items: []model.FrameworkItem{{ID: "i1", Type: model.ItemTypeBinary}}},
		},
	})
	settings := inmemory.NewSettingsStore()
	registry := cancellation.NewRegistry()

	runner := pipeline.NewRunner(pipeline.RunnerParams{
		Repo:       repo,
		Frameworks: frameworks,
		Settings:   settings,
		Selector:   fetcher.NewSelector(source, 100),
		Loader:     loader.NewTranscriptLoader(source, 100),
		Analyzer:   analyzer.NewAnalyzer(invoker, retry.NewFixedPolicy(1, 0, nil)),
		Registry:   registry,
		BatchConfig: config.BatchConfig{
			MaxConcurrency:  maxConcurrency,
			FlowSettingName: "ai_assessment_flow_id",
			DefaultFlowID:   "flow-default",
		},
	})

	return &fixture{
		repo:     repo,
		registry: registry,
		manager:  usecase.NewDefaultJobManager(repo, registry, runner),
		invoker:  invoker,
	}
}

func validJobConfig() model.BatchJobConfig {
	return model.BatchJobConfig{
		Name:        "nightly assessment",
		FrameworkID: "fw-1",
		Filters: model.ConversationFilters{
			DateFrom: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
		},
		SamplingRate: 100,
	}
}

func awaitTerminal(t *testing.T, f *fixture, jobID string) *model.BatchJob {
	t.Helper()
	var job *model.BatchJob
	require.Eventually(t, func() bool {
		var err error
		job, err = f.manager.GetStatus(context.Background(), testAccount, jobID)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)

	cases := []struct {
		name   string
		mutate func(*model.BatchJobConfig)
		field  string
	}{
		{"missing framework", func(c *model.BatchJobConfig) { c.FrameworkID = "" }, "frameworkId"},
		{"missing date from", func(c *model.BatchJobConfig) { c.Filters.DateFrom = time.Time{} }, "filters.dateFrom"},
		{"missing date to", func(c *model.BatchJobConfig) { c.Filters.DateTo = time.Time{} }, "filters.dateTo"},
		{"inverted date range", func(c *model.BatchJobConfig) {
			c.Filters.DateTo = c.Filters.DateFrom.Add(-time.Hour)
		}, "filters.dateTo"},
		{"sampling rate too high", func(c *model.BatchJobConfig) { c.SamplingRate = 150 }, "samplingRate"},
		{"negative sampling rate", func(c *model.BatchJobConfig) { c.SamplingRate = -1 }, "samplingRate"},
		{"negative cap", func(c *model.BatchJobConfig) { c.MaxConversations = -5 }, "maxConversations"},
		{"unknown priority order", func(c *model.BatchJobConfig) { c.PriorityOrder = "alphabetical" }, "priorityOrder"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validJobConfig()
			c.mutate(&cfg)

			_, err := f.manager.Create(context.Background(), testAccount, cfg, "tester")
			require.Error(t, err)
			assert.ErrorIs(t, err, usecase.ErrValidation)
			var verr *usecase.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, c.field, verr.Field)
		})
	}
}

func TestCreateRunsJobToCompletion(t *testing.T) {
	source := &stubSource{ids: []string{"c-1", "c-2", "c-3"}}
	f := newFixture(t, source, &gateInvoker{}, 2)

	snapshot, err := f.manager.Create(context.Background(), testAccount, validJobConfig(), "tester")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, snapshot.Status)
	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, "tester", snapshot.CreatedBy)

	final := awaitTerminal(t, f, snapshot.ID)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)
	assert.Equal(t, 3, final.Progress.TotalConversations)
	assert.Equal(t, 3, final.Progress.ProcessedConversations)
	assert.Equal(t, 3, final.Progress.SuccessfulAssessments)
	assert.Zero(t, final.Progress.FailedAssessments)
	require.NotNil(t, final.Progress.AverageScore)
	assert.InDelta(t, 100.0, *final.Progress.AverageScore, 1e-9)

	require.Len(t, final.RecentResults, 3)
	for _, item := range final.RecentResults {
		assert.Equal(t, model.ItemStatusCompleted, item.Status)
		assert.NotEmpty(t, item.AssessmentID)
		require.NotNil(t, item.Passed)
		assert.True(t, *item.Passed)
	}

	// The registry entry is released when the pipeline exits.
	require.Eventually(t, func() bool { return f.registry.Len() == 0 },
		time.Second, 10*time.Millisecond)
	// The snapshot handed back at submission never mutates.
	assert.Equal(t, model.JobStatusQueued, snapshot.Status)
}

func TestCreateCompletesEmptySelection(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)

	snapshot, err := f.manager.Create(context.Background(), testAccount, validJobConfig(), "tester")
	require.NoError(t, err)

	final := awaitTerminal(t, f, snapshot.ID)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Zero(t, final.Progress.ProcessedConversations)
	assert.Zero(t, atomic.LoadInt64(&f.invoker.calls))
}

func TestCreateFailsOnMissingFramework(t *testing.T) {
	f := newFixture(t, &stubSource{ids: []string{"c-1"}}, &gateInvoker{}, 1)

	cfg := validJobConfig()
	cfg.FrameworkID = "fw-missing"
	snapshot, err := f.manager.Create(context.Background(), testAccount, cfg, "tester")
	require.NoError(t, err)

	final := awaitTerminal(t, f, snapshot.ID)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "fw-missing")
}

func TestGetStatusScopesByAccount(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)
	job := model.NewBatchJob(testAccount, validJobConfig(), "tester")
	require.NoError(t, f.repo.SaveJob(context.Background(), job))

	found, err := f.manager.GetStatus(context.Background(), testAccount, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	_, err = f.manager.GetStatus(context.Background(), "acct-other", job.ID)
	assert.ErrorIs(t, err, repository.ErrJobNotFound)

	_, err = f.manager.GetStatus(context.Background(), testAccount, "job-unknown")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}

func TestListAppliesDefaultsAndTruncatesResults(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)

	for i := 0; i < usecase.DefaultListLimit+5; i++ {
		job := model.NewBatchJob(testAccount, validJobConfig(), "tester")
		job.CreatedAt = job.CreatedAt.Add(time.Duration(i) * time.Second)
		for n := 0; n < usecase.ListResultsCap+7; n++ {
			job.RecordResult(model.AssessmentItem{
				ConversationID: fmt.Sprintf("c-%d", n),
				Status:         model.ItemStatusFailed,
				ProcessedAt:    time.Now(),
			})
		}
		require.NoError(t, f.repo.SaveJob(context.Background(), job))
	}

	jobs, err := f.manager.List(context.Background(), testAccount, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, usecase.DefaultListLimit)
	for _, job := range jobs {
		assert.Len(t, job.RecentResults, usecase.ListResultsCap)
	}

	two, err := f.manager.List(context.Background(), testAccount, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	// Newest first.
	assert.True(t, two[0].CreatedAt.After(two[1].CreatedAt))
}

func TestCancelRunningJobRetainsDispatchedResults(t *testing.T) {
	ids := []string{"c-1", "c-2", "c-3", "c-4", "c-5"}
	invoker := &gateInvoker{gate: make(chan struct{})}
	f := newFixture(t, &stubSource{ids: ids}, invoker, 1)

	snapshot, err := f.manager.Create(context.Background(), testAccount, validJobConfig(), "tester")
	require.NoError(t, err)

	// Wait until the fan-out is underway, then cancel and unblock.
	require.Eventually(t, func() bool {
		job, err := f.manager.GetStatus(context.Background(), testAccount, snapshot.ID)
		return err == nil && job.Status == model.JobStatusProcessing &&
			atomic.LoadInt64(&invoker.calls) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancelled, err := f.manager.Cancel(context.Background(), testAccount, snapshot.ID)
	require.NoError(t, err)
	// The terminal status is written by Cancel itself; a poll right after
	// does not wait for the pipeline's next checkpoint.
	assert.Equal(t, model.JobStatusCancelled, cancelled.Status)
	polled, err := f.manager.GetStatus(context.Background(), testAccount, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, polled.Status)

	// Releasing the gate lets the in-flight invocation finish; the
	// pipeline then finalizes and leaves the registry.
	close(invoker.gate)
	require.Eventually(t, func() bool { return f.registry.Len() == 0 },
		5*time.Second, 10*time.Millisecond)

	final, err := f.manager.GetStatus(context.Background(), testAccount, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, final.Status)
	assert.Less(t, final.Progress.ProcessedConversations, len(ids))

	// The assessment dispatched before the cancel ran to completion
	// instead of being aborted mid-flight.
	require.NotEmpty(t, final.RecentResults)
	for _, item := range final.RecentResults {
		assert.Equal(t, model.ItemStatusCompleted, item.Status)
		assert.Empty(t, item.Error)
	}
	assert.GreaterOrEqual(t, final.Progress.SuccessfulAssessments, 1)
}

func TestCancelIsNoOpForQueuedAndTerminalJobs(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)

	queued := model.NewBatchJob(testAccount, validJobConfig(), "tester")
	require.NoError(t, f.repo.SaveJob(context.Background(), queued))
	got, err := f.manager.Cancel(context.Background(), testAccount, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)

	done := model.NewBatchJob(testAccount, validJobConfig(), "tester")
	require.NoError(t, done.TransitionTo(model.JobStatusFetching))
	require.NoError(t, done.TransitionTo(model.JobStatusCompleted))
	require.NoError(t, f.repo.SaveJob(context.Background(), done))
	got, err = f.manager.Cancel(context.Background(), testAccount, done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
}

func TestCancelOrphanedJobWithoutPipeline(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)

	// A job left in processing by a previous process has no registered
	// token; Cancel finalizes it directly.
	orphan := model.NewBatchJob(testAccount, validJobConfig(), "tester")
	require.NoError(t, orphan.TransitionTo(model.JobStatusFetching))
	require.NoError(t, orphan.TransitionTo(model.JobStatusProcessing))
	require.NoError(t, f.repo.SaveJob(context.Background(), orphan))

	got, err := f.manager.Cancel(context.Background(), testAccount, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)

	stored, err := f.manager.GetStatus(context.Background(), testAccount, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, stored.Status)
}

func TestCancelUnknownJob(t *testing.T) {
	f := newFixture(t, &stubSource{}, &gateInvoker{}, 1)
	_, err := f.manager.Cancel(context.Background(), testAccount, "job-unknown")
	assert.True(t, errors.Is(err, repository.ErrJobNotFound))
}
