package progress_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/progress"
)

// recordingRepo counts persisted writes and remembers the last document.
type recordingRepo struct {
	mu      sync.Mutex
	updates int
	last    *model.BatchJob
	err     error
}

func (r *recordingRepo) SaveJob(ctx context.Context, job *model.BatchJob) error { return nil }

func (r *recordingRepo) UpdateJob(ctx context.Context, job *model.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.last = job.Clone()
	return r.err
}

func (r *recordingRepo) FindJobByID(ctx context.Context, accountID, jobID string) (*model.BatchJob, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingRepo) FindJobsByAccount(ctx context.Context, accountID string, limit int) ([]*model.BatchJob, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingRepo) Close() error { return nil }

func newJob() *model.BatchJob {
	return model.NewBatchJob("acct-1", model.BatchJobConfig{
		FrameworkID: "fw-1",
		Filters: model.ConversationFilters{
			DateFrom: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
		},
	}, "tester")
}

func TestTrackerAppliesMutationsInOrder(t *testing.T) {
	repo := &recordingRepo{}
	tracker := progress.NewTracker(repo, newJob())

	for i := 1; i <= 5; i++ {
		n := i
		tracker.Apply(func(job *model.BatchJob) {
			job.Progress.TotalConversations = n
		})
	}
	final := tracker.Close()

	assert.Equal(t, 5, final.Progress.TotalConversations)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 5, repo.updates)
	assert.Equal(t, 5, repo.last.Progress.TotalConversations)
}

func TestTrackerRecordItemUpdatesCounters(t *testing.T) {
	repo := &recordingRepo{}
	tracker := progress.NewTracker(repo, newJob())

	tracker.Apply(func(job *model.BatchJob) {
		job.Progress.CurrentConversationID = "c-1"
	})
	score := 90.0
	passed := true
	tracker.RecordItem(model.AssessmentItem{
		ConversationID: "c-1",
		Status:         model.ItemStatusCompleted,
		Score:          &score,
		Passed:         &passed,
		ProcessedAt:    time.Now(),
	})
	tracker.RecordItem(model.AssessmentItem{
		ConversationID: "c-2",
		Status:         model.ItemStatusFailed,
		Error:          "AI invocation failed",
		ProcessedAt:    time.Now(),
	})
	final := tracker.Close()

	assert.Equal(t, 2, final.Progress.ProcessedConversations)
	assert.Equal(t, 1, final.Progress.SuccessfulAssessments)
	assert.Equal(t, 1, final.Progress.FailedAssessments)
	// The in-flight marker is cleared when a result lands.
	assert.Empty(t, final.Progress.CurrentConversationID)
	require.Len(t, final.RecentResults, 2)
	assert.Equal(t, "c-2", final.RecentResults[0].ConversationID)
}

func TestTrackerSurvivesPersistenceFailures(t *testing.T) {
	repo := &recordingRepo{err: errors.New("store unavailable")}
	tracker := progress.NewTracker(repo, newJob())

	tracker.Apply(func(job *model.BatchJob) {
		job.Progress.TotalConversations = 7
	})
	final := tracker.Close()

	// The in-memory document still carries the state the store missed.
	assert.Equal(t, 7, final.Progress.TotalConversations)
}

func TestTrackerCloseIsIdempotent(t *testing.T) {
	tracker := progress.NewTracker(&recordingRepo{}, newJob())
	first := tracker.Close()
	second := tracker.Close()
	assert.Same(t, first, second)
}

func TestTrackerConcurrentRecorders(t *testing.T) {
	repo := &recordingRepo{}
	tracker := progress.NewTracker(repo, newJob())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordItem(model.AssessmentItem{
				ConversationID: "c",
				Status:         model.ItemStatusFailed,
				ProcessedAt:    time.Now(),
			})
		}()
	}
	wg.Wait()
	final := tracker.Close()

	assert.Equal(t, 25, final.Progress.ProcessedConversations)
	assert.Equal(t, 25, final.Progress.FailedAssessments)
}
