// Package progress serializes all mutations of a running job's document
// through a single writer. Fan-out tasks complete in non-deterministic
// order; routing every update through the tracker keeps the counters
// consistent without a distributed lock on the store.
package progress

import (
	"context"
	"sync"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// Tracker owns the job aggregate for the duration of a pipeline run. All
// phases mutate the job exclusively through Apply/RecordItem; the tracker
// applies mutations in arrival order and persists the document after each
// one.
type Tracker struct {
	repo repository.JobRepository
	job  *model.BatchJob

	ops  chan func(*model.BatchJob)
	done chan struct{}
	once sync.Once
}

// NewTracker creates a tracker owning job and starts its writer goroutine.
func NewTracker(repo repository.JobRepository, job *model.BatchJob) *Tracker {
	t := &Tracker{
		repo: repo,
		job:  job,
		ops:  make(chan func(*model.BatchJob), 64),
		done: make(chan struct{}),
	}
	go t.run()
	return t
}

// run applies queued mutations and persists the job after each.
// Persistence failures are logged and do not abort the job: the next
// successful write carries the accumulated state.
func (t *Tracker) run() {
	defer close(t.done)
	for op := range t.ops {
		op(t.job)
		// Recording dispatched work must survive job cancellation, so the
		// write is not bound to the pipeline context.
		if err := t.repo.UpdateJob(context.Background(), t.job); err != nil {
			logger.Errorf("Failed to persist progress for job %s: %v", t.job.ID, err)
		}
	}
}

// Apply queues a mutation of the job document.
func (t *Tracker) Apply(mutate func(job *model.BatchJob)) {
	t.ops <- mutate
}

// RecordItem queues one per-conversation assessment result. The result is
// prepended to the bounded result log and the progress counters and the
// running average are updated.
func (t *Tracker) RecordItem(item model.AssessmentItem) {
	t.Apply(func(job *model.BatchJob) {
		job.RecordResult(item)
		job.Progress.CurrentConversationID = ""
	})
}

// Close drains pending mutations, stops the writer, and returns the owned
// job in its final state. Calling Apply after Close panics.
func (t *Tracker) Close() *model.BatchJob {
	t.once.Do(func() {
		close(t.ops)
	})
	<-t.done
	return t.job
}
