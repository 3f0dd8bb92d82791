// Package pipeline orchestrates one batch assessment run: conversation
// selection, transcript loading, and the throttled fan-out of
// per-conversation AI assessments, driving the job status machine from
// fetching to a terminal state.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/engine/analyzer"
	"github.com/tigerroll/scorin/pkg/assess/engine/cancellation"
	"github.com/tigerroll/scorin/pkg/assess/engine/fetcher"
	"github.com/tigerroll/scorin/pkg/assess/engine/loader"
	"github.com/tigerroll/scorin/pkg/assess/engine/progress"
	"github.com/tigerroll/scorin/pkg/assess/engine/scheduler"
	"github.com/tigerroll/scorin/pkg/assess/engine/scorer"
	"github.com/tigerroll/scorin/pkg/assess/support/metrics"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

const moduleName = "pipeline"

// Phase names reported to phase listeners.
const (
	PhaseFetch   = "fetch"
	PhaseLoad    = "load"
	PhaseProcess = "process"
)

// Runner executes detached pipeline runs. One Runner serves all jobs;
// per-job state lives in the progress tracker and the cancellation token.
type Runner struct {
	repo       repository.JobRepository
	frameworks port.FrameworkStore
	settings   port.SettingsStore
	selector   *fetcher.Selector
	loader     *loader.TranscriptLoader
	analyzer   *analyzer.Analyzer
	registry   *cancellation.Registry
	recorder   metrics.Recorder

	batchCfg       config.BatchConfig
	jobListeners   []port.JobExecutionListener
	phaseListeners []port.PhaseExecutionListener
}

// RunnerParams carries the collaborators of a Runner.
type RunnerParams struct {
	Repo           repository.JobRepository
	Frameworks     port.FrameworkStore
	Settings       port.SettingsStore
	Selector       *fetcher.Selector
	Loader         *loader.TranscriptLoader
	Analyzer       *analyzer.Analyzer
	Registry       *cancellation.Registry
	Recorder       metrics.Recorder
	BatchConfig    config.BatchConfig
	JobListeners   []port.JobExecutionListener
	PhaseListeners []port.PhaseExecutionListener
}

// NewRunner creates a pipeline runner. A nil recorder falls back to the
// no-op recorder.
func NewRunner(p RunnerParams) *Runner {
	if p.Recorder == nil {
		p.Recorder = metrics.Noop{}
	}
	return &Runner{
		repo:           p.Repo,
		frameworks:     p.Frameworks,
		settings:       p.Settings,
		selector:       p.Selector,
		loader:         p.Loader,
		analyzer:       p.Analyzer,
		registry:       p.Registry,
		recorder:       p.Recorder,
		batchCfg:       p.BatchConfig,
		jobListeners:   p.JobListeners,
		phaseListeners: p.PhaseListeners,
	}
}

// Run executes the pipeline for job until it reaches a terminal state.
// It is invoked on its own goroutine by the job manager; the token is the
// job's cancellation handle and is released from the registry on exit.
// Run never returns an error: every failure ends in the job's failed
// state with the cause recorded on the document.
func (r *Runner) Run(token *cancellation.Token, job *model.BatchJob) {
	ctx := token.Context()
	startedAt := time.Now()
	tracker := progress.NewTracker(r.repo, job)

	defer r.registry.Remove(job.ID)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("Pipeline for job %s panicked: %v", job.ID, rec)
			final := tracker.Close()
			if !final.Status.IsTerminal() {
				final.MarkFailed("internal error during assessment")
				r.persistFinal(final)
			}
			r.finishJob(ctx, final, startedAt)
		}
	}()

	logger.Infof("Job %s: pipeline started (account %s, framework %s).",
		job.ID, job.AccountID, job.Config.FrameworkID)
	r.recorder.JobStarted()
	for _, l := range r.jobListeners {
		l.BeforeJob(ctx, job)
	}

	framework, flowID, fatalErr := r.prepare(ctx, job)
	if fatalErr != nil {
		r.failJob(ctx, tracker, startedAt, fatalErr)
		return
	}

	// Selection phase.
	r.beforePhase(ctx, job, PhaseFetch)
	tracker.Apply(func(j *model.BatchJob) {
		if err := j.TransitionTo(model.JobStatusFetching); err != nil {
			logger.Errorf("Job %s: %v", j.ID, err)
		}
	})
	ids, err := r.selector.Select(ctx, job, tracker)
	r.afterPhase(ctx, job, PhaseFetch)
	if err != nil {
		r.failJob(ctx, tracker, startedAt, err)
		return
	}
	if token.Cancelled() {
		r.cancelJob(ctx, tracker, startedAt)
		return
	}

	// Loading phase.
	r.beforePhase(ctx, job, PhaseLoad)
	transcripts, ordered, chunkErrs := r.loader.Load(ctx, job, ids, tracker)
	r.afterPhase(ctx, job, PhaseLoad)
	if chunkErrs != nil {
		logger.Warnf("Job %s: transcript loading finished with partial failures: %v", job.ID, chunkErrs)
	}
	if token.Cancelled() {
		r.cancelJob(ctx, tracker, startedAt)
		return
	}

	if len(ordered) == 0 {
		logger.Infof("Job %s: no transcripts to assess; completing.", job.ID)
		r.completeJob(ctx, tracker, startedAt)
		return
	}

	// Processing phase: throttled fan-out of per-conversation assessments.
	r.beforePhase(ctx, job, PhaseProcess)
	tracker.Apply(func(j *model.BatchJob) {
		if err := j.TransitionTo(model.JobStatusProcessing); err != nil {
			logger.Errorf("Job %s: %v", j.ID, err)
		}
	})

	criteriaBlock := analyzer.CriteriaBlock(framework)
	sched := scheduler.New(r.batchCfg.MaxConcurrency,
		time.Duration(r.batchCfg.DispatchIntervalMs)*time.Millisecond)

	// Cancellation gates dispatch only. A task already handed to the
	// scheduler keeps a context detached from the token so its AI call
	// finishes and its result is recorded.
	taskCtx := context.WithoutCancel(ctx)
	for _, conversationID := range ordered {
		if token.Cancelled() {
			logger.Infof("Job %s: cancellation observed before dispatching conversation %s; stopping fan-out.",
				job.ID, conversationID)
			break
		}
		transcript := transcripts[conversationID]
		if err := sched.Submit(ctx, func() {
			r.assessOne(taskCtx, tracker, job.ID, flowID, criteriaBlock, framework, transcript)
		}); err != nil {
			// Submit only fails when ctx is done; already-dispatched tasks
			// still run to completion and record their results.
			break
		}
	}
	sched.Wait()
	r.afterPhase(ctx, job, PhaseProcess)

	if token.Cancelled() {
		r.cancelJob(ctx, tracker, startedAt)
		return
	}
	r.completeJob(ctx, tracker, startedAt)
}

// prepare resolves the job's framework and AI flow. Either missing is
// fatal to the job before any conversation is fetched.
func (r *Runner) prepare(ctx context.Context, job *model.BatchJob) (*model.Framework, string, error) {
	framework, err := r.frameworks.GetByID(ctx, job.Config.FrameworkID)
	if err != nil {
		return nil, "", exception.NewBatchError(moduleName,
			"failed to load assessment framework "+job.Config.FrameworkID, err, false, false)
	}

	flowID, err := analyzer.ResolveFlowID(ctx, r.settings, job.AccountID,
		r.batchCfg.FlowSettingName, r.batchCfg.DefaultFlowID)
	if err != nil {
		return nil, "", err
	}
	return framework, flowID, nil
}

// assessOne runs the analyze-and-score task for a single conversation
// and records its outcome through the tracker.
func (r *Runner) assessOne(ctx context.Context, tracker *progress.Tracker, jobID, flowID, criteriaBlock string, framework *model.Framework, transcript port.Transcript) {
	conversationID := transcript.ConversationID
	tracker.Apply(func(j *model.BatchJob) {
		j.Progress.CurrentConversationID = conversationID
	})

	invokedAt := time.Now()
	result, err := r.analyzer.Analyze(ctx, flowID, criteriaBlock, transcript)
	r.recorder.AIInvocation(err == nil, time.Since(invokedAt))
	if err != nil {
		logger.Warnf("Job %s: assessment of conversation %s failed: %v", jobID, conversationID, err)
		item := model.AssessmentItem{
			ConversationID: conversationID,
			Status:         model.ItemStatusFailed,
			Error:          exception.ExtractErrorMessage(err),
			ProcessedAt:    time.Now(),
		}
		tracker.RecordItem(item)
		r.recorder.ConversationProcessed(string(item.Status))
		return
	}

	summary := scorer.Aggregate(framework, result.Scores)
	score := summary.Overall
	passed := summary.Passed
	item := model.AssessmentItem{
		ConversationID: conversationID,
		Status:         model.ItemStatusCompleted,
		Score:          &score,
		Passed:         &passed,
		ProcessedAt:    time.Now(),
		AssessmentID:   uuid.New().String(),
	}
	tracker.RecordItem(item)
	r.recorder.ConversationProcessed(string(item.Status))
	logger.Debugf("Job %s: conversation %s scored %.1f (passed=%t).", jobID, conversationID, score, passed)
}

// completeJob finalizes a run whose fan-out finished without
// cancellation.
func (r *Runner) completeJob(ctx context.Context, tracker *progress.Tracker, startedAt time.Time) {
	final := tracker.Close()
	if err := final.TransitionTo(model.JobStatusCompleted); err != nil {
		logger.Errorf("Job %s: %v", final.ID, err)
		final.MarkFailed("inconsistent job state at completion")
	}
	r.persistFinal(final)
	r.finishJob(ctx, final, startedAt)
}

// cancelJob finalizes a run stopped by its cancellation token. Results
// recorded by already-dispatched tasks are retained.
func (r *Runner) cancelJob(ctx context.Context, tracker *progress.Tracker, startedAt time.Time) {
	final := tracker.Close()
	if !final.Status.IsTerminal() {
		final.MarkCancelled()
		r.persistFinal(final)
	}
	logger.Infof("Job %s: cancelled after %d processed conversations.",
		final.ID, final.Progress.ProcessedConversations)
	r.finishJob(ctx, final, startedAt)
}

// failJob finalizes a run aborted by a fatal error.
func (r *Runner) failJob(ctx context.Context, tracker *progress.Tracker, startedAt time.Time, cause error) {
	logger.Errorf("Job failed: %v", cause)
	final := tracker.Close()
	if !final.Status.IsTerminal() {
		final.MarkFailed(exception.ExtractErrorMessage(cause))
		r.persistFinal(final)
	}
	r.finishJob(ctx, final, startedAt)
}

// persistFinal writes the terminal job document. The write is not bound
// to the pipeline context so a cancelled job still lands in its terminal
// state.
func (r *Runner) persistFinal(job *model.BatchJob) {
	if err := r.repo.UpdateJob(context.Background(), job); err != nil {
		logger.Errorf("Failed to persist terminal state of job %s: %v", job.ID, err)
	}
}

// finishJob notifies listeners and records run metrics.
func (r *Runner) finishJob(ctx context.Context, job *model.BatchJob, startedAt time.Time) {
	for _, l := range r.jobListeners {
		l.AfterJob(ctx, job)
	}
	r.recorder.JobFinished(string(job.Status), time.Since(startedAt))
	logger.Infof("Job %s: pipeline finished with status %s (%d/%d conversations processed).",
		job.ID, job.Status, job.Progress.ProcessedConversations, job.Progress.TotalConversations)
}

func (r *Runner) beforePhase(ctx context.Context, job *model.BatchJob, phase string) {
	for _, l := range r.phaseListeners {
		l.BeforePhase(ctx, job, phase)
	}
}

func (r *Runner) afterPhase(ctx context.Context, job *model.BatchJob, phase string) {
	for _, l := range r.phaseListeners {
		l.AfterPhase(ctx, job, phase)
	}
}
