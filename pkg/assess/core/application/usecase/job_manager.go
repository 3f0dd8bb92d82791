package usecase

import (
	"context"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/engine/cancellation"
	"github.com/tigerroll/scorin/pkg/assess/engine/pipeline"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// List defaults applied by the job manager.
const (
	DefaultListLimit = 20
	// ListResultsCap bounds the result log returned per job in listings;
	// the full log stays available through GetStatus.
	ListResultsCap = 10
)

// DefaultJobManager is the JobManager backed by the job repository, the
// cancellation registry and the pipeline runner.
type DefaultJobManager struct {
	repo     repository.JobRepository
	registry *cancellation.Registry
	runner   *pipeline.Runner
}

// NewDefaultJobManager creates the default job manager.
func NewDefaultJobManager(repo repository.JobRepository, registry *cancellation.Registry, runner *pipeline.Runner) *DefaultJobManager {
	return &DefaultJobManager{repo: repo, registry: registry, runner: runner}
}

// Create validates cfg, persists the queued job, registers its
// cancellation token and detaches the pipeline run. Submission returns as
// soon as the job document is durable; progress is observed by polling.
func (m *DefaultJobManager) Create(ctx context.Context, accountID string, cfg model.BatchJobConfig, createdBy string) (*model.BatchJob, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	job := model.NewBatchJob(accountID, cfg, createdBy)
	if err := m.repo.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	// The token derives from the background context, not the request
	// context: the run outlives the submission request.
	token := m.registry.Register(context.Background(), job.ID)
	snapshot := job.Clone()
	go m.runner.Run(token, job)

	logger.Infof("Job %s submitted for account %s (framework %s).", job.ID, accountID, cfg.FrameworkID)
	return snapshot, nil
}

// GetStatus returns a snapshot of the job document.
func (m *DefaultJobManager) GetStatus(ctx context.Context, accountID, jobID string) (*model.BatchJob, error) {
	return m.repo.FindJobByID(ctx, accountID, jobID)
}

// List returns the account's jobs newest-first with truncated result
// logs.
func (m *DefaultJobManager) List(ctx context.Context, accountID string, limit int) ([]*model.BatchJob, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	jobs, err := m.repo.FindJobsByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if len(job.RecentResults) > ListResultsCap {
			job.RecentResults = job.RecentResults[:ListResultsCap]
		}
	}
	return jobs, nil
}

// Cancel fires the job's cancellation token and writes the cancelled
// status immediately, so a poll right after a successful cancel already
// observes the terminal state. The pipeline stops dispatching at its next
// checkpoint; already-dispatched assessments run to completion and their
// results are retained. Cancelling a queued or terminal job changes
// nothing.
func (m *DefaultJobManager) Cancel(ctx context.Context, accountID, jobID string) (*model.BatchJob, error) {
	job, err := m.repo.FindJobByID(ctx, accountID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() || job.Status == model.JobStatusQueued {
		logger.Debugf("Cancel of job %s is a no-op in status %s.", jobID, job.Status)
		return job, nil
	}

	if m.registry.Cancel(jobID) {
		logger.Infof("Cancellation requested for job %s.", jobID)
	} else {
		// No live pipeline holds this job (e.g. the process restarted while
		// it ran); the status write below is the only finalization it gets.
		logger.Warnf("Job %s has no running pipeline; marking cancelled directly.", jobID)
	}

	job.MarkCancelled()
	if err := m.repo.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

// validateConfig rejects configurations the pipeline cannot run.
func validateConfig(cfg model.BatchJobConfig) error {
	if cfg.FrameworkID == "" {
		return &ValidationError{Field: "frameworkId", Message: "is required"}
	}
	if cfg.Filters.DateFrom.IsZero() {
		return &ValidationError{Field: "filters.dateFrom", Message: "is required"}
	}
	if cfg.Filters.DateTo.IsZero() {
		return &ValidationError{Field: "filters.dateTo", Message: "is required"}
	}
	if cfg.Filters.DateTo.Before(cfg.Filters.DateFrom) {
		return &ValidationError{Field: "filters.dateTo", Message: "must not precede filters.dateFrom"}
	}
	if cfg.SamplingRate < 0 || cfg.SamplingRate > 100 {
		return &ValidationError{Field: "samplingRate", Message: "must be between 1 and 100"}
	}
	if cfg.MaxConversations < 0 {
		return &ValidationError{Field: "maxConversations", Message: "must be positive"}
	}
	if !cfg.PriorityOrder.IsValid() {
		return &ValidationError{Field: "priorityOrder", Message: "unknown priority order"}
	}
	return nil
}

var _ JobManager = (*DefaultJobManager)(nil)
