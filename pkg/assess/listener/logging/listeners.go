// Package logging provides listeners that log job and phase lifecycle
// boundaries.
package logging

import (
	"context"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// JobListener logs job start and end.
type JobListener struct{}

// NewJobListener creates the logging job listener.
func NewJobListener() port.JobExecutionListener {
	return &JobListener{}
}

func (l *JobListener) BeforeJob(ctx context.Context, job *model.BatchJob) {
	logger.Infof("JobExecutionListener: BeforeJob - ID: %s, Account: %s, Framework: %s",
		job.ID, job.AccountID, job.Config.FrameworkID)
}

func (l *JobListener) AfterJob(ctx context.Context, job *model.BatchJob) {
	logger.Infof("JobExecutionListener: AfterJob - ID: %s, Status: %s, Processed: %d, Failed: %d",
		job.ID, job.Status, job.Progress.ProcessedConversations, job.Progress.FailedAssessments)
}

var _ port.JobExecutionListener = (*JobListener)(nil)

// PhaseListener logs phase boundaries.
type PhaseListener struct{}

// NewPhaseListener creates the logging phase listener.
func NewPhaseListener() port.PhaseExecutionListener {
	return &PhaseListener{}
}

func (l *PhaseListener) BeforePhase(ctx context.Context, job *model.BatchJob, phase string) {
	logger.Debugf("PhaseExecutionListener: BeforePhase - Job: %s, Phase: %s", job.ID, phase)
}

func (l *PhaseListener) AfterPhase(ctx context.Context, job *model.BatchJob, phase string) {
	logger.Debugf("PhaseExecutionListener: AfterPhase - Job: %s, Phase: %s, Total: %d, Fetched: %d",
		job.ID, phase, job.Progress.TotalConversations, job.Progress.FetchedConversations)
}

var _ port.PhaseExecutionListener = (*PhaseListener)(nil)
