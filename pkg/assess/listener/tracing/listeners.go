// Package tracing provides listeners that wrap job and phase execution
// in OpenTelemetry spans. Only the otel API is used; span export depends
// on whatever SDK the embedding process installs globally.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

const tracerName = "github.com/tigerroll/scorin/pkg/assess"

// JobListener manages one span per pipeline run.
type JobListener struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewJobListener creates the tracing job listener.
func NewJobListener() port.JobExecutionListener {
	return &JobListener{
		tracer: otel.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}
}

func (l *JobListener) BeforeJob(ctx context.Context, job *model.BatchJob) {
	_, span := l.tracer.Start(ctx, "assessment.job",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.account_id", job.AccountID),
			attribute.String("job.framework_id", job.Config.FrameworkID),
		))
	l.mu.Lock()
	l.spans[job.ID] = span
	l.mu.Unlock()
}

func (l *JobListener) AfterJob(ctx context.Context, job *model.BatchJob) {
	l.mu.Lock()
	span, ok := l.spans[job.ID]
	if ok {
		delete(l.spans, job.ID)
	}
	l.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.String("job.status", string(job.Status)),
		attribute.Int("job.processed", job.Progress.ProcessedConversations),
		attribute.Int("job.failed", job.Progress.FailedAssessments),
	)
	if job.Status == model.JobStatusFailed {
		span.SetStatus(codes.Error, job.ErrorMessage)
	}
	span.End()
}

var _ port.JobExecutionListener = (*JobListener)(nil)

// PhaseListener manages one span per pipeline phase.
type PhaseListener struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewPhaseListener creates the tracing phase listener.
func NewPhaseListener() port.PhaseExecutionListener {
	return &PhaseListener{
		tracer: otel.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}
}

func (l *PhaseListener) BeforePhase(ctx context.Context, job *model.BatchJob, phase string) {
	_, span := l.tracer.Start(ctx, "assessment.phase."+phase,
		trace.WithAttributes(attribute.String("job.id", job.ID)))
	l.mu.Lock()
	l.spans[job.ID+"/"+phase] = span
	l.mu.Unlock()
}

func (l *PhaseListener) AfterPhase(ctx context.Context, job *model.BatchJob, phase string) {
	l.mu.Lock()
	span, ok := l.spans[job.ID+"/"+phase]
	if ok {
		delete(l.spans, job.ID+"/"+phase)
	}
	l.mu.Unlock()
	if ok {
		span.End()
	}
}

var _ port.PhaseExecutionListener = (*PhaseListener)(nil)
