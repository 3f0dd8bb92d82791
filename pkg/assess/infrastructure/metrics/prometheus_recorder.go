// Package metrics provides the Prometheus implementation of the engine's
// metrics recorder and the optional HTTP exposition endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	coremetrics "github.com/tigerroll/scorin/pkg/assess/support/metrics"
)

// PrometheusRecorder is the Prometheus implementation of
// metrics.Recorder.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	jobsStarted        prometheus.Counter
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	conversationCounter *prometheus.CounterVec

	aiInvocationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with its own registry,
// including the standard Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_job_started_total",
			Help: "Total number of assessment pipeline runs started.",
		}),
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_job_duration_seconds",
			Help:    "Duration of assessment pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_job_finished_total",
			Help: "Total number of finished assessment jobs by terminal status.",
		}, []string{"status"}),
		conversationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_conversation_total",
			Help: "Total number of processed conversations by item outcome.",
		}, []string{"status"}),
		aiInvocationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_ai_invocation_seconds",
			Help:    "Latency of AI flow invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	registry.MustRegister(r.jobsStarted)
	registry.MustRegister(r.jobDurationSeconds)
	registry.MustRegister(r.jobStatusCounter)
	registry.MustRegister(r.conversationCounter)
	registry.MustRegister(r.aiInvocationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry for exposition.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// JobStarted counts a started pipeline run.
func (r *PrometheusRecorder) JobStarted() {
	r.jobsStarted.Inc()
}

// JobFinished records a finished run's status and duration.
func (r *PrometheusRecorder) JobFinished(status string, duration time.Duration) {
	r.jobStatusCounter.WithLabelValues(status).Inc()
	r.jobDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
}

// ConversationProcessed counts one processed conversation.
func (r *PrometheusRecorder) ConversationProcessed(status string) {
	r.conversationCounter.WithLabelValues(status).Inc()
}

// AIInvocation records one AI call attempt.
func (r *PrometheusRecorder) AIInvocation(success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.aiInvocationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

var _ coremetrics.Recorder = (*PrometheusRecorder)(nil)
