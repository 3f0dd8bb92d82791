// Package metrics declares the instrumentation contract of the
// assessment engine. The Prometheus-backed implementation lives under
// infrastructure; Noop is used when metrics are disabled and in tests.
package metrics

import "time"

// Recorder receives engine-level measurements.
type Recorder interface {
	// JobStarted is called when a pipeline run begins.
	JobStarted()
	// JobFinished is called when a pipeline run ends, with the terminal
	// status and the total run duration.
	JobFinished(status string, duration time.Duration)
	// ConversationProcessed is called once per processed conversation with
	// the item outcome ("completed", "failed" or "skipped").
	ConversationProcessed(status string)
	// AIInvocation is called once per AI call attempt with its outcome and
	// latency.
	AIInvocation(success bool, duration time.Duration)
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) JobStarted()                                {}
func (Noop) JobFinished(status string, d time.Duration) {}
func (Noop) ConversationProcessed(status string)        {}
func (Noop) AIInvocation(success bool, d time.Duration) {}

var _ Recorder = Noop{}
