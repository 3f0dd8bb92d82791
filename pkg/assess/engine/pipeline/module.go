package pipeline

import (
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
	"github.com/tigerroll/scorin/pkg/assess/engine/analyzer"
	"github.com/tigerroll/scorin/pkg/assess/engine/cancellation"
	"github.com/tigerroll/scorin/pkg/assess/engine/fetcher"
	"github.com/tigerroll/scorin/pkg/assess/engine/loader"
	"github.com/tigerroll/scorin/pkg/assess/engine/retry"
	"github.com/tigerroll/scorin/pkg/assess/support/metrics"
)

// runnerDeps collects the Runner collaborators from the fx graph.
// Listener implementations register themselves into the named groups; the
// metrics recorder is optional and defaults to the no-op recorder.
type runnerDeps struct {
	fx.In

	Config     *config.Config
	Repo       repository.JobRepository
	Frameworks port.FrameworkStore
	Settings   port.SettingsStore
	Source     port.ConversationSource
	Invoker    port.AIInvoker
	Registry   *cancellation.Registry

	Recorder       metrics.Recorder              `optional:"true"`
	JobListeners   []port.JobExecutionListener   `group:"job_listeners"`
	PhaseListeners []port.PhaseExecutionListener `group:"phase_listeners"`
}

// NewRunnerProvider assembles the pipeline Runner and its phase
// components from configuration.
func NewRunnerProvider(deps runnerDeps) *Runner {
	batchCfg := deps.Config.Scorin.Batch
	retryCfg := batchCfg.AIRetry
	policy := retry.NewFixedPolicy(
		retryCfg.MaxAttempts,
		time.Duration(retryCfg.InitialInterval)*time.Millisecond,
		retryCfg.RetryableExceptions,
	)

	return NewRunner(RunnerParams{
		Repo:           deps.Repo,
		Frameworks:     deps.Frameworks,
		Settings:       deps.Settings,
		Selector:       fetcher.NewSelector(deps.Source, batchCfg.PageSize),
		Loader:         loader.NewTranscriptLoader(deps.Source, batchCfg.ChunkSize),
		Analyzer:       analyzer.NewAnalyzer(deps.Invoker, policy),
		Registry:       deps.Registry,
		Recorder:       deps.Recorder,
		BatchConfig:    batchCfg,
		JobListeners:   deps.JobListeners,
		PhaseListeners: deps.PhaseListeners,
	})
}

// Module provides the pipeline runner and the shared cancellation
// registry.
var Module = fx.Options(
	fx.Provide(cancellation.NewRegistry),
	fx.Provide(NewRunnerProvider),
)
