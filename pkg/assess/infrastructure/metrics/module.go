package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/scorin/pkg/assess/core/config"
	coremetrics "github.com/tigerroll/scorin/pkg/assess/support/metrics"
)

// Module provides the Prometheus recorder bound to the engine's recorder
// contract, and runs the exposition endpoint when metrics are enabled.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(func(r *PrometheusRecorder) coremetrics.Recorder { return r }),
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, cfg *config.Config, recorder *PrometheusRecorder) {
	if !cfg.Scorin.Metrics.Enabled {
		return
	}
	server := NewServer(cfg.Scorin.Metrics.ListenAddress, recorder)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
}
