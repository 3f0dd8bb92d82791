// Package app assembles the batch assessment runner: configuration,
// stores, pipeline, metrics and listeners, wired through uber-fx. The
// runner submits the configured job at startup, polls it to a terminal
// state, and shuts down.
package app

import (
	"context"
	"embed"
	"time"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/scorin/pkg/assess/adapter/database/gorm"
	"github.com/tigerroll/scorin/pkg/assess/core/application/usecase"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/pipeline"
	"github.com/tigerroll/scorin/pkg/assess/infrastructure/ai"
	"github.com/tigerroll/scorin/pkg/assess/infrastructure/conversation"
	inframetrics "github.com/tigerroll/scorin/pkg/assess/infrastructure/metrics"
	"github.com/tigerroll/scorin/pkg/assess/infrastructure/migration"
	sqlrepo "github.com/tigerroll/scorin/pkg/assess/infrastructure/repository/sql"
	logginglistener "github.com/tigerroll/scorin/pkg/assess/listener/logging"
	tracinglistener "github.com/tigerroll/scorin/pkg/assess/listener/tracing"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// migrationsPath is where main embeds the SQL migration files.
const migrationsPath = "resources/migrations"

// RunApplication builds and runs the fx application.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, migrationsFS embed.FS) {
	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(migrationsFS, fx.ResultTags(`name:"migrationsFS"`)),
			fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
		),

		logger.Module,
		config.Module,
		gormadapter.Module,
		sqlrepo.Module,
		ai.Module,
		conversation.Module,
		inframetrics.Module,
		logginglistener.Module,
		tracinglistener.Module,
		pipeline.Module,
		usecase.Module,

		fx.Invoke(registerConnectorShutdown),
		fx.Invoke(fx.Annotate(runMigrations, fx.ParamTags("", "", "", `name:"migrationsFS"`))),
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags("", "", "", "", `name:"appCtx"`))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// registerConnectorShutdown closes all database connections on shutdown.
func registerConnectorShutdown(lc fx.Lifecycle, connector *gormadapter.Connector) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return connector.Close()
		},
	})
}

// runMigrations applies the embedded schema migrations to the metadata
// database before the job starts.
func runMigrations(lc fx.Lifecycle, cfg *config.Config, connector *gormadapter.Connector, migrationsFS embed.FS) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ref := cfg.Scorin.Infrastructure.JobRepositoryDBRef
			dbCfg, err := connector.ConfigFor(ref)
			if err != nil {
				return err
			}
			db, err := connector.Resolve(ref)
			if err != nil {
				return err
			}
			return migration.NewMigrator(db, dbCfg.Type).Up(migrationsFS, migrationsPath)
		},
	})
}

// startJobExecution submits the configured job on startup, polls its
// status until it is terminal, and then shuts the application down. When
// the application context is cancelled first, cooperative cancellation
// of the job is requested before exiting.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	manager usecase.JobManager,
	cfg *config.Config,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
					}
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				monitorJob(appCtx, manager, cfg)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func monitorJob(appCtx context.Context, manager usecase.JobManager, cfg *config.Config) {
	jobCfg := jobConfigFrom(cfg.Scorin.Job)
	job, err := manager.Create(appCtx, cfg.Scorin.Job.AccountID, jobCfg, cfg.Scorin.Job.CreatedBy)
	if err != nil {
		logger.Errorf("Failed to submit assessment job: %v", err)
		return
	}
	logger.Infof("Assessment job %s submitted.", job.ID)

	pollingInterval := time.Duration(cfg.Scorin.Job.PollingIntervalSeconds) * time.Second
	if pollingInterval <= 0 {
		pollingInterval = 5 * time.Second
	}

	for {
		select {
		case <-appCtx.Done():
			logger.Warnf("Application context cancelled. Requesting cancellation of job %s.", job.ID)
			if _, err := manager.Cancel(context.Background(), job.AccountID, job.ID); err != nil {
				logger.Errorf("Failed to cancel job %s: %v", job.ID, err)
			}
			return
		case <-time.After(pollingInterval):
			latest, err := manager.GetStatus(appCtx, job.AccountID, job.ID)
			if err != nil {
				logger.Errorf("Failed to fetch status of job %s: %v", job.ID, err)
				continue
			}
			if latest.Status.IsTerminal() {
				logger.Infof("Job %s finished with status %s: %d processed, %d successful, %d failed.",
					latest.ID, latest.Status, latest.Progress.ProcessedConversations,
					latest.Progress.SuccessfulAssessments, latest.Progress.FailedAssessments)
				if latest.Progress.AverageScore != nil {
					logger.Infof("Job %s average score: %.1f.", latest.ID, *latest.Progress.AverageScore)
				}
				return
			}
			logger.Debugf("Job %s is %s: %d/%d conversations processed.",
				latest.ID, latest.Status, latest.Progress.ProcessedConversations,
				latest.Progress.TotalConversations)
		}
	}
}

// jobConfigFrom translates the configured startup job into a job
// configuration.
func jobConfigFrom(jobCfg config.JobConfig) model.BatchJobConfig {
	lookback := jobCfg.LookbackDays
	if lookback <= 0 {
		lookback = 7
	}
	now := time.Now().UTC()
	return model.BatchJobConfig{
		Name:        jobCfg.Name,
		FrameworkID: jobCfg.FrameworkID,
		Filters: model.ConversationFilters{
			DateFrom: now.AddDate(0, 0, -lookback),
			DateTo:   now,
			Status:   jobCfg.Status,
			SkillIDs: jobCfg.SkillIDs,
			AgentIDs: jobCfg.AgentIDs,
		},
		SamplingRate:        jobCfg.SamplingRate,
		MaxConversations:    jobCfg.MaxConversations,
		PriorityOrder:       model.PriorityOrder(jobCfg.PriorityOrder),
		SkipAlreadyAssessed: jobCfg.SkipAlreadyAssessed,
	}
}
