package main

import (
	"context"
	"embed"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	_ "github.com/tigerroll/scorin/pkg/assess/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/scorin/pkg/assess/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/scorin/pkg/assess/adapter/database/gorm/sqlite"

	"github.com/tigerroll/scorin/internal/app"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// embeddedConfig embeds the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS embeds the database migration files.
//
//go:embed all:resources/migrations
var migrationsFS embed.FS

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app.RunApplication(ctx, envFilePath, embeddedConfig, migrationsFS)
	os.Exit(0)
}
