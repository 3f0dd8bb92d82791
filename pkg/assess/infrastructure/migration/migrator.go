// Package migration applies the embedded schema migrations to the
// metadata database at startup.
package migration

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// MigrationsTable is the version-tracking table used by golang-migrate.
const MigrationsTable = "scorin_schema_migrations"

// Migrator applies SQL migrations against one database connection.
type Migrator struct {
	db     *gorm.DB
	dbType string
}

// NewMigrator creates a migrator for the given connection. dbType must
// match the connection's dialect ("sqlite", "postgres" or "mysql").
func NewMigrator(db *gorm.DB, dbType string) *Migrator {
	return &Migrator{db: db, dbType: dbType}
}

// Up applies all pending migrations found under path in migrationFS.
// ErrNoChange is not an error: the schema is already current.
func (m *Migrator) Up(migrationFS fs.FS, path string) error {
	logger.Infof("Applying schema migrations (path: %s, table: %s).", path, MigrationsTable)

	instance, err := m.newInstance(migrationFS, path)
	if err != nil {
		return err
	}
	defer instance.Close()

	if err := instance.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Debugf("Schema already up to date.")
			return nil
		}
		return fmt.Errorf("migration failed (db: %s, path: %s): %w", m.dbType, path, err)
	}

	logger.Infof("Schema migrations applied.")
	return nil
}

func (m *Migrator) newInstance(migrationFS fs.FS, path string) (*migrate.Migrate, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	dbDriver, err := m.databaseDriver(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return instance, nil
}

func (m *Migrator) databaseDriver(sqlDB *sql.DB) (database.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}
