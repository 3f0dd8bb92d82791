// Package gorm manages the application's named GORM connections. Dialect
// packages register a DialectorFactory from their init; the connector
// decodes the named entry of the configuration's database map and opens
// the connection lazily on first use.
package gorm

import (
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	dbconfig "github.com/tigerroll/scorin/pkg/assess/adapter/database/config"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database
// type. Registering a type twice overwrites the previous factory.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory for the given DB
// type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// Connector resolves named database connections from the application
// configuration. Connections are opened on first resolution and cached.
type Connector struct {
	cfg *config.Config

	mu          sync.Mutex
	connections map[string]*gorm.DB
}

// NewConnector creates a connector over the application configuration.
func NewConnector(cfg *config.Config) *Connector {
	return &Connector{
		cfg:         cfg,
		connections: make(map[string]*gorm.DB),
	}
}

// Resolve returns the GORM handle for the named connection, opening it
// if needed.
func (c *Connector) Resolve(name string) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.connections[name]; ok {
		return db, nil
	}

	dbCfg, err := c.ConfigFor(name)
	if err != nil {
		return nil, err
	}

	db, err := open(dbCfg)
	if err != nil {
		return nil, err
	}
	c.connections[name] = db
	logger.Infof("Established DB connection: %s (%s)", name, dbCfg.Type)
	return db, nil
}

// ConfigFor decodes the named connection's settings without opening it.
func (c *Connector) ConfigFor(name string) (dbconfig.DatabaseConfig, error) {
	var dbCfg dbconfig.DatabaseConfig
	raw, ok := c.cfg.Scorin.AdapterConfigs[name]
	if !ok {
		return dbCfg, fmt.Errorf("database configuration '%s' not found under the database map", name)
	}
	if err := mapstructure.Decode(raw, &dbCfg); err != nil {
		return dbCfg, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return dbCfg, nil
}

// Close closes every connection opened by the connector.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for name, db := range c.connections {
		sqlDB, err := db.DB()
		if err != nil {
			lastErr = err
			continue
		}
		if err := sqlDB.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			lastErr = err
		}
		delete(c.connections, name)
	}
	return lastErr
}

// open establishes a GORM connection and applies the pool settings.
// GORM's own logging is kept silent; the application logger reports what
// matters.
func open(dbCfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(dbCfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbCfg.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if dbCfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbCfg.Pool.MaxOpenConns)
	}
	if dbCfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbCfg.Pool.MaxIdleConns)
	}
	if dbCfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}
