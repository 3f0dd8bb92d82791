// Package config defines the database connection settings decoded from
// the named entries under the application's "database" map.
package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes" mapstructure:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds the settings of one named database connection.
type DatabaseConfig struct {
	// Type selects the dialector ("sqlite", "postgres" or "mysql").
	Type     string     `yaml:"type" mapstructure:"type"`
	Host     string     `yaml:"host" mapstructure:"host"`
	Port     int        `yaml:"port" mapstructure:"port"`
	Database string     `yaml:"database" mapstructure:"database"`
	User     string     `yaml:"user" mapstructure:"user"`
	Password string     `yaml:"password" mapstructure:"password"`
	Schema   string     `yaml:"schema,omitempty" mapstructure:"schema"`
	Sslmode  string     `yaml:"sslmode" mapstructure:"sslmode"`
	Pool     PoolConfig `yaml:"pool" mapstructure:"pool"`
}
