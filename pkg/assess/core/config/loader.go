package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"

	"go.uber.org/fx"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig loads configuration from the embedded YAML document and the
// environment. A .env file is loaded first when present, then ${VAR}
// placeholders inside the YAML are expanded, and finally the document is
// unmarshalled over the compiled-in defaults so that absent keys keep
// their default values.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	expanded := []byte(os.ExpandEnv(string(embeddedConfig)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	if err := validateExceptionClasses(cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to validate configured exception classes", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an fx provider that loads *Config and applies the
// configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Scorin.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Scorin.System.Logging.Level)
	return cfg, nil
}

// validateExceptionClasses verifies that every exception class name
// referenced by the AI retry configuration is registered.
func validateExceptionClasses(cfg *Config) error {
	for _, name := range cfg.Scorin.Batch.AIRetry.RetryableExceptions {
		if !exception.IsErrorTypeRegistered(name) {
			return fmt.Errorf("ai_retry configuration references unknown exception class: '%s'", name)
		}
	}
	return nil
}
