// Package config provides the structures and loading utilities for the
// application configuration. Configuration is read from an embedded YAML
// document, expanded against environment variables, and merged over the
// compiled-in defaults.
package config

// EmbeddedConfig holds the raw bytes of the configuration file, typically
// supplied from main via go:embed.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g. "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g. "UTC").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// AIRetryConfig holds the per-invocation retry settings for AI calls.
type AIRetryConfig struct {
	// MaxAttempts is the maximum number of attempts per conversation,
	// including the first.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialInterval is the fixed backoff between attempts in milliseconds.
	InitialInterval int `yaml:"initial_interval"`
	// RetryableExceptions lists error type names treated as retryable in
	// addition to errors flagged retryable at the call site.
	RetryableExceptions []string `yaml:"retryable_exceptions"`
}

// BatchConfig holds settings specific to the assessment pipeline.
type BatchConfig struct {
	// PageSize is the conversation search page size.
	PageSize int `yaml:"page_size"`
	// ChunkSize is the transcript retrieval chunk size.
	ChunkSize int `yaml:"chunk_size"`
	// MaxConcurrency bounds simultaneous AI invocations per process.
	MaxConcurrency int `yaml:"max_concurrency"`
	// DispatchIntervalMs is the minimum spacing between AI task dispatches.
	DispatchIntervalMs int `yaml:"dispatch_interval_ms"`
	// FlowSettingName is the account setting holding the AI flow id.
	FlowSettingName string `yaml:"flow_setting_name"`
	// DefaultFlowID is used when the account setting is absent. A job fails
	// fatally when neither exists.
	DefaultFlowID string `yaml:"default_flow_id"`
	// AIRetry configures retries of individual AI invocations.
	AIRetry AIRetryConfig `yaml:"ai_retry"`
}

// AIConfig holds the AI invocation service connection settings.
type AIConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ConversationConfig holds the conversation source connection settings.
type ConversationConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MetricsConfig holds metrics exposure settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// ListenAddress is where the Prometheus handler is served when enabled.
	ListenAddress string `yaml:"listen_address"`
}

// InfrastructureConfig holds logical dependency settings for
// infrastructure components.
type InfrastructureConfig struct {
	// JobRepositoryDBRef names the database connection used by the job
	// store (a key under the "database" map).
	JobRepositoryDBRef string `yaml:"job_repository_db_ref"`
}

// JobConfig describes the assessment job the runner submits at startup.
type JobConfig struct {
	AccountID string `yaml:"account_id"`
	CreatedBy string `yaml:"created_by"`
	Name      string `yaml:"name"`
	// FrameworkID selects the scoring framework the job evaluates against.
	FrameworkID string `yaml:"framework_id"`
	// LookbackDays sets the conversation date window ending now.
	LookbackDays        int      `yaml:"lookback_days"`
	Status              []string `yaml:"status"`
	SkillIDs            []string `yaml:"skill_ids"`
	AgentIDs            []string `yaml:"agent_ids"`
	SamplingRate        int      `yaml:"sampling_rate"`
	MaxConversations    int      `yaml:"max_conversations"`
	PriorityOrder       string   `yaml:"priority_order"`
	SkipAlreadyAssessed bool     `yaml:"skip_already_assessed"`
	// PollingIntervalSeconds is how often the runner polls the job status.
	PollingIntervalSeconds int `yaml:"polling_interval_seconds"`
}

// ScorinConfig holds all configuration under the "scorin" top-level key.
type ScorinConfig struct {
	System         SystemConfig         `yaml:"system"`
	Batch          BatchConfig          `yaml:"batch"`
	Job            JobConfig            `yaml:"job"`
	AI             AIConfig             `yaml:"ai"`
	Conversation   ConversationConfig   `yaml:"conversation"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// AdapterConfigs maps connection names to database settings, decoded
	// per adapter with mapstructure.
	AdapterConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Scorin ScorinConfig `yaml:"scorin"`
}

// NewConfig returns a new Config populated with defaults. The page and
// chunk sizes and the scheduler bounds default to the values the engine
// was tuned for against the platform's rate limits.
func NewConfig() *Config {
	return &Config{
		Scorin: ScorinConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Batch: BatchConfig{
				PageSize:           100,
				ChunkSize:          100,
				MaxConcurrency:     5,
				DispatchIntervalMs: 200,
				FlowSettingName:    "ai_assessment_flow_id",
				AIRetry: AIRetryConfig{
					MaxAttempts:     2,
					InitialInterval: 1000,
				},
			},
			Job: JobConfig{
				LookbackDays:           7,
				PollingIntervalSeconds: 5,
			},
			AI: AIConfig{
				TimeoutSeconds: 120,
			},
			Conversation: ConversationConfig{
				TimeoutSeconds: 30,
			},
			Metrics: MetricsConfig{
				ListenAddress: ":9464",
			},
			Infrastructure: InfrastructureConfig{
				JobRepositoryDBRef: "metadata",
			},
		},
	}
}
