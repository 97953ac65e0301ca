package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	JWT           JWTConfig           `yaml:"jwt"`
	Log           LogConfig           `yaml:"log"`
	Participation ParticipationConfig `yaml:"participation"`
	Outbox        OutboxConfig        `yaml:"outbox"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Redis         RedisConfig         `yaml:"redis"`
	SendGrid      SendGridConfig      `yaml:"sendgrid"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// OpsPort serves /healthz and /metrics. Defaults to Port+1.
	OpsPort int `yaml:"ops_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// ParticipationConfig tunes the participation engine
type ParticipationConfig struct {
	MaxTxAttempts  int `yaml:"max_tx_attempts"`
	RetryBackoffMs int `yaml:"retry_backoff_ms"`
	// ModerationEnabled lets private activities hold joins for host approval.
	ModerationEnabled *bool `yaml:"moderation_enabled"`
}

// OutboxConfig contains participation event delivery settings
type OutboxConfig struct {
	DispatchInline *bool `yaml:"dispatch_inline"`
	BatchSize      int   `yaml:"batch_size"`
	LeaseSeconds   int   `yaml:"lease_seconds"`
	MaxAttempts    int   `yaml:"max_attempts"`
	RetentionHours int   `yaml:"retention_hours"`
	// Upper bound on a single inline delivery after commit.
	InlineTimeoutSeconds int `yaml:"inline_timeout_seconds"`
}

// KafkaConfig enables the Kafka emitter when brokers are set
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig enables event deduplication when an address is set
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	DedupTTLHours int    `yaml:"dedup_ttl_hours"`
}

// SendGridConfig enables participant emails when an API key is set
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	DispatchOutbox string `yaml:"dispatch_outbox"`
	PurgeOutbox    string `yaml:"purge_outbox"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a configuration from YAML, applying environment overrides and defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Event delivery
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("KAFKA_TOPIC"); val != "" {
		c.Kafka.Topic = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.OpsPort == 0 {
		c.Server.OpsPort = c.Server.Port + 1
	}
	if c.Server.OpsPort <= 0 || c.Server.OpsPort > 65535 || c.Server.OpsPort == c.Server.Port {
		return fmt.Errorf("invalid ops port: %d", c.Server.OpsPort)
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Participation defaults
	if c.Participation.MaxTxAttempts == 0 {
		c.Participation.MaxTxAttempts = 3
	}
	if c.Participation.MaxTxAttempts < 0 {
		return fmt.Errorf("participation.max_tx_attempts must be positive")
	}
	if c.Participation.RetryBackoffMs == 0 {
		c.Participation.RetryBackoffMs = 25
	}
	if c.Participation.ModerationEnabled == nil {
		c.Participation.ModerationEnabled = boolPtr(true)
	}

	// Outbox defaults
	if c.Outbox.DispatchInline == nil {
		c.Outbox.DispatchInline = boolPtr(true)
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.LeaseSeconds == 0 {
		c.Outbox.LeaseSeconds = 60
	}
	if c.Outbox.MaxAttempts == 0 {
		c.Outbox.MaxAttempts = 5
	}
	if c.Outbox.RetentionHours == 0 {
		c.Outbox.RetentionHours = 24 * 7
	}
	if c.Outbox.InlineTimeoutSeconds == 0 {
		c.Outbox.InlineTimeoutSeconds = 10
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		c.Kafka.Topic = "participation-events"
	}
	if c.Redis.DedupTTLHours == 0 {
		c.Redis.DedupTTLHours = 24
	}
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an API key is set")
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Outercircl"
	}

	// Scheduler defaults
	if c.Scheduler.DispatchOutbox == "" {
		c.Scheduler.DispatchOutbox = "@every 10s"
	}
	if c.Scheduler.PurgeOutbox == "" {
		c.Scheduler.PurgeOutbox = "0 0 3 * * *" // 3 AM UTC
	}

	if c.Metrics.Enabled == nil {
		c.Metrics.Enabled = boolPtr(true)
	}

	return nil
}

// GetDatabaseURL returns PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetOpsAddress returns the health and metrics HTTP address
func (c *Config) GetOpsAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.OpsPort)
}

func (c ParticipationConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

func (c OutboxConfig) Lease() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

func (c OutboxConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c OutboxConfig) InlineTimeout() time.Duration {
	return time.Duration(c.InlineTimeoutSeconds) * time.Second
}

func (c RedisConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLHours) * time.Hour
}

func boolPtr(v bool) *bool { return &v }
