package config

import (
	"os"
	"regexp"
	"time"

	"github.com/amoylab/snipcollab/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// CollabdConfig represents the collaboration server configuration
	CollabdConfig struct {
		Port          int                 `yaml:"port"`
		PID           string              `yaml:"pid"`
		Logger        LoggerConfig        `yaml:"logger"`
		Database      DatabaseConfig      `yaml:"database"`
		Session       SessionConfig       `yaml:"session"`
		Collaboration CollaborationConfig `yaml:"collaboration"`
		JWT           JWTConfig           `yaml:"jwt"`
		Metrics       MetricsConfig       `yaml:"metrics"`
		Tracing       TracingConfig       `yaml:"tracing"`
		I18n          I18nConfig          `yaml:"i18n"`
	}

	// SessionConfig represents the collaboration session storage configuration
	SessionConfig struct {
		Type  string             `yaml:"type"`  // "memory", "redis" or "db"
		Redis SessionRedisConfig `yaml:"redis"` // Redis configuration
	}

	// SessionRedisConfig represents the Redis configuration for session storage
	SessionRedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	// CollaborationConfig holds the rules of the session engine
	CollaborationConfig struct {
		MaxParticipants int           `yaml:"max_participants"`
		SessionTimeout  time.Duration `yaml:"session_timeout"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
		CleanupEnabled  bool          `yaml:"cleanup_enabled"`
		CleanupKey      string        `yaml:"cleanup_key"` // shared secret for POST /collaboration/cleanup, empty disables the check
		MaxRetries      int           `yaml:"max_retries"` // compare-and-swap attempts per mutation
		MaxEvents       int           `yaml:"max_events"`  // event log retention, 0 keeps everything
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// MetricsConfig represents the prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Path      string    `yaml:"path"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// TracingConfig represents OpenTelemetry tracing configuration
	TracingConfig struct {
		Enabled     bool              `yaml:"enabled"`
		ServiceName string            `yaml:"service_name"`
		Endpoint    string            `yaml:"endpoint"`     // e.g. localhost:4317 or http://localhost:4318
		Protocol    string            `yaml:"protocol"`     // grpc or http
		Insecure    bool              `yaml:"insecure"`     // allow insecure connection
		SamplerRate float64           `yaml:"sampler_rate"` // 0.0~1.0
		Environment string            `yaml:"environment"`  // env tag: dev/staging/prod
		Headers     map[string]string `yaml:"headers"`
	}

	// I18nConfig represents the internationalization configuration
	I18nConfig struct {
		Path string `yaml:"path"` // Path to i18n translation files
	}
)

const (
	DefaultMaxParticipants = 10
	DefaultSessionTimeout  = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
	DefaultMaxRetries      = 5
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*CollabdConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath, err := helper.ConfigPath(filename)
	if err != nil {
		return nil, filename, err
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg CollabdConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, err
	}
	return &cfg, cfgPath, nil
}

// SetDefaults fills zero values with the documented defaults
func (c *CollabdConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 5235
	}
	if c.Session.Type == "" {
		c.Session.Type = "memory"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
		c.Database.DBName = "./data/snipcollab.db"
	}
	c.Collaboration.SetDefaults()
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "snipcollab"
	}
	if c.I18n.Path == "" {
		c.I18n.Path = "configs/i18n"
	}
}

// SetDefaults fills zero values of the collaboration rules
func (c *CollaborationConfig) SetDefaults() {
	if c.MaxParticipants <= 0 {
		c.MaxParticipants = DefaultMaxParticipants
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.CleanupInterval <= time.Second {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
