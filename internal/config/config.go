// Package config provides application configuration with multi-source
// priority: environment variables override ~/.surfkit/config.yaml, which
// overrides built-in defaults.
//
// Sensitive values (passwords) are never logged; validation is fail-fast
// with sentinel errors checked via errors.Is.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	// ErrInvalidModelName indicates an empty or malformed model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates a temperature outside [0, 2].
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates a non-positive max token count.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidStoreBackend indicates an unknown session store backend.
	ErrInvalidStoreBackend = errors.New("invalid store backend")

	// ErrInvalidSessionTTL indicates a negative session TTL.
	ErrInvalidSessionTTL = errors.New("invalid session ttl")

	// ErrInvalidPostgresConfig indicates missing PostgreSQL settings for the
	// postgres backend.
	ErrInvalidPostgresConfig = errors.New("invalid postgres configuration")

	// ErrInvalidRedisConfig indicates missing Redis settings for the redis
	// backend.
	ErrInvalidRedisConfig = errors.New("invalid redis configuration")
)

// Session store backend identifiers used in Config.StoreBackend.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// DefaultSessionTTL answers the otherwise-unspecified session lifetime:
// sessions expire 24 hours after their last write. Zero disables expiry.
const DefaultSessionTTL = 24 * time.Hour

// Config stores application configuration.
// SECURITY: sensitive fields are masked in LogValue.
type Config struct {
	// Model configuration
	ModelName       string  `mapstructure:"model_name"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
	MaxTurns        int     `mapstructure:"max_turns"`

	// Session store selection and lifetime
	StoreBackend string        `mapstructure:"store_backend"` // "memory", "postgres", "redis"
	SessionTTL   time.Duration `mapstructure:"session_ttl"`

	// PostgreSQL (store_backend=postgres)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Redis (store_backend=redis)
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"` // SENSITIVE
	RedisDB       int    `mapstructure:"redis_db"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr"`

	// Tracing (ambient; disabled unless an endpoint is configured)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".surfkit")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("SURFKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("model_name", "googleai/gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_output_tokens", 4096)
	viper.SetDefault("max_turns", 5)

	viper.SetDefault("store_backend", StoreMemory)
	viper.SetDefault("session_ttl", DefaultSessionTTL)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "surfkit")
	viper.SetDefault("postgres_db_name", "surfkit")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_db", 0)

	viper.SetDefault("listen_addr", "localhost:8080")
	viper.SetDefault("service_name", "surfkit")
}

// Validate checks the configuration ranges. Called by Load; exported for
// callers that build a Config by hand.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxOutputTokens)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSessionTTL, c.SessionTTL)
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
			return fmt.Errorf("%w: host, user and db name are required", ErrInvalidPostgresConfig)
		}
		if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgresConfig, c.PostgresPort)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: addr is required", ErrInvalidRedisConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreBackend, c.StoreBackend)
	}
	return nil
}

// PostgresURL assembles the connection URL for pgx and golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode,
	)
}

// LogValue implements slog.LogValuer, masking sensitive fields.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("model_name", c.ModelName),
		slog.String("store_backend", c.StoreBackend),
		slog.Duration("session_ttl", c.SessionTTL),
		slog.String("listen_addr", c.ListenAddr),
		slog.String("postgres_host", c.PostgresHost),
		slog.String("redis_addr", c.RedisAddr),
	)
}
