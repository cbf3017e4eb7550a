package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Content   ContentConfig   `mapstructure:"content"`
	Batch     BatchConfig     `mapstructure:"batch"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the catalog backend. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// RedisConfig is optional; an empty URL disables the cross-instance lock and rate limiting
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// LLMConfig configures the OpenAI-compatible chat completions endpoint
type LLMConfig struct {
	BaseURL               string        `mapstructure:"base_url"`
	APIKey                string        `mapstructure:"api_key"`
	Model                 string        `mapstructure:"model"`
	Timeout               time.Duration `mapstructure:"timeout"`
	Temperature           float64       `mapstructure:"temperature"`
	MaxTokens             int           `mapstructure:"max_tokens"`
	StructuredTemperature float64       `mapstructure:"structured_temperature"`
	StructuredMaxTokens   int           `mapstructure:"structured_max_tokens"`
}

type CatalogConfig struct {
	SearchLimit      int           `mapstructure:"search_limit"`
	MaxQueryRunes    int           `mapstructure:"max_query_runes"`
	PantryLimit      int           `mapstructure:"pantry_limit"`
	MaxMissing       int           `mapstructure:"max_missing"`
	GenerationWait   time.Duration `mapstructure:"generation_wait"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	LockPollInterval time.Duration `mapstructure:"lock_poll_interval"`
}

// ContentConfig selects where document bodies live. Provider is "local" or "s3".
type ContentConfig struct {
	Provider   string `mapstructure:"provider"`
	Root       string `mapstructure:"root"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
}

type BatchConfig struct {
	Attempts       int           `mapstructure:"attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	Pacing         time.Duration `mapstructure:"pacing"`
	ContentRunes   int           `mapstructure:"content_runes"`
	Workers        int           `mapstructure:"workers"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Addr returns the listen address for the HTTP server
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// LoadConfig reads .env (when present), APP_* environment variables and well-known
// variables, then validates the result for the current environment.
func LoadConfig() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.port":       "SERVER_PORT",
		"server.host":       "SERVER_HOST",
		"database.driver":   "DB_DRIVER",
		"database.dsn":      "DATABASE_URL",
		"redis.url":         "REDIS_URL",
		"llm.base_url":      "LLM_BASE_URL",
		"llm.api_key":       "LLM_API_KEY",
		"llm.model":         "LLM_MODEL",
		"content.provider":  "CONTENT_PROVIDER",
		"content.root":      "COOK_ROOT",
		"content.s3_bucket": "S3_BUCKET_NAME",
		"content.s3_region": "AWS_REGION",
		"app.log_level":     "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = readSecret("llm_api_key")
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "postgres" {
		cfg.Database.DSN = readSecret("database_url")
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recipe-catalog")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/cook_data.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("redis.url", "")

	v.SetDefault("llm.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "qwen-plus")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.structured_temperature", 0.2)
	v.SetDefault("llm.structured_max_tokens", 1200)

	v.SetDefault("catalog.search_limit", 20)
	v.SetDefault("catalog.max_query_runes", 20)
	v.SetDefault("catalog.pantry_limit", 20)
	v.SetDefault("catalog.max_missing", 3)
	v.SetDefault("catalog.generation_wait", "45s")
	v.SetDefault("catalog.lock_ttl", "60s")
	v.SetDefault("catalog.lock_poll_interval", "500ms")

	v.SetDefault("content.provider", "local")
	v.SetDefault("content.root", "data/HowToCook/dishes")
	v.SetDefault("content.s3_bucket", "")
	v.SetDefault("content.s3_prefix", "dishes/")
	v.SetDefault("content.s3_region", "us-east-1")
	v.SetDefault("content.s3_endpoint", "")

	v.SetDefault("batch.attempts", 3)
	v.SetDefault("batch.retry_delay", "5s")
	v.SetDefault("batch.rate_limit_delay", "30s")
	v.SetDefault("batch.pacing", "2s")
	v.SetDefault("batch.content_runes", 1500)
	v.SetDefault("batch.workers", 4)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
