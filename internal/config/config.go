// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
// A .env file in the working directory, when present, fills in variables that
// are not already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when it exists.
const DefaultEnvFile = ".env"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8000"`

	// Database (PostgreSQL)
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	DBMaxConns     int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns     int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBWaitOnStart  bool          `env:"DB_WAIT_ON_START" envDefault:"true"`
	DBWaitInterval time.Duration `env:"DB_WAIT_INTERVAL" envDefault:"1s"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"false"`

	// Token store (Redis)
	RedisURL string `env:"REDIS_URL,required"`
	// Zero keeps tokens until revoked.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"0s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	// Multipart upload size limit in bytes (default 10MB)
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	// Read and write deadline for upload requests, replacing READ_TIMEOUT and
	// WRITE_TIMEOUT once the headers are in
	UploadTimeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"2m"`

	// Uploaded media
	MediaRoot string `env:"MEDIA_ROOT" envDefault:"./media"`
	MediaURL  string `env:"MEDIA_URL" envDefault:"/media"`

	// Observability
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	SentryDSN      string `env:"SENTRY_DSN" envDefault:""`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load reads DefaultEnvFile if present, then parses environment variables.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	return LoadFiles(DefaultEnvFile)
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped;
// variables already in the environment win over file values.
func LoadFiles(files ...string) (*Config, error) {
	if err := loadDotenv(files); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.DBMinConns, cfg.DBMaxConns)
	}

	return cfg, nil
}

// ToolConfig is the subset of settings used by the command-line tools,
// which only talk to PostgreSQL.
type ToolConfig struct {
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	DBWaitInterval time.Duration `env:"DB_WAIT_INTERVAL" envDefault:"1s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadTool reads DefaultEnvFile if present and parses a ToolConfig.
func LoadTool() (*ToolConfig, error) {
	return LoadToolFiles(DefaultEnvFile)
}

// LoadToolFiles is LoadTool with explicit dotenv files.
func LoadToolFiles(files ...string) (*ToolConfig, error) {
	if err := loadDotenv(files); err != nil {
		return nil, err
	}

	cfg := &ToolConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func loadDotenv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
