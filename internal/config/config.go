// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRADEBOOK"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Log         LogConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Audit       AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string
	Development bool
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds per-client request limits. Rate uses the
// "<limit>-<period>" format, e.g. "300-M".
type RateLimitConfig struct {
	Enabled bool
	Rate    string
}

// IdempotencyConfig controls X-Idempotency-Key handling.
type IdempotencyConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupInterval time.Duration
}

// AuditConfig controls audit trail storage.
type AuditConfig struct {
	CompressThreshold int
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Load reads configuration from environment variables with the TRADEBOOK_ prefix.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			Environment:     v.GetString("server.environment"),
		},
		DB: DBConfig{
			URL:              v.GetString("db.url"),
			MaxConns:         v.GetInt32("db.max_conns"),
			MinConns:         v.GetInt32("db.min_conns"),
			MaxConnLifetime:  v.GetDuration("db.max_conn_lifetime"),
			StatementTimeout: v.GetDuration("db.statement_timeout"),
			AutoMigrate:      v.GetBool("db.auto_migrate"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("ratelimit.enabled"),
			Rate:    v.GetString("ratelimit.rate"),
		},
		Idempotency: IdempotencyConfig{
			Enabled:         v.GetBool("idempotency.enabled"),
			TTL:             v.GetDuration("idempotency.ttl"),
			CleanupInterval: v.GetDuration("idempotency.cleanup_interval"),
		},
		Audit: AuditConfig{
			CompressThreshold: v.GetInt("audit.compress_threshold"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.environment", "development")

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_conns", 25)
	v.SetDefault("db.min_conns", 5)
	v.SetDefault("db.max_conn_lifetime", "1h")
	v.SetDefault("db.statement_timeout", "30s")
	v.SetDefault("db.auto_migrate", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("cors.allowed_origins", "http://localhost:3000")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rate", "600-M")

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", "10m")
	v.SetDefault("idempotency.cleanup_interval", "5m")

	v.SetDefault("audit.compress_threshold", 10*1024)
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("%s_DB_URL is required", EnvPrefix)
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("db.min_conns (%d) exceeds db.max_conns (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	if c.DB.StatementTimeout < 0 {
		return fmt.Errorf("db.statement_timeout must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
