// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// BaseURL is the public-facing URL, always an allowed CORS origin.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// CORSOrigins lists extra origins allowed to call the API, usually the
	// Foundry VTT servers embedding the calendar.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// TrustedProxies are the CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fd00::/8"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format. If no port is
	// specified, 3306 is appended automatically.
	Host     string `env:"DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"DB_USER" envDefault:"rtts"`
	Password string `env:"DB_PASSWORD" envDefault:"rtts"`
	Name     string `env:"DB_NAME" envDefault:"rtts"`

	// URL is a complete DSN that bypasses the individual fields.
	URL string `env:"DATABASE_URL"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
}

// SyncConfig holds the host runtime integration settings.
type SyncConfig struct {
	// APIKeyHash is the bcrypt hash of the host runtime's API key. Empty
	// disables authentication (development only).
	APIKeyHash string `env:"SYNC_API_KEY_HASH"`

	// AllowedIPs optionally restricts API callers to addresses or CIDRs.
	AllowedIPs []string `env:"SYNC_ALLOWED_IPS" envSeparator:","`

	// RateLimit is the number of world time requests allowed per minute per IP.
	RateLimit int `env:"SYNC_RATE_LIMIT" envDefault:"120"`

	// Timeout bounds each world clock write and notification publish.
	Timeout time.Duration `env:"SYNC_TIMEOUT" envDefault:"5s"`

	// SaveTimeout bounds each background calendar save.
	SaveTimeout time.Duration `env:"SAVE_TIMEOUT" envDefault:"5s"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	Endpoint string `env:"OTEL_ENDPOINT"`

	// Enabled can switch tracing off even when an endpoint is set.
	Enabled bool `env:"OTEL_ENABLED" envDefault:"true"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"roadtothesky"`
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	if cfg.IsProduction() {
		if cfg.Sync.APIKeyHash == "" {
			return nil, fmt.Errorf("SYNC_API_KEY_HASH is required in production")
		}
		if !strings.HasPrefix(cfg.Sync.APIKeyHash, "$2") {
			return nil, fmt.Errorf("SYNC_API_KEY_HASH must be a bcrypt hash")
		}
	}
	if cfg.Sync.Timeout <= 0 {
		return nil, fmt.Errorf("SYNC_TIMEOUT must be positive")
	}
	if cfg.Sync.SaveTimeout <= 0 {
		return nil, fmt.Errorf("SAVE_TIMEOUT must be positive")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// AllowedOrigins returns BaseURL followed by CORSOrigins.
func (c *Config) AllowedOrigins() []string {
	return append([]string{c.BaseURL}, c.CORSOrigins...)
}

// SlogLevel maps LogLevel to a slog level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
