package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 || !cfg.IsDevelopment() {
		t.Errorf("port %d env %q", cfg.Port, cfg.Env)
	}
	if cfg.Sync.Timeout != 5*time.Second || cfg.Sync.SaveTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Sync.Timeout, cfg.Sync.SaveTimeout)
	}
	if cfg.Database.ConnMaxLifetime != 5*time.Minute || cfg.Database.MaxOpenConns != 25 {
		t.Errorf("database pool = %+v", cfg.Database)
	}
	if cfg.Telemetry.Endpoint != "" || !cfg.Telemetry.Enabled {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if len(cfg.TrustedProxies) != 5 || cfg.TrustedProxies[0] != "127.0.0.0/8" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "http://localhost:8080" {
		t.Errorf("AllowedOrigins = %v", got)
	}
	if cfg.MigrationsPath != "db/migrations" {
		t.Errorf("MigrationsPath = %q", cfg.MigrationsPath)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_TIMEOUT", "750ms")
	t.Setenv("SYNC_ALLOWED_IPS", "10.0.0.0/8,127.0.0.1")
	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CORS_ORIGINS", "https://vtt.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 || cfg.Sync.Timeout != 750*time.Millisecond {
		t.Errorf("port %d timeout %v", cfg.Port, cfg.Sync.Timeout)
	}
	if len(cfg.Sync.AllowedIPs) != 2 || cfg.Sync.AllowedIPs[1] != "127.0.0.1" {
		t.Errorf("AllowedIPs = %v", cfg.Sync.AllowedIPs)
	}
	if cfg.Telemetry.Endpoint != "http://collector:4318" {
		t.Errorf("Endpoint = %q", cfg.Telemetry.Endpoint)
	}
	if got := cfg.AllowedOrigins(); len(got) != 2 || got[1] != "https://vtt.example.com" {
		t.Errorf("AllowedOrigins = %v", got)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ProductionRequiresKeyHash(t *testing.T) {
	t.Setenv("ENV", "Production")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SYNC_API_KEY_HASH") {
		t.Fatalf("expected key hash error, got %v", err)
	}

	t.Setenv("SYNC_API_KEY_HASH", "plaintext")
	if _, err := Load(); err == nil {
		t.Fatal("expected bcrypt format error")
	}

	t.Setenv("SYNC_API_KEY_HASH", "$2a$10$abcdefghijklmnopqrstuuabcdefghijklmnopqrstuvwxyz01234")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction = false")
	}
}

func TestLoad_NonPositiveTimeout(t *testing.T) {
	t.Setenv("SAVE_TIMEOUT", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  DatabaseConfig{URL: "u:p@tcp(db:3306)/x", Host: "ignored"},
			want: "u:p@tcp(db:3306)/x",
		},
		{
			name: "default port",
			cfg:  DatabaseConfig{Host: "mariadb", User: "rtts", Password: "p@ss", Name: "rtts"},
			want: "tcp(mariadb:3306)/rtts?",
		},
		{
			name: "explicit port",
			cfg:  DatabaseConfig{Host: "mariadb:3307", User: "rtts", Password: "pw", Name: "cal"},
			want: "tcp(mariadb:3307)/cal?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.DSN()
			if !strings.Contains(got, tt.want) {
				t.Errorf("DSN() = %q, want it to contain %q", got, tt.want)
			}
			if tt.cfg.URL == "" && !strings.Contains(got, "parseTime=true") {
				t.Errorf("DSN() = %q, missing parseTime", got)
			}
		})
	}
}
