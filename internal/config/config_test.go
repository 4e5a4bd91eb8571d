package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "server:\n  port: \"9000\"\n")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.AI.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d, want 3", cfg.AI.MaxAttempts)
	}
	if cfg.AI.RateLimit.MaxCalls != 5 || cfg.AI.RateWindow() != time.Minute {
		t.Errorf("rate limit = %d/%s, want 5/1m", cfg.AI.RateLimit.MaxCalls, cfg.AI.RateWindow())
	}
	if !cfg.Plan.EnforceDailyUnlock {
		t.Error("enforce_daily_unlock should default to true")
	}
	if cfg.JWT.ExpireTime != 72*time.Hour {
		t.Errorf("jwt expiry = %s, want 72h", cfg.JWT.ExpireTime)
	}
	if cfg.File == "" {
		t.Error("File should record the loaded path")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: mysql\n")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("AI_MODEL", "gemini-1.5-flash")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.AI.Model != "gemini-1.5-flash" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "sqlite"},
			AI:       AIConfig{Provider: "openai", MaxAttempts: 3, Cache: AIResponseCacheConf{Driver: "memory"}},
			Plan:     PlanConfig{DefaultDurationDays: 30},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"short secret in release", func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"unknown provider", func(c *Config) { c.AI.Provider = "cohere" }, true},
		{"zero attempts", func(c *Config) { c.AI.MaxAttempts = 0 }, true},
		{"redis cache without redis", func(c *Config) { c.AI.Cache.Driver = "redis" }, true},
		{"redis cache with redis", func(c *Config) { c.AI.Cache.Driver = "redis"; c.Redis.Enabled = true }, false},
		{"zero duration", func(c *Config) { c.Plan.DefaultDurationDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
