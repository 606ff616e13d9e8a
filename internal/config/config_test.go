package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
  cors_origins: ["http://localhost:5173"]
redis:
  addr: "localhost:6379"
quiz:
  cache_ttl: "30s"
ai:
  model: "gemini-test"
  max_image_px: 1024
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "")
	t.Setenv("QUIZ_REDIS_ADDR", "redis:6380")
	t.Setenv("QUIZ_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Fatalf("expected env override, got %s", cfg.Redis.Addr)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Auth.Issuer != "classroom-quiz" {
		t.Fatalf("unexpected auth section %+v", cfg.Auth)
	}
	if cfg.AI.Model != "gemini-test" || cfg.AI.MaxImagePx != 1024 || cfg.AI.Temperature != 0.2 {
		t.Fatalf("unexpected ai section %+v", cfg.AI)
	}
	if TTLDuration(cfg.Quiz.CacheTTL, time.Minute) != 30*time.Second {
		t.Fatalf("expected 30s cache ttl")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QUIZ_LOG_LEVEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Log.Level != "info" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on bad input, got %s", got)
	}
}
