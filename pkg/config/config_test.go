package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Listen)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected 1h cache TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("expected 30s AI timeout, got %v", cfg.AI.Timeout)
	}
	if cfg.AI.CostPer1KTokens != 0.03 {
		t.Errorf("expected 0.03 cost rate, got %v", cfg.AI.CostPer1KTokens)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "file-secret")

	content := `
listen: ":9090"
db_path: "test.db"
auth:
  jwt_secret: ${TEST_JWT_SECRET}
ai:
  model: gpt-4o
  max_tokens: 1000
rate_limit:
  max: 5
  window: 1m
cache:
  enabled: true
  ttl: 30m
`
	dir := t.TempDir()
	path := filepath.Join(dir, "kru.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Listen)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("env var not expanded: got %s", cfg.Auth.JWTSecret)
	}
	if cfg.AI.Model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %s", cfg.AI.Model)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("expected 1m window, got %v", cfg.RateLimit.Window)
	}
	// Unset fields keep their defaults.
	if cfg.AI.Temperature != 0.7 {
		t.Errorf("expected default temperature, got %v", cfg.AI.Temperature)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("KRU_OPENAI_MODEL", "gpt-4-turbo")
	t.Setenv("KRU_JWT_SECRET", "env-secret")

	content := `
ai:
  model: gpt-4
auth:
  jwt_secret: file-secret
`
	dir := t.TempDir()
	path := filepath.Join(dir, "kru.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.AI.Model != "gpt-4-turbo" {
		t.Errorf("env should win over file, got %s", cfg.AI.Model)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("env should win over file, got %s", cfg.Auth.JWTSecret)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("expected defaults, got %s", cfg.Listen)
	}
}
