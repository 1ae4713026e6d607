// Package config loads gateway configuration from a YAML file with ${VAR}
// expansion, then overlays KRU_* environment variables so secrets never
// have to live in the file. Every option is defined exactly once, with one
// authoritative default.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/store"
)

// Config holds all gateway configuration.
type Config struct {
	Listen         string   `yaml:"listen"`
	DBPath         string   `yaml:"db_path"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"KRU_ALLOWED_ORIGINS" envSeparator:","`

	AI        AIConfig           `yaml:"ai"`
	Redis     store.RedisConfig  `yaml:"redis"`
	Auth      AuthConfig         `yaml:"auth"`
	Cache     CacheConfig        `yaml:"cache"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Budget    BudgetConfig       `yaml:"budget"`
	Audit     models.AuditConfig `yaml:"audit"`
	Tracing   TracingConfig      `yaml:"tracing"`
}

// AIConfig configures the completion service client and cost model.
type AIConfig struct {
	APIKey          string        `yaml:"api_key" env:"KRU_OPENAI_API_KEY"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model" env:"KRU_OPENAI_MODEL"`
	MaxTokens       int           `yaml:"max_tokens" env:"KRU_OPENAI_MAX_TOKENS"`
	Temperature     float64       `yaml:"temperature" env:"KRU_OPENAI_TEMPERATURE"`
	Timeout         time.Duration `yaml:"timeout"`
	CostPer1KTokens float64       `yaml:"cost_per_1k_tokens"`
}

// AuthConfig configures token verification and session lifetime.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"KRU_JWT_SECRET"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// CacheConfig controls the AI response cache.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	TTL          time.Duration `yaml:"ttl"`
	LocalEntries int64         `yaml:"local_entries"`
}

// RateLimitConfig controls the per-client window and the local gate.
type RateLimitConfig struct {
	Max       int64         `yaml:"max"`
	Window    time.Duration `yaml:"window"`
	GateRPS   float64       `yaml:"gate_rps"`
	GateBurst int           `yaml:"gate_burst"`
}

// BudgetConfig controls token budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "kru.db",
		AI: AIConfig{
			BaseURL:         "https://api.openai.com",
			Model:           "gpt-4",
			MaxTokens:       2000,
			Temperature:     0.7,
			Timeout:         30 * time.Second,
			CostPer1KTokens: 0.03,
		},
		Redis: store.RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "kru:",
		},
		Auth: AuthConfig{
			SessionTTL: time.Hour,
		},
		Cache: CacheConfig{
			Enabled:      true,
			TTL:          time.Hour,
			LocalEntries: 1024,
		},
		RateLimit: RateLimitConfig{
			Max:       100,
			Window:    15 * time.Minute,
			GateRPS:   200,
			GateBurst: 400,
		},
		Audit: models.AuditConfig{
			RetentionDays: 30,
			MaxBodySize:   8192,
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
	}
}

// Load reads a YAML config file, expands ${VAR} references, and applies
// KRU_* environment overrides. An empty path skips the file and uses
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}
