package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all keepsake configuration. Defaults come from Default();
// KEEPSAKE_* environment variables override individual fields.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	Review        ReviewConfig
	Consolidation ConsolidationConfig
	Retrieval     RetrievalConfig
}

type ServerConfig struct {
	Bind string `env:"KEEPSAKE_BIND"`
	Port int    `env:"KEEPSAKE_PORT"`
}

type DatabaseConfig struct {
	Path string `env:"KEEPSAKE_DB_PATH"`
}

type LLMConfig struct {
	Provider     string `env:"KEEPSAKE_LLM_PROVIDER"` // "anthropic", "ollama"
	Model        string `env:"KEEPSAKE_LLM_MODEL"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	OllamaURL    string `env:"KEEPSAKE_OLLAMA_URL"`
	OllamaModel  string `env:"KEEPSAKE_OLLAMA_MODEL"`
}

type ReviewConfig struct {
	IntervalMinutes int `env:"KEEPSAKE_REVIEW_INTERVAL_MINUTES"`
	DueAfterDays    int `env:"KEEPSAKE_REVIEW_DUE_AFTER_DAYS"`
	BatchSize       int `env:"KEEPSAKE_REVIEW_BATCH_SIZE"`
}

type ConsolidationConfig struct {
	Threshold    int `env:"KEEPSAKE_CONSOLIDATION_THRESHOLD"`
	IntervalDays int `env:"KEEPSAKE_ORGANIZE_INTERVAL_DAYS"`
}

type RetrievalConfig struct {
	Threshold float64 `env:"KEEPSAKE_RETRIEVAL_THRESHOLD"`
	MaxCount  int     `env:"KEEPSAKE_RETRIEVAL_MAX"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38880,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-haiku-4-5-20251001",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "llama3.2",
		},
		Review: ReviewConfig{
			IntervalMinutes: 30,
			DueAfterDays:    14,
			BatchSize:       20,
		},
		Consolidation: ConsolidationConfig{
			Threshold:    20,
			IntervalDays: 7,
		},
		Retrieval: RetrievalConfig{
			Threshold: 0.4,
			MaxCount:  5,
		},
	}
}

// Load returns defaults with environment overrides applied.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ReviewInterval returns the periodic review interval as a duration.
func (c *Config) ReviewInterval() time.Duration {
	if c.Review.IntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Review.IntervalMinutes) * time.Minute
}
