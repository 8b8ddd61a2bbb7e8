package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level kudos.yml configuration
type Config struct {
	Version  string `yaml:"version"`
	Instance string `yaml:"instance,omitempty"` // Redis key namespace, default "kudos"
	Listen   string `yaml:"listen,omitempty"`   // HTTP listen address, default ":8080"
	DataDir  string `yaml:"data_dir,omitempty"` // Board database directory, default "./data"

	Redis        RedisConfig        `yaml:"redis,omitempty"`
	YouTube      YouTubeConfig      `yaml:"youtube"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	Speech       SpeechConfig       `yaml:"speech"`
	Ingestion    IngestionConfig    `yaml:"ingestion,omitempty"`
	Verification VerificationConfig `yaml:"verification,omitempty"`
}

// RedisConfig specifies the Redis connection used for workflow state and
// screenshot blobs
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"` // default "localhost:6379"
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// YouTubeConfig specifies YouTube Data API access
type YouTubeConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // overridden by YOUTUBE_API_KEY
}

// GeminiConfig specifies Gemini model access for classification
type GeminiConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // overridden by GEMINI_API_KEY
	Model  string `yaml:"model,omitempty"`   // default "gemini-2.5-flash"
}

// SpeechConfig specifies the text-to-speech service
type SpeechConfig struct {
	BaseURL string `yaml:"base_url"`
}

// IngestionConfig specifies ingestion behavior
type IngestionConfig struct {
	// BackfillSince is the watermark the first ingestion run of a newly
	// registered video starts from, as a YYYY-MM-DD date (default "2020-01-01")
	BackfillSince string `yaml:"backfill_since,omitempty"`

	backfillSince time.Time
}

// VerificationConfig specifies screenshot verification behavior
type VerificationConfig struct {
	ApprovalTimeout string `yaml:"approval_timeout,omitempty"` // Go duration, default "1m"

	approvalTimeout time.Duration
}

// Validate performs strict validation on the configuration and applies
// defaults for the optional fields
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = "kudos"
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	// Required: API keys (from kudos.yml or environment)
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("youtube.api_key is required (or set YOUTUBE_API_KEY)")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (or set GEMINI_API_KEY)")
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}

	// Required: speech service
	if c.Speech.BaseURL == "" {
		return fmt.Errorf("speech.base_url is required")
	}

	if c.Ingestion.BackfillSince == "" {
		c.Ingestion.BackfillSince = "2020-01-01"
	}
	since, err := time.Parse("2006-01-02", c.Ingestion.BackfillSince)
	if err != nil {
		return fmt.Errorf("invalid ingestion.backfill_since: %s (expected YYYY-MM-DD)", c.Ingestion.BackfillSince)
	}
	c.Ingestion.backfillSince = since

	if c.Verification.ApprovalTimeout == "" {
		c.Verification.ApprovalTimeout = "1m"
	}
	timeout, err := time.ParseDuration(c.Verification.ApprovalTimeout)
	if err != nil {
		return fmt.Errorf("invalid verification.approval_timeout: %s", c.Verification.ApprovalTimeout)
	}
	if timeout <= 0 {
		return fmt.Errorf("verification.approval_timeout must be positive, got %s", c.Verification.ApprovalTimeout)
	}
	c.Verification.approvalTimeout = timeout

	return nil
}

// ApprovalTimeout returns the parsed verification timeout. Only valid after
// a successful Validate.
func (c *Config) ApprovalTimeout() time.Duration {
	return c.Verification.approvalTimeout
}

// BackfillSince returns the watermark a first-time video registration starts
// from. Only valid after a successful Validate.
func (c *Config) BackfillSince() time.Time {
	return c.Ingestion.backfillSince
}

// applyEnv overrides secrets from the environment so keys can stay out of
// kudos.yml
func (c *Config) applyEnv() {
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// Load reads and validates kudos.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
