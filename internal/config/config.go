/*
Package config loads open-pet-platform configuration.

Configuration is layered with koanf: built-in defaults, then an optional YAML
file (~/.open-pet-platform/config.yaml by default), then PETCORE_* environment
variables. The merged result is validated before use.

Example file:

	governor:
	  hourly_request_cap: 100
	  daily_budget: 1.5
	inference:
	  chat_model: gpt-4o-mini
	cache:
	  backend: redis
	  redis:
	    addr: localhost:6379
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "PETCORE_CONFIG"

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PETCORE_"

// Config represents the root configuration structure.
type Config struct {
	Storage   StorageConfig   `koanf:"storage"`
	Cache     CacheConfig     `koanf:"cache"`
	Governor  GovernorConfig  `koanf:"governor"`
	Inference InferenceConfig `koanf:"inference"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	Batch     BatchConfig     `koanf:"batch"`
	Search    SearchConfig    `koanf:"search"`
	Learning  LearningConfig  `koanf:"learning"`
	Source    SourceConfig    `koanf:"source"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	// Path is the database file. Empty selects ~/.open-pet-platform/petcore.db.
	Path string `koanf:"path"`

	// Disabled runs without durable storage.
	Disabled bool `koanf:"disabled"`
}

// CacheConfig selects the cache backend and TTLs.
type CacheConfig struct {
	// Backend is sqlite, redis or memory.
	Backend       string      `koanf:"backend" validate:"oneof=sqlite redis memory"`
	LocalCapacity int         `koanf:"local_capacity" validate:"gte=0"`
	Redis         RedisConfig `koanf:"redis"`

	// TTLs per category. Zero keeps an entry indefinitely.
	BioTTL            time.Duration `koanf:"bio_ttl" validate:"gte=0"`
	RecommendationTTL time.Duration `koanf:"recommendation_ttl" validate:"gte=0"`
	ChatTTL           time.Duration `koanf:"chat_ttl" validate:"gte=0"`
	ImageTTL          time.Duration `koanf:"image_ttl" validate:"gte=0"`
}

// RedisConfig configures the optional Redis cache backend.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
	Prefix   string `koanf:"prefix"`
}

// GovernorConfig bounds paid inference.
type GovernorConfig struct {
	HourlyRequestCap  int                      `koanf:"hourly_request_cap" validate:"gte=0"`
	DailyBudget       float64                  `koanf:"daily_budget" validate:"gte=0"`
	EstimatedCallCost float64                  `koanf:"estimated_call_cost" validate:"gte=0"`
	DefaultPricing    PricingConfig            `koanf:"default_pricing"`
	Pricing           map[string]PricingConfig `koanf:"pricing" validate:"dive"`
}

// PricingConfig is a per-model token price in USD.
type PricingConfig struct {
	InputPer1K  float64 `koanf:"input_per_1k" validate:"gte=0"`
	OutputPer1K float64 `koanf:"output_per_1k" validate:"gte=0"`
}

// InferenceConfig configures the OpenAI-compatible client.
type InferenceConfig struct {
	// APIKey enables paid inference. Without it every call degrades.
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	ChatModel      string `koanf:"chat_model" validate:"required"`
	VisionModel    string `koanf:"vision_model" validate:"required"`
	EmbeddingModel string `koanf:"embedding_model" validate:"required"`

	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int           `koanf:"burst" validate:"gte=0"`

	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio" validate:"gt=0,lte=1"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout" validate:"gt=0"`
}

// EnrichConfig tunes the orchestrator.
type EnrichConfig struct {
	SerializePerItem bool          `koanf:"serialize_per_item"`
	CallTimeout      time.Duration `koanf:"call_timeout" validate:"gt=0"`
	Temperature      float32       `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens        int           `koanf:"max_tokens" validate:"gt=0"`

	// AsyncWrites sends durable content writes through the background writer.
	AsyncWrites  bool          `koanf:"async_writes"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
}

// BatchConfig holds batch defaults.
type BatchConfig struct {
	ItemLimit       int           `koanf:"item_limit" validate:"gt=0,lte=500"`
	ChunkSize       int           `koanf:"chunk_size" validate:"gt=0"`
	BudgetThreshold float64       `koanf:"budget_threshold" validate:"gt=0,lte=1"`
	Delay           time.Duration `koanf:"delay" validate:"gte=0"`
	AIDelay         time.Duration `koanf:"ai_delay" validate:"gte=0"`
}

// SearchConfig configures the keyword index.
type SearchConfig struct {
	// IndexPath persists the keyword index. Empty keeps it in memory.
	IndexPath string `koanf:"index_path"`
}

// LearningConfig configures preference profile storage.
type LearningConfig struct {
	// Store is file or badger.
	Store   string  `koanf:"store" validate:"oneof=file badger"`
	Dir     string  `koanf:"dir"`
	Epsilon float64 `koanf:"epsilon" validate:"gte=0,lte=1"`
}

// SourceConfig locates item records.
type SourceConfig struct {
	// ItemsFile is a JSON array of tagged upstream records.
	ItemsFile string `koanf:"items_file"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// TextfilePath receives Prometheus metrics after batch runs when set.
	TextfilePath string `koanf:"textfile_path"`
}

// DataDir returns ~/.open-pet-platform.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".open-pet-platform"), nil
}

// GetDefaultConfigPath returns the path to ~/.open-pet-platform/config.yaml.
func GetDefaultConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend:           "sqlite",
			LocalCapacity:     1000,
			Redis:             RedisConfig{Addr: "localhost:6379", Prefix: "petcore:"},
			BioTTL:            7 * 24 * time.Hour,
			RecommendationTTL: time.Hour,
			ChatTTL:           24 * time.Hour,
			ImageTTL:          7 * 24 * time.Hour,
		},
		Governor: GovernorConfig{
			HourlyRequestCap:  100,
			DailyBudget:       1.0,
			EstimatedCallCost: 0.001,
			DefaultPricing:    PricingConfig{InputPer1K: 0.00015, OutputPer1K: 0.0006},
			Pricing: map[string]PricingConfig{
				"gpt-4o-mini":            {InputPer1K: 0.00015, OutputPer1K: 0.0006},
				"gpt-4o":                 {InputPer1K: 0.0025, OutputPer1K: 0.01},
				"text-embedding-3-small": {InputPer1K: 0.00002, OutputPer1K: 0},
			},
		},
		Inference: InferenceConfig{
			ChatModel:           "gpt-4o-mini",
			VisionModel:         "gpt-4o-mini",
			EmbeddingModel:      "text-embedding-3-small",
			Timeout:             30 * time.Second,
			RequestsPerSecond:   2,
			Burst:               4,
			BreakerFailureRatio: 0.6,
			BreakerMinRequests:  5,
			BreakerOpenTimeout:  time.Minute,
		},
		Enrich: EnrichConfig{
			SerializePerItem: true,
			CallTimeout:      30 * time.Second,
			Temperature:      0.7,
			MaxTokens:        400,
			AsyncWrites:      true,
			WriteTimeout:     5 * time.Second,
		},
		Batch: BatchConfig{
			ItemLimit:       500,
			ChunkSize:       10,
			BudgetThreshold: 0.5,
			Delay:           500 * time.Millisecond,
			AIDelay:         2 * time.Second,
		},
		Learning: LearningConfig{
			Store:   "file",
			Epsilon: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
