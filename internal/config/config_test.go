package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("default cache backend should be sqlite, got %q", cfg.Cache.Backend)
	}
	if cfg.Governor.HourlyRequestCap != 100 {
		t.Errorf("default hourly cap should be 100, got %d", cfg.Governor.HourlyRequestCap)
	}
	if cfg.Batch.ItemLimit != 500 || cfg.Batch.ChunkSize != 10 {
		t.Errorf("unexpected batch defaults: %+v", cfg.Batch)
	}
	if cfg.Batch.BudgetThreshold != 0.5 {
		t.Errorf("default batch threshold should be 0.5, got %f", cfg.Batch.BudgetThreshold)
	}
	if cfg.Cache.BioTTL != 7*24*time.Hour {
		t.Errorf("default bio TTL should be 7 days, got %s", cfg.Cache.BioTTL)
	}
	if !cfg.Enrich.SerializePerItem {
		t.Error("per-item serialization should default to on")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := GetDefaultConfigPath()
	if err != nil {
		t.Fatalf("GetDefaultConfigPath failed: %v", err)
	}
	if !strings.HasSuffix(path, ".open-pet-platform/config.yaml") {
		t.Errorf("unexpected default path %q", path)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	cases := map[string]string{
		"PETCORE_GOVERNOR_DAILY_BUDGET": "governor.daily_budget",
		"PETCORE_INFERENCE_API_KEY":     "inference.api_key",
		"PETCORE_CACHE_REDIS_ADDR":      "cache.redis.addr",
		"PETCORE_CACHE_BIO_TTL":         "cache.bio_ttl",
		"PETCORE_LOGGING_LEVEL":         "logging.level",
		"PETCORE_CONFIG":                "",
		"PETCORE_UNKNOWN_THING":         "",
		"PETCORE_BATCH":                 "",
	}

	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
