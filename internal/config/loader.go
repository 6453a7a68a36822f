package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Load reads the configuration. path may be empty, in which case
// PETCORE_CONFIG and then the default path are tried; a missing default
// file is not an error. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	source := ""
	if path != "" {
		source = "--config"
	} else if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		path, source = envPath, ConfigPathEnvVar
	} else if p, err := GetDefaultConfigPath(); err == nil {
		path = p
	}
	return load(path, source)
}

// LoadFrom reads config from a specific file, which must exist.
func LoadFrom(path string) (*Config, error) {
	return load(path, "--config")
}

// load reads path over the defaults. source names where an explicit path came
// from; an empty source marks the default path, which may be missing.
func load(path, source string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if path != "" {
		present, err := checkReadable(path, source)
		if err != nil {
			return nil, err
		}
		if present {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, &InvalidConfigError{
					Path:    path,
					Message: fmt.Sprintf("YAML parse error: %v", err),
					Hint:    "if 'config init --force' replaced it, the previous file is " + path + ".bak",
				}
			}
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("failed to decode configuration: %v", err),
			Hint:    "Check value types (durations like \"30s\", numbers without quotes)",
		}
	}

	if err := cfg.Validate(); err != nil {
		var invalid *InvalidConfigError
		if errors.As(err, &invalid) {
			invalid.Path = path
		}
		return nil, err
	}

	return cfg, nil
}

// checkReadable reports whether path exists and can be read. A missing file
// is an error only when it was named explicitly.
func checkReadable(path, source string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if source == "" {
				return false, nil
			}
			return false, &ConfigNotFoundError{Path: path, Source: source}
		}
		return false, fmt.Errorf("failed to access config: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return false, &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return false, fmt.Errorf("failed to read config: %w", err)
	}
	f.Close()
	return true, nil
}

// envSections are the top-level config keys reachable from the environment.
var envSections = map[string]bool{
	"storage": true, "cache": true, "governor": true, "inference": true,
	"enrich": true, "batch": true, "search": true, "learning": true,
	"source": true, "logging": true, "metrics": true,
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - PETCORE_GOVERNOR_DAILY_BUDGET -> governor.daily_budget
//   - PETCORE_INFERENCE_API_KEY -> inference.api_key
//   - PETCORE_CACHE_REDIS_ADDR -> cache.redis.addr
//
// Variables outside a known section (PETCORE_CONFIG) are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	section, rest, ok := strings.Cut(key, "_")
	if !ok || !envSections[section] || rest == "" {
		return ""
	}

	if section == "cache" {
		if sub, ok := strings.CutPrefix(rest, "redis_"); ok {
			return "cache.redis." + sub
		}
	}
	return section + "." + rest
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default: // unix-like
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails checks file ownership and permissions
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return "" // Not applicable on Windows
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
