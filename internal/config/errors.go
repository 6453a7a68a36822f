package config

import (
	"fmt"
	"io/fs"
	"strings"
)

// PermissionError reports a config file or directory the process cannot
// read or write.
type PermissionError struct {
	Path    string
	Op      string // "read" or "write"
	Fix     string
	Details string
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "permission denied (cannot %s config): %s\n", e.Op, e.Path)
	if e.Details != "" {
		b.WriteString(e.Details + "\n")
	}
	b.WriteString("fix: " + e.Fix)
	return b.String()
}

func (e *PermissionError) Unwrap() error { return fs.ErrPermission }

// ConfigNotFoundError is returned when a config file named explicitly, by
// --config or PETCORE_CONFIG, does not exist. A missing default file is not
// an error.
type ConfigNotFoundError struct {
	Path string
	// Source names where the path came from, e.g. "--config".
	Source string
}

func (e *ConfigNotFoundError) Error() string {
	from := ""
	if e.Source != "" {
		from = " (from " + e.Source + ")"
	}
	return fmt.Sprintf("config file not found: %s%s\n"+
		"create it with 'open-pet-platform config init --config %s',\n"+
		"or unset %s and drop --config to run on built-in defaults and %s* overrides",
		e.Path, from, e.Path, ConfigPathEnvVar, EnvPrefix)
}

func (e *ConfigNotFoundError) Unwrap() error { return fs.ErrNotExist }

// InvalidConfigError reports a config file that cannot be parsed or decoded,
// or whose values fail validation.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
}

func (e *InvalidConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid config")
	if e.Path != "" {
		b.WriteString(": " + e.Path)
	}
	if e.Message != "" {
		b.WriteString("\n" + e.Message)
	}
	if e.Hint != "" {
		b.WriteString("\nhint: " + e.Hint)
	}
	return b.String()
}
