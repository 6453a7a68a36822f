package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and cross-field rules. Failures are
// reported as a single *InvalidConfigError listing every problem.
func (c *Config) Validate() error {
	var problems []string

	if err := getValidator().Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return fmt.Errorf("failed to validate config: %w", err)
		}
		for _, fe := range validationErrs {
			problems = append(problems, describe(fe))
		}
	}

	if c.Cache.Backend == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		problems = append(problems, "cache.redis.addr is required when cache.backend is redis")
	}
	if c.Storage.Disabled && c.Cache.Backend == "sqlite" {
		problems = append(problems, "cache.backend sqlite requires storage; use memory or redis when storage.disabled is set")
	}

	if len(problems) == 0 {
		return nil
	}
	return &InvalidConfigError{
		Message: strings.Join(problems, "\n"),
		Hint:    "Fix the listed values in the config file or PETCORE_* environment",
	}
}

// describe renders a field error with its koanf-style path.
func describe(fe validator.FieldError) string {
	path := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", path, fe.Param(), fe.Value())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", path, fe.Tag(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", path)
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

// fieldPath turns "Config.Governor.DailyBudget" into "governor.daily_budget".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if prevLower || (prevUpper && nextLower) {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
