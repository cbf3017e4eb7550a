package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, ValidationError{"database.driver", fmt.Sprintf("unsupported driver %q", cfg.Database.Driver)})
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, ValidationError{"database.dsn", "is required"})
	}

	switch cfg.Content.Provider {
	case "local":
		if cfg.Content.Root == "" {
			errs = append(errs, ValidationError{"content.root", "is required for the local provider"})
		}
	case "s3":
		if cfg.Content.S3Bucket == "" {
			errs = append(errs, ValidationError{"content.s3_bucket", "is required for the s3 provider"})
		}
	default:
		errs = append(errs, ValidationError{"content.provider", fmt.Sprintf("unsupported provider %q", cfg.Content.Provider)})
	}

	if cfg.Catalog.SearchLimit <= 0 {
		errs = append(errs, ValidationError{"catalog.search_limit", "must be positive"})
	}
	if cfg.Catalog.PantryLimit <= 0 {
		errs = append(errs, ValidationError{"catalog.pantry_limit", "must be positive"})
	}
	if cfg.Catalog.MaxQueryRunes <= 2 {
		errs = append(errs, ValidationError{"catalog.max_query_runes", "must be greater than 2"})
	}
	if cfg.Catalog.MaxMissing < 0 {
		errs = append(errs, ValidationError{"catalog.max_missing", "must not be negative"})
	}
	if cfg.LLM.Timeout <= 0 {
		errs = append(errs, ValidationError{"llm.timeout", "must be positive"})
	}
	if cfg.Batch.Attempts <= 0 {
		errs = append(errs, ValidationError{"batch.attempts", "must be positive"})
	}

	if GetEnvironment() == Production && cfg.LLM.APIKey == "" {
		errs = append(errs, ValidationError{"llm.api_key", "llm_api_key secret is required in production"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
