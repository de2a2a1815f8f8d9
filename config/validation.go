package config

import (
	"fmt"
	"net/url"
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

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	lines := make([]string, len(e))
	for i, v := range e {
		lines[i] = v.Error()
	}
	return strings.Join(lines, "\n")
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors

	u, err := url.Parse(cfg.APIBaseURL)
	if cfg.APIBaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Field: "API_BASE_URL", Message: "must be an absolute URL"})
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "API_TIMEOUT", Message: "must be positive"})
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "API_RATE_LIMIT", Message: "must not be negative"})
	}
	if cfg.ServerPort == "" {
		errs = append(errs, ValidationError{Field: "SERVER_PORT", Message: "is required"})
	}
	if cfg.DashboardInterval <= 0 {
		errs = append(errs, ValidationError{Field: "DASHBOARD_INTERVAL", Message: "must be positive"})
	}
	if cfg.FeedSize <= 0 {
		errs = append(errs, ValidationError{Field: "DASHBOARD_FEED_SIZE", Message: "must be positive"})
	}

	switch cfg.SessionBackend {
	case SessionMemory:
	case SessionSQLite:
		if cfg.SQLitePath == "" {
			errs = append(errs, ValidationError{Field: "SQLITE_PATH", Message: "is required for the sqlite session backend"})
		}
	case SessionPostgres:
		for field, v := range map[string]string{
			"DB_HOST": cfg.DBHost,
			"DB_USER": cfg.DBUser,
			"DB_NAME": cfg.DBName,
		} {
			if v == "" {
				errs = append(errs, ValidationError{Field: field, Message: "is required for the postgres session backend"})
			}
		}
		if cfg.DBPassword == "" {
			field := "db_password secret"
			if cfg.Env.Local() {
				field = "DB_PASSWORD"
			}
			errs = append(errs, ValidationError{Field: field, Message: "is required for the postgres session backend"})
		}
	case SessionRedis:
		if cfg.RedisURL == "" && cfg.RedisHost == "" {
			errs = append(errs, ValidationError{Field: "REDIS_URL", Message: "REDIS_URL or REDIS_HOST is required for the redis session backend"})
		}
	default:
		errs = append(errs, ValidationError{Field: "SESSION_BACKEND", Message: fmt.Sprintf("unknown backend %q", cfg.SessionBackend)})
	}

	if cfg.Env == Production && strings.HasPrefix(cfg.APIBaseURL, "http://localhost") {
		errs = append(errs, ValidationError{Field: "API_BASE_URL", Message: "must not point at localhost in production"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
