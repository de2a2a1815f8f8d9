package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session backends supported for persisted client state.
const (
	SessionMemory   = "memory"
	SessionSQLite   = "sqlite"
	SessionPostgres = "postgres"
	SessionRedis    = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment

	// Remote REST API
	APIBaseURL     string
	RequestTimeout time.Duration
	// RateLimit caps outbound requests per second; zero disables throttling.
	RateLimit float64

	// Gateway configuration
	ServerPort     string
	ServerHost     string
	AllowedOrigins []string

	// Persisted client state
	SessionBackend string
	SQLitePath     string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Media uploads
	S3Bucket  string
	AWSRegion string

	// Dashboard
	DashboardInterval time.Duration
	FeedSize          int
	BaselinePeriod    time.Duration
}

// fileConfig is the YAML overlay read from CONFIG_FILE.
type fileConfig struct {
	API struct {
		BaseURL   string  `yaml:"base_url"`
		Timeout   string  `yaml:"timeout"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"api"`
	Server struct {
		Host           string   `yaml:"host"`
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Session struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"session"`
	Dashboard struct {
		Interval       string `yaml:"interval"`
		FeedSize       int    `yaml:"feed_size"`
		BaselinePeriod string `yaml:"baseline_period"`
	} `yaml:"dashboard"`
	Media struct {
		Bucket string `yaml:"bucket"`
		Region string `yaml:"region"`
	} `yaml:"media"`
}

// Default returns the configuration used before any source is applied.
func Default() *Config {
	return &Config{
		Env:               Development,
		APIBaseURL:        "http://localhost:5500/api",
		RequestTimeout:    10 * time.Second,
		ServerPort:        "8080",
		ServerHost:        "localhost",
		AllowedOrigins:    []string{"http://localhost:5173"},
		SessionBackend:    SessionSQLite,
		SQLitePath:        "recipehub.db",
		DBPort:            "5432",
		DBSSLMode:         "disable",
		RedisPort:         "6379",
		DashboardInterval: 30 * time.Second,
		FeedSize:          10,
		BaselinePeriod:    24 * time.Hour,
	}
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := Default()
	cfg.Env = env

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	switch env {
	case CI:
		if err := loadCIConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load CI configuration: %w", err)
		}
	case Development, Test:
		if err := loadDevConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load development configuration: %w", err)
		}
	case Production:
		if err := loadProdConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load production configuration: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile applies the YAML overlay. Empty values leave defaults untouched.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, fc.API.BaseURL)
	if err := setDuration(&cfg.RequestTimeout, fc.API.Timeout); err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	if fc.API.RateLimit > 0 {
		cfg.RateLimit = fc.API.RateLimit
	}
	setString(&cfg.ServerHost, fc.Server.Host)
	setString(&cfg.ServerPort, fc.Server.Port)
	if len(fc.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.Server.AllowedOrigins
	}
	setString(&cfg.SessionBackend, fc.Session.Backend)
	setString(&cfg.SQLitePath, fc.Session.SQLitePath)
	if err := setDuration(&cfg.DashboardInterval, fc.Dashboard.Interval); err != nil {
		return fmt.Errorf("dashboard.interval: %w", err)
	}
	if err := setDuration(&cfg.BaselinePeriod, fc.Dashboard.BaselinePeriod); err != nil {
		return fmt.Errorf("dashboard.baseline_period: %w", err)
	}
	if fc.Dashboard.FeedSize > 0 {
		cfg.FeedSize = fc.Dashboard.FeedSize
	}
	setString(&cfg.S3Bucket, fc.Media.Bucket)
	setString(&cfg.AWSRegion, fc.Media.Region)
	return nil
}

// loadCIConfig loads configuration for CI environment using ONLY environment variables
func loadCIConfig(cfg *Config) error {
	if err := applyEnv(cfg); err != nil {
		return err
	}
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	return nil
}

// loadDevConfig loads configuration for development environment.
// A .env file is optional; environment variables win over it.
func loadDevConfig(cfg *Config) error {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	if err := applyEnv(cfg); err != nil {
		return err
	}
	cfg.DBPassword = firstNonEmpty(os.Getenv("DB_PASSWORD"), readSecret("db_password"))
	cfg.RedisPassword = firstNonEmpty(os.Getenv("REDIS_PASSWORD"), readSecret("redis_password"))
	return nil
}

// loadProdConfig loads configuration for production; credentials come from Docker secrets only
func loadProdConfig(cfg *Config) error {
	if err := applyEnv(cfg); err != nil {
		return err
	}
	cfg.DBUser = firstNonEmpty(readSecret("db_user"), cfg.DBUser)
	cfg.DBPassword = readSecret("db_password")
	cfg.RedisPassword = readSecret("redis_password")
	cfg.RedisURL = firstNonEmpty(readSecret("redis_url"), cfg.RedisURL)
	return nil
}

// applyEnv copies non-credential settings from the environment.
func applyEnv(cfg *Config) error {
	setString(&cfg.APIBaseURL, os.Getenv("API_BASE_URL"))
	if err := setDuration(&cfg.RequestTimeout, os.Getenv("API_TIMEOUT")); err != nil {
		return fmt.Errorf("API_TIMEOUT: %w", err)
	}
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		rl, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("API_RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = rl
	}

	setString(&cfg.ServerPort, os.Getenv("SERVER_PORT"))
	setString(&cfg.ServerHost, os.Getenv("SERVER_HOST"))
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	setString(&cfg.SessionBackend, os.Getenv("SESSION_BACKEND"))
	setString(&cfg.SQLitePath, os.Getenv("SQLITE_PATH"))

	setString(&cfg.DBHost, os.Getenv("DB_HOST"))
	setString(&cfg.DBPort, os.Getenv("DB_PORT"))
	setString(&cfg.DBUser, os.Getenv("DB_USER"))
	setString(&cfg.DBName, os.Getenv("DB_NAME"))
	setString(&cfg.DBSSLMode, os.Getenv("DB_SSL_MODE"))

	setString(&cfg.RedisHost, os.Getenv("REDIS_HOST"))
	setString(&cfg.RedisPort, os.Getenv("REDIS_PORT"))
	setString(&cfg.RedisURL, os.Getenv("REDIS_URL"))
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	setString(&cfg.S3Bucket, os.Getenv("S3_BUCKET_NAME"))
	setString(&cfg.AWSRegion, os.Getenv("AWS_REGION"))

	if err := setDuration(&cfg.DashboardInterval, os.Getenv("DASHBOARD_INTERVAL")); err != nil {
		return fmt.Errorf("DASHBOARD_INTERVAL: %w", err)
	}
	if err := setDuration(&cfg.BaselinePeriod, os.Getenv("DASHBOARD_BASELINE_PERIOD")); err != nil {
		return fmt.Errorf("DASHBOARD_BASELINE_PERIOD: %w", err)
	}
	if v := os.Getenv("DASHBOARD_FEED_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DASHBOARD_FEED_SIZE: %w", err)
		}
		cfg.FeedSize = n
	}
	return nil
}

// Addr returns the gateway listen address.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
