package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Logcomex       LogcomexConfig       `yaml:"logcomex"`
	Ingest         IngestConfig         `yaml:"ingest"`
	Summary        SummaryConfig        `yaml:"summary"`
	Classification ClassificationConfig `yaml:"classification"`
	Archive        ArchiveConfig        `yaml:"archive"`
	Webhook        WebhookConfig        `yaml:"webhook"`
	Log            LogConfig            `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the configured lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the Redis connection used for ingest locks. An empty
// URL disables Redis; locks then fall back to Postgres advisory locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LogcomexConfig holds Logcomex BI API configuration
type LogcomexConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	ProductSignature string `yaml:"product_signature"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	PageDelayMillis  int    `yaml:"page_delay_ms"`
	MaxPages         int    `yaml:"max_pages"`
}

// Timeout returns the per-page request timeout as a duration
func (c LogcomexConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageDelay returns the pause between page requests as a duration
func (c LogcomexConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMillis) * time.Millisecond
}

// IngestConfig holds ingestion defaults
type IngestConfig struct {
	DefaultImporter   string `yaml:"default_importer"`
	DefaultMonthsBack int    `yaml:"default_months_back"`
	LockTTLSeconds    int    `yaml:"lock_ttl_seconds"`
}

// LockTTL returns the per-importer lock TTL as a duration
func (c IngestConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// SummaryConfig holds summary regeneration settings
type SummaryConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// ClassificationConfig points at the label and scoring tables. An empty
// path uses the built-in tables.
type ClassificationConfig struct {
	TablesPath string `yaml:"tables_path"`
}

// ArchiveConfig holds raw page archiving settings (S3)
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// WebhookConfig holds summary notification targets
type WebhookConfig struct {
	URLs           []string `yaml:"urls"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     int      `yaml:"max_retries"`
}

// Timeout returns the delivery timeout as a duration
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogConfig holds logger settings
type LogConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Logcomex.BaseURL == "" {
		cfg.Logcomex.BaseURL = "https://bi-api.logcomex.io/api/v1/details"
	}
	if cfg.Logcomex.ProductSignature == "" {
		cfg.Logcomex.ProductSignature = "mexico-import-logistic"
	}
	if cfg.Logcomex.TimeoutSeconds == 0 {
		cfg.Logcomex.TimeoutSeconds = 30
	}
	if cfg.Logcomex.PageDelayMillis == 0 {
		cfg.Logcomex.PageDelayMillis = 500
	}
	if cfg.Logcomex.MaxPages == 0 {
		cfg.Logcomex.MaxPages = 1000
	}
	if cfg.Ingest.DefaultMonthsBack == 0 {
		cfg.Ingest.DefaultMonthsBack = 6
	}
	if cfg.Ingest.LockTTLSeconds == 0 {
		cfg.Ingest.LockTTLSeconds = 900
	}
	if cfg.Summary.Concurrency == 0 {
		cfg.Summary.Concurrency = 10
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "logcomex/raw"
	}
	if cfg.Archive.S3Region == "" {
		cfg.Archive.S3Region = "us-west-2"
	}
	if cfg.Webhook.TimeoutSeconds == 0 {
		cfg.Webhook.TimeoutSeconds = 30
	}
	if cfg.Webhook.MaxRetries == 0 {
		cfg.Webhook.MaxRetries = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.URL = dsn
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if apiKey := os.Getenv("LOGCOMEX_API_KEY"); apiKey != "" {
		cfg.Logcomex.APIKey = apiKey
	}
	if baseURL := os.Getenv("LOGCOMEX_BASE_URL"); baseURL != "" {
		cfg.Logcomex.BaseURL = baseURL
	}
	if sig := os.Getenv("LOGCOMEX_PRODUCT_SIGNATURE"); sig != "" {
		cfg.Logcomex.ProductSignature = sig
	}
	if importer := os.Getenv("DEFAULT_IMPORTER_NAME"); importer != "" {
		cfg.Ingest.DefaultImporter = importer
	}
	if months := os.Getenv("DEFAULT_MONTHS_BACK"); months != "" {
		if m, err := strconv.Atoi(months); err == nil && m > 0 {
			cfg.Ingest.DefaultMonthsBack = m
		}
	}
	if n := os.Getenv("SUMMARY_CONCURRENCY"); n != "" {
		if c, err := strconv.Atoi(n); err == nil && c > 0 {
			cfg.Summary.Concurrency = c
		}
	}
	if path := os.Getenv("CLASSIFICATION_TABLES"); path != "" {
		cfg.Classification.TablesPath = path
	}
	if bucket := os.Getenv("ARCHIVE_S3_BUCKET"); bucket != "" {
		cfg.Archive.S3Bucket = bucket
		cfg.Archive.Enabled = true
	}
	if region := os.Getenv("ARCHIVE_S3_REGION"); region != "" {
		cfg.Archive.S3Region = region
	}
	if accessKey := os.Getenv("ARCHIVE_AWS_ACCESS_KEY"); accessKey != "" {
		cfg.Archive.AccessKey = accessKey
	}
	if secretKey := os.Getenv("ARCHIVE_AWS_SECRET_KEY"); secretKey != "" {
		cfg.Archive.SecretKey = secretKey
	}
	if urls := os.Getenv("SUMMARY_WEBHOOK_URLS"); urls != "" {
		cfg.Webhook.URLs = splitList(urls)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
