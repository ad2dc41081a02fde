// Package config assembles service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence (lowest first).
// Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"airroutes/internal/ingest"
	"airroutes/internal/storage"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Storage   storage.Config  `yaml:"storage"`
	Events    EventsConfig    `yaml:"events"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// API key auth is enabled when APIKeys is non-empty.
	APIKeys []string `yaml:"api_keys"`

	// Requests per second across all clients; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=0"`

	CORSOrigin string `yaml:"cors_origin"`
}

// DataConfig selects where the reference dataset is loaded from.
type DataConfig struct {
	Source string       `yaml:"source" validate:"oneof=files sqlite postgres"`
	Dir    string       `yaml:"dir"`
	Files  ingest.Paths `yaml:"files"` // Per-file overrides of Dir.
}

// EventsConfig configures change-event publishing. Disabled when NATSURL is empty.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Prefix  string `yaml:"prefix"`
}

// AnalyticsConfig configures the ClickHouse search log.
type AnalyticsConfig struct {
	Enabled      bool `yaml:"enabled"`
	BatchSize    int  `yaml:"batch_size" validate:"gte=0"`
	FlushSeconds int  `yaml:"flush_seconds" validate:"gte=0"`
}

// QueryConfig tunes the query engine.
type QueryConfig struct {
	HopPolicy string `yaml:"hop_policy" validate:"oneof=collect last-seen"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:       8080,
			RateBurst:  20,
			CORSOrigin: "*",
		},
		Data: DataConfig{
			Source: storage.BackendFiles,
			Dir:    "data",
		},
		Storage: storage.DefaultConfig(),
		Events: EventsConfig{
			Prefix: "airroutes",
		},
		Analytics: AnalyticsConfig{
			BatchSize:    500,
			FlushSeconds: 5,
		},
		Query: QueryConfig{
			HopPolicy: "collect",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "CONSOLE",
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatasetPaths resolves the dataset file locations, applying per-file overrides.
func (c Config) DatasetPaths() ingest.Paths {
	p := ingest.DefaultPaths(c.Data.Dir)
	if c.Data.Files.Airlines != "" {
		p.Airlines = c.Data.Files.Airlines
	}
	if c.Data.Files.Airports != "" {
		p.Airports = c.Data.Files.Airports
	}
	if c.Data.Files.Routes != "" {
		p.Routes = c.Data.Files.Routes
	}
	return p
}

func (c *Config) applyEnv() {
	c.Server.Port = envOrDefaultInt("PORT", c.Server.Port)
	if keys := os.Getenv("API_KEYS"); keys != "" {
		c.Server.APIKeys = splitList(keys)
	}
	c.Server.RateLimit = envOrDefaultFloat("RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateBurst = envOrDefaultInt("RATE_BURST", c.Server.RateBurst)
	c.Server.CORSOrigin = envOrDefault("CORS_ORIGIN", c.Server.CORSOrigin)

	c.Data.Source = envOrDefault("DATA_SOURCE", c.Data.Source)
	c.Data.Dir = envOrDefault("DATA_DIR", c.Data.Dir)

	c.Storage.SQLitePath = envOrDefault("SQLITE_PATH", c.Storage.SQLitePath)

	pg := &c.Storage.Postgres
	pg.Host = envOrDefault("POSTGRES_HOST", pg.Host)
	pg.Port = envOrDefaultInt("POSTGRES_PORT", pg.Port)
	pg.Database = envOrDefault("POSTGRES_DATABASE", pg.Database)
	pg.User = envOrDefault("POSTGRES_USER", pg.User)
	pg.Password = envOrDefault("POSTGRES_PASSWORD", pg.Password)

	ch := &c.Storage.ClickHouse
	ch.Host = envOrDefault("CLICKHOUSE_HOST", ch.Host)
	ch.Port = envOrDefaultInt("CLICKHOUSE_PORT", ch.Port)
	ch.Database = envOrDefault("CLICKHOUSE_DATABASE", ch.Database)
	ch.User = envOrDefault("CLICKHOUSE_USER", ch.User)
	ch.Password = envOrDefault("CLICKHOUSE_PASSWORD", ch.Password)

	c.Analytics.Enabled = envOrDefaultBool("ANALYTICS_ENABLED", c.Analytics.Enabled)

	c.Events.NATSURL = envOrDefault("NATS_URL", c.Events.NATSURL)
	c.Events.Prefix = envOrDefault("NATS_PREFIX", c.Events.Prefix)

	c.Query.HopPolicy = envOrDefault("HOP_POLICY", c.Query.HopPolicy)

	c.Logging.Level = envOrDefault("LOGGING_LEVEL", c.Logging.Level)
	c.Logging.Format = envOrDefault("LOGGING_FORMAT", c.Logging.Format)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
