// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Grader    GraderConfig    `mapstructure:"grader"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed"`
	Places    PlacesConfig    `mapstructure:"places"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// GraderConfig governs the scan pipeline.
type GraderConfig struct {
	Concurrency        int    `mapstructure:"concurrency"`
	QueueDepth         int    `mapstructure:"queue_depth"`
	ScanTimeoutSeconds int    `mapstructure:"scan_timeout_seconds"`
	Topic              string `mapstructure:"topic"`
	UserAgent          string `mapstructure:"user_agent"`
}

// BrowserConfig configures the headless browser subsystem.
type BrowserConfig struct {
	MaxPages          int `mapstructure:"max_pages"`
	NavTimeoutSeconds int `mapstructure:"nav_timeout_seconds"`
	ViewportWidth     int `mapstructure:"viewport_width"`
	ViewportHeight    int `mapstructure:"viewport_height"`
}

// PageSpeedConfig configures the PageSpeed Insights client.
type PageSpeedConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PlacesConfig configures the Places API client, shared by the profile
// analyzer and restaurant search.
type PlacesConfig struct {
	SearchEndpoint  string `mapstructure:"search_endpoint"`
	DetailsEndpoint string `mapstructure:"details_endpoint"`
	APIKey          string `mapstructure:"api_key"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// StorageConfig selects the evidence backend for screenshots.
type StorageConfig struct {
	// Backend is one of "memory", "local", "gcs".
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores.
type DBConfig struct {
	DSN        string `mapstructure:"dsn"`
	ScansTable string `mapstructure:"scans_table"`
	LeadsTable string `mapstructure:"leads_table"`
	MaxConns   int32  `mapstructure:"max_conns"`
	MinConns   int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("grader.concurrency", 4)
	v.SetDefault("grader.queue_depth", 64)
	v.SetDefault("grader.scan_timeout_seconds", 300)
	v.SetDefault("grader.user_agent", "restaurant-grader-bot/0.1")
	v.SetDefault("browser.max_pages", 4)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.viewport_width", 375)
	v.SetDefault("browser.viewport_height", 667)
	v.SetDefault("pagespeed.timeout_seconds", 30)
	v.SetDefault("places.timeout_seconds", 15)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("db.scans_table", "scans")
	v.SetDefault("db.leads_table", "leads")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Grader.Concurrency <= 0 {
		return fmt.Errorf("grader.concurrency must be > 0")
	}
	if c.Browser.MaxPages <= 0 {
		return fmt.Errorf("browser.max_pages must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "memory":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	return nil
}

// ScanTimeout converts the configured scan budget into a duration.
func (c Config) ScanTimeout() time.Duration {
	return time.Duration(c.Grader.ScanTimeoutSeconds) * time.Second
}

// ServerTimeout converts the HTTP request budget into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
