// Package config loads and validates scanner configuration via Viper.
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
	Logging   LoggingConfig   `mapstructure:"logging"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed"`
	Places    PlacesConfig    `mapstructure:"places"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	DB        DBConfig        `mapstructure:"db"`
	Evidence  EvidenceConfig  `mapstructure:"evidence"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// BrowserConfig governs the headless browser session.
type BrowserConfig struct {
	Headless       bool   `mapstructure:"headless"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
	UserAgent      string `mapstructure:"user_agent"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	OpTimeoutSec   int    `mapstructure:"op_timeout_seconds"`
}

// ProbeConfig controls the website probe and pre-flight checks.
type ProbeConfig struct {
	AvailabilityTimeoutSec int  `mapstructure:"availability_timeout_seconds"`
	CaptureScreenshots     bool `mapstructure:"capture_screenshots"`
}

// PageSpeedConfig configures the PageSpeed Insights client.
type PageSpeedConfig struct {
	APIKey     string  `mapstructure:"api_key"`
	Endpoint   string  `mapstructure:"endpoint"`
	QPS        float64 `mapstructure:"qps"`
	TimeoutSec int     `mapstructure:"timeout_seconds"`
}

// PlacesConfig configures the directory-profile and reviews client.
type PlacesConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

// RunnerConfig governs background scan execution and retries.
type RunnerConfig struct {
	Workers        int `mapstructure:"workers"`
	QueueDepth     int `mapstructure:"queue_depth"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	BackoffSeconds int `mapstructure:"backoff_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// EvidenceConfig sets where probe screenshots are persisted.
type EvidenceConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for failure/completion notifications.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCANNER")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 375)
	v.SetDefault("browser.viewport_height", 667)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1")
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.op_timeout_seconds", 15)
	v.SetDefault("probe.availability_timeout_seconds", 10)
	v.SetDefault("probe.capture_screenshots", true)
	v.SetDefault("pagespeed.endpoint", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("pagespeed.qps", 1.0)
	v.SetDefault("pagespeed.timeout_seconds", 30)
	v.SetDefault("places.endpoint", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("places.timeout_seconds", 15)
	v.SetDefault("runner.workers", 2)
	v.SetDefault("runner.queue_depth", 64)
	v.SetDefault("runner.max_attempts", 3)
	v.SetDefault("runner.backoff_seconds", 60)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("evidence.provider", "local")
	v.SetDefault("evidence.base_dir", "/tmp/presence-scanner/evidence")
	v.SetDefault("evidence.prefix", "screenshots")
	v.SetDefault("notify.provider", "log")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be > 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Runner.Workers <= 0 {
		return fmt.Errorf("runner.workers must be > 0")
	}
	if c.Runner.MaxAttempts <= 0 {
		return fmt.Errorf("runner.max_attempts must be > 0")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.Evidence.Provider == "gcs" && c.Evidence.GCSBucket == "" {
		return fmt.Errorf("evidence.gcs_bucket must be set when evidence.provider is gcs")
	}
	if c.Notify.Provider == "pubsub" && (c.Notify.ProjectID == "" || c.Notify.TopicName == "") {
		return fmt.Errorf("notify.project_id and notify.topic_name must be set when notify.provider is pubsub")
	}
	return nil
}

// NavTimeout returns the page navigation budget.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// OpTimeout returns the budget for secondary page operations.
func (c BrowserConfig) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutSec) * time.Second
}

// Backoff returns the fixed delay between background attempts.
func (c RunnerConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}
