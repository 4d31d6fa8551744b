// CLAUDE:SUMMARY YAML configuration of the bulkvis server: listen address, history store, session cookies, source defaults, rate limits; env overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/bulkvis/shield"
	"github.com/hazyhaar/bulkvis/source"
)

// Config holds the full bulkvis configuration.
type Config struct {
	Listen string `yaml:"listen"`

	// HistoryDB is the sqlite action history. Empty disables it.
	HistoryDB            string `yaml:"history_db"`
	HistoryRetentionDays int    `yaml:"history_retention_days"`

	Session SessionConfig `yaml:"session"`
	Source  source.Config `yaml:"source"`
	Plot    PlotConfig    `yaml:"plot"`

	// RateLimits maps "METHOD /path" to a per-client budget.
	RateLimits map[string]shield.Limit `yaml:"rate_limits"`

	MaxBodyKB int `yaml:"max_body_kb"`
}

// SessionConfig configures dashboard sessions.
type SessionConfig struct {
	// Secret signs session cookies. Empty means a random per-process secret.
	Secret        string        `yaml:"secret"`
	TTL           time.Duration `yaml:"ttl"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SecureCookies bool          `yaml:"secure_cookies"`
	CacheSize     int           `yaml:"cache_size"`
}

// PlotConfig sizes rendered plots.
type PlotConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:               ":8888",
		HistoryDB:            "var/bulkvis_history.db",
		HistoryRetentionDays: 30,
		Session: SessionConfig{
			TTL:         24 * time.Hour,
			IdleTimeout: 30 * time.Minute,
			CacheSize:   16,
		},
		Source: source.Config{
			Frequency:        4000,
			Stride:           30,
			ChannelTemplate:  "Channel_%d",
			MaxWindowSeconds: 1000,
			S3:               source.S3Config{Region: "us-east-1"},
		},
		Plot: PlotConfig{Width: 1200, Height: 500},
		RateLimits: map[string]shield.Limit{
			"POST /api/load":    {MaxRequests: 60, Window: time.Minute},
			"GET /api/download": {MaxRequests: 30, Window: time.Minute},
		},
		MaxBodyKB: 64,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables read through
// getenv: PORT, DATA_ROOT, AWS_REGION, AWS_ENDPOINT_URL, AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, BULKVIS_SESSION_SECRET, BULKVIS_HISTORY_DB.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := getenv("DATA_ROOT"); v != "" {
		c.Source.DataRoot = v
	}
	if v := getenv("AWS_REGION"); v != "" {
		c.Source.S3.Region = v
	}
	if v := getenv("AWS_ENDPOINT_URL"); v != "" {
		c.Source.S3.Endpoint = v
	}
	if v := getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Source.S3.AccessKeyID = v
	}
	if v := getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Source.S3.SecretAccessKey = v
	}
	if v := getenv("BULKVIS_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v, ok := lookup(getenv, "BULKVIS_HISTORY_DB"); ok {
		c.HistoryDB = v
	}
	if v := getenv("BULKVIS_FREQUENCY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Source.Frequency = f
		}
	}
}

// lookup treats "-" as an explicit empty value.
func lookup(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	switch v {
	case "":
		return "", false
	case "-":
		return "", true
	}
	return v, true
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.Source.Frequency <= 0 {
		return fmt.Errorf("source.frequency must be > 0")
	}
	if c.Source.Stride <= 0 {
		return fmt.Errorf("source.stride must be > 0")
	}
	if c.Source.MaxWindowSeconds < 0 {
		return fmt.Errorf("source.max_window_seconds must be >= 0")
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 bytes")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be > 0")
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot.width and plot.height must be > 0")
	}
	for endpoint, l := range c.RateLimits {
		if l.MaxRequests <= 0 || l.Window <= 0 {
			return fmt.Errorf("rate_limits[%s]: max_requests and window must be > 0", endpoint)
		}
	}
	if c.MaxBodyKB <= 0 {
		return fmt.Errorf("max_body_kb must be > 0")
	}
	return nil
}

// MaxBodyBytes returns the request body cap in bytes.
func (c *Config) MaxBodyBytes() int64 { return int64(c.MaxBodyKB) * 1024 }
