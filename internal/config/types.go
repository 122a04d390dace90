// internal/config/types.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that YAML-decodes from either a Go duration
// string ("30s", "1m") or a bare integer number of seconds.
type Duration time.Duration

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML emits the duration-string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "30s" style strings and integer seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the top-level configuration for the ingestion toolkit.
type Config struct {
	Name     string `yaml:"name" json:"name"`
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	Store   StoreConfig   `yaml:"store" json:"store"`
	Fetch   FetchConfig   `yaml:"fetch,omitempty" json:"fetch,omitempty"`
	Browser BrowserConfig `yaml:"browser,omitempty" json:"browser,omitempty"`
	Resolve ResolveConfig `yaml:"resolve,omitempty" json:"resolve,omitempty"`
	AI      AIConfig      `yaml:"ai,omitempty" json:"ai,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty" json:"server,omitempty"`
}

// StoreConfig describes the content store connection.
type StoreConfig struct {
	// DSN selects the driver by scheme: postgres:// or mysql://.
	DSN             string   `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns    int      `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
}

// FetchConfig controls the plain HTTP fetcher.
type FetchConfig struct {
	Timeout       Duration          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryAttempts int               `yaml:"retry_attempts,omitempty" json:"retry_attempts,omitempty"`
	RetryDelay    Duration          `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	RateLimit     float64           `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"` // requests per second
	RateBurst     int               `yaml:"rate_burst,omitempty" json:"rate_burst,omitempty"`
	UserAgents    []string          `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// BrowserConfig controls the headless browser used for JS-rendered pages.
type BrowserConfig struct {
	Headless      bool     `yaml:"headless" json:"headless"`
	UserAgent     string   `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	NavTimeout    Duration `yaml:"nav_timeout,omitempty" json:"nav_timeout,omitempty"`
	SettleDelay   Duration `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`
	DisableImages bool     `yaml:"disable_images,omitempty" json:"disable_images,omitempty"`
}

// ResolveConfig controls date/time and source-URL resolution.
type ResolveConfig struct {
	// Timezone is the IANA zone publishers are assumed to quote wall-clock times in.
	Timezone          string   `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	AggregatorDomains []string `yaml:"aggregator_domains,omitempty" json:"aggregator_domains,omitempty"`
	TicketPlatforms   []string `yaml:"ticket_platforms,omitempty" json:"ticket_platforms,omitempty"`
	ExcludedDomains   []string `yaml:"excluded_domains,omitempty" json:"excluded_domains,omitempty"`
	ItemDelay         Duration `yaml:"item_delay,omitempty" json:"item_delay,omitempty"`
	CrawlDelay        Duration `yaml:"crawl_delay,omitempty" json:"crawl_delay,omitempty"`
	BatchLimit        int      `yaml:"batch_limit,omitempty" json:"batch_limit,omitempty"`
}

// AIConfig controls the optional LLM fallback for URL resolution.
// An empty APIKey disables the fallback entirely.
type AIConfig struct {
	APIKey      string   `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Endpoint    string   `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Model       string   `yaml:"model,omitempty" json:"model,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	ExcerptSize int      `yaml:"excerpt_size,omitempty" json:"excerpt_size,omitempty"`
}

// Enabled reports whether the AI fallback is configured.
func (c AIConfig) Enabled() bool { return c.APIKey != "" }

// ServerConfig controls the admin HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
	// CronSpec schedules the background URL validation run; empty disables it.
	CronSpec string `yaml:"cron_spec,omitempty" json:"cron_spec,omitempty"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	scheme := dsnScheme(c.Store.DSN)
	switch scheme {
	case "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("store.dsn: unsupported scheme %q (postgres or mysql)", scheme)
	}

	if c.Resolve.Timezone != "" {
		if strings.ContainsAny(c.Resolve.Timezone, " \t") {
			return fmt.Errorf("resolve.timezone: invalid IANA zone %q", c.Resolve.Timezone)
		}
	}

	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("fetch.rate_limit cannot be negative")
	}
	if c.Fetch.RetryAttempts < 0 {
		return fmt.Errorf("fetch.retry_attempts cannot be negative")
	}
	if c.Resolve.BatchLimit < 0 {
		return fmt.Errorf("resolve.batch_limit cannot be negative")
	}

	if c.AI.Enabled() {
		if c.AI.Endpoint != "" {
			if _, err := url.ParseRequestURI(c.AI.Endpoint); err != nil {
				return fmt.Errorf("ai.endpoint: %w", err)
			}
		}
	}

	return nil
}

// dsnScheme extracts the scheme prefix of a connection string.
func dsnScheme(dsn string) string {
	if i := strings.Index(dsn, "://"); i > 0 {
		return strings.ToLower(dsn[:i])
	}
	return ""
}
