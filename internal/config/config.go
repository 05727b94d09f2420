// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob for a crawl run, loaded from a config file,
// environment variables (CRAWLER_ prefix), or CLI flags bound by the cmd
// layer. Construct once at start; read-only thereafter.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Render  RenderConfig  `mapstructure:"render"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Trap    TrapConfig    `mapstructure:"trap"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs the traversal itself.
type CrawlerConfig struct {
	SeedURLs         []string `mapstructure:"seed_urls"`
	MaxDepth         int      `mapstructure:"max_depth"`
	DomainRestricted bool     `mapstructure:"domain_restricted"`
	RateLimitSeconds float64  `mapstructure:"rate_limit_seconds"`
	Proxies          []string `mapstructure:"proxies"`
	Concurrency      int      `mapstructure:"concurrency"`
	UserAgent        string   `mapstructure:"user_agent"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
}

// RenderConfig configures the headless fetcher, selected with Enabled.
type RenderConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	SettleWaitMs   int     `mapstructure:"settle_wait_ms"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
}

// RetryConfig tunes the transient-failure retry policy.
type RetryConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts"`
	BackoffBaseMs int `mapstructure:"backoff_base_ms"`
	BackoffMaxMs  int `mapstructure:"backoff_max_ms"`
}

// TrapConfig tunes the spider trap heuristics.
type TrapConfig struct {
	MaxSegmentRepeats int `mapstructure:"max_segment_repeats"`
	MaxPathSegments   int `mapstructure:"max_path_segments"`
}

// OutputConfig selects the result artifact.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// NewViper returns a Viper instance with defaults, env binding, and optional
// config file support. The cmd layer binds its flags to this instance before
// calling Build.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Build unmarshals and validates the final configuration.
func Build(v *viper.Viper) (Config, error) {
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
	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("crawler.domain_restricted", false)
	v.SetDefault("crawler.rate_limit_seconds", 0)
	v.SetDefault("crawler.concurrency", 10)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.timeout_seconds", 25)
	v.SetDefault("render.settle_wait_ms", 0)
	v.SetDefault("render.max_parallel", 2)
	v.SetDefault("render.domain_qps", 0)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.backoff_base_ms", 500)
	v.SetDefault("retry.backoff_max_ms", 30000)
	v.SetDefault("trap.max_segment_repeats", 3)
	v.SetDefault("trap.max_path_segments", 10)
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.path", "crawled_data")
	v.SetDefault("logging.development", true)
}

// Validate enforces the run-fatal configuration conditions. Everything here
// is checked before the crawl loop starts; nothing past this point aborts
// the run for a single URL.
func (c Config) Validate() error {
	if len(c.Crawler.SeedURLs) == 0 {
		return fmt.Errorf("at least one seed URL is required")
	}
	for _, seed := range c.Crawler.SeedURLs {
		u, err := url.Parse(seed)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("seed URL %q is not a valid http(s) URL", seed)
		}
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.RateLimitSeconds < 0 {
		return fmt.Errorf("crawler.rate_limit_seconds must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Render.Enabled && c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0 when rendering is enabled")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	switch strings.ToLower(c.Output.Format) {
	case "csv", "json":
	default:
		return fmt.Errorf("output.format must be csv or json, got %q", c.Output.Format)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must be set")
	}
	return nil
}

// RateLimit converts the configured per-worker delay into a duration.
func (c Config) RateLimit() time.Duration {
	return time.Duration(c.Crawler.RateLimitSeconds * float64(time.Second))
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// RenderTimeout converts the render navigation budget into a duration.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSeconds) * time.Second
}

// SettleWait converts the post-ready render delay into a duration.
func (c Config) SettleWait() time.Duration {
	return time.Duration(c.Render.SettleWaitMs) * time.Millisecond
}

// BackoffBase converts the retry base delay into a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Retry.BackoffBaseMs) * time.Millisecond
}

// BackoffMax converts the retry delay cap into a duration.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.Retry.BackoffMaxMs) * time.Millisecond
}
