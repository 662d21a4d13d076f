// Package config loads and validates wrestlebot configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig           `mapstructure:"logging"`
	DB       DBConfig                `mapstructure:"db"`
	State    StateConfig             `mapstructure:"state"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Breaker  BreakerConfig           `mapstructure:"breaker"`
	Matching MatchingConfig          `mapstructure:"matching"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// StateConfig locates the shared state store used for rate-limit buckets,
// circuit-breaker state, robots and response caches.
type StateConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// HTTPConfig configures fetch client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	CacheTTLSeconds  int    `mapstructure:"cache_ttl_seconds"`
	UserAgent        string `mapstructure:"user_agent"`
}

// BreakerConfig governs the per-source circuit breaker.
type BreakerConfig struct {
	FailureThreshold       int `mapstructure:"failure_threshold"`
	RecoveryTimeoutSeconds int `mapstructure:"recovery_timeout_seconds"`
}

// MatchingConfig holds deduplication policy knobs. The similarity threshold
// and year bounds are policy choices carried over from operational tuning,
// kept configurable per entity kind.
type MatchingConfig struct {
	SimilarityThreshold float64            `mapstructure:"similarity_threshold"`
	PerKindThreshold    map[string]float64 `mapstructure:"per_kind_threshold"`
	YearFloor           int                `mapstructure:"year_floor"`
}

// SourceConfig describes one external source and its quirks.
type SourceConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	Priority           int     `mapstructure:"priority"`
	RequestsPerMinute  int     `mapstructure:"requests_per_minute"`
	RequestsPerHour    int     `mapstructure:"requests_per_hour"`
	RequestsPerDay     int     `mapstructure:"requests_per_day"`
	CrawlDelaySeconds  float64 `mapstructure:"crawl_delay_seconds"`
	InsecureSkipVerify bool    `mapstructure:"insecure_skip_verify"`
	APIKey             string  `mapstructure:"api_key"`
	APISecret          string  `mapstructure:"api_secret"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WRESTLEBOT")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("state.dir", "data/state")
	v.SetDefault("state.in_memory", false)

	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 60000)
	v.SetDefault("http.cache_ttl_seconds", 3600)
	v.SetDefault("http.user_agent", "OWDBBot/1.0 (+https://wrestlingdb.org/about/bot)")

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout_seconds", 300)

	v.SetDefault("matching.similarity_threshold", 0.85)
	v.SetDefault("matching.year_floor", 1900)

	// Wikipedia reads have no hard limit; these are self-imposed per the
	// Wikimedia etiquette guidelines.
	v.SetDefault("sources.wikipedia.base_url", "https://en.wikipedia.org")
	v.SetDefault("sources.wikipedia.priority", 1)
	v.SetDefault("sources.wikipedia.requests_per_minute", 60)
	v.SetDefault("sources.wikipedia.requests_per_hour", 2000)
	v.SetDefault("sources.wikipedia.requests_per_day", 10000)
	v.SetDefault("sources.wikipedia.crawl_delay_seconds", 1)

	// Fan-run sites get very conservative ceilings.
	v.SetDefault("sources.cagematch.base_url", "https://www.cagematch.net")
	v.SetDefault("sources.cagematch.priority", 2)
	v.SetDefault("sources.cagematch.requests_per_minute", 5)
	v.SetDefault("sources.cagematch.requests_per_hour", 60)
	v.SetDefault("sources.cagematch.requests_per_day", 500)
	v.SetDefault("sources.cagematch.crawl_delay_seconds", 2)

	// ProFightDB serves an expired certificate chain; verification stays off.
	v.SetDefault("sources.profightdb.base_url", "https://www.profightdb.com")
	v.SetDefault("sources.profightdb.priority", 3)
	v.SetDefault("sources.profightdb.requests_per_minute", 5)
	v.SetDefault("sources.profightdb.requests_per_hour", 60)
	v.SetDefault("sources.profightdb.requests_per_day", 500)
	v.SetDefault("sources.profightdb.crawl_delay_seconds", 2)
	v.SetDefault("sources.profightdb.insecure_skip_verify", true)

	v.SetDefault("sources.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("sources.tmdb.priority", 1)
	v.SetDefault("sources.tmdb.requests_per_minute", 30)
	v.SetDefault("sources.tmdb.requests_per_hour", 500)
	v.SetDefault("sources.tmdb.requests_per_day", 5000)

	v.SetDefault("sources.rawg.base_url", "https://api.rawg.io/api")
	v.SetDefault("sources.rawg.priority", 1)
	v.SetDefault("sources.rawg.requests_per_minute", 30)
	v.SetDefault("sources.rawg.requests_per_hour", 500)
	v.SetDefault("sources.rawg.requests_per_day", 5000)

	v.SetDefault("sources.igdb.base_url", "https://api.igdb.com/v4")
	v.SetDefault("sources.igdb.priority", 2)
	v.SetDefault("sources.igdb.requests_per_minute", 30)
	v.SetDefault("sources.igdb.requests_per_hour", 500)
	v.SetDefault("sources.igdb.requests_per_day", 5000)

	v.SetDefault("sources.openlibrary.base_url", "https://openlibrary.org")
	v.SetDefault("sources.openlibrary.priority", 1)
	v.SetDefault("sources.openlibrary.requests_per_minute", 30)
	v.SetDefault("sources.openlibrary.requests_per_hour", 500)
	v.SetDefault("sources.openlibrary.requests_per_day", 5000)

	v.SetDefault("sources.googlebooks.base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("sources.googlebooks.priority", 2)
	v.SetDefault("sources.googlebooks.requests_per_minute", 30)
	v.SetDefault("sources.googlebooks.requests_per_hour", 500)
	v.SetDefault("sources.googlebooks.requests_per_day", 1000)

	v.SetDefault("sources.itunes.base_url", "https://itunes.apple.com")
	v.SetDefault("sources.itunes.priority", 1)
	v.SetDefault("sources.itunes.requests_per_minute", 20)
	v.SetDefault("sources.itunes.requests_per_hour", 300)
	v.SetDefault("sources.itunes.requests_per_day", 2000)

	v.SetDefault("sources.podcastindex.base_url", "https://api.podcastindex.org/api/1.0")
	v.SetDefault("sources.podcastindex.priority", 2)
	v.SetDefault("sources.podcastindex.requests_per_minute", 30)
	v.SetDefault("sources.podcastindex.requests_per_hour", 500)
	v.SetDefault("sources.podcastindex.requests_per_day", 5000)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be > 0")
	}
	if c.Matching.SimilarityThreshold <= 0 || c.Matching.SimilarityThreshold > 1 {
		return fmt.Errorf("matching.similarity_threshold must be in (0, 1]")
	}
	if !c.State.InMemory && c.State.Dir == "" {
		return fmt.Errorf("state.dir must be set unless state.in_memory is true")
	}
	for name, src := range c.Sources {
		if src.BaseURL == "" {
			return fmt.Errorf("sources.%s.base_url must be set", name)
		}
		if src.RequestsPerMinute <= 0 || src.RequestsPerHour <= 0 || src.RequestsPerDay <= 0 {
			return fmt.Errorf("sources.%s rate limits must be > 0", name)
		}
	}
	return nil
}

// RequestTimeout converts the HTTP timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// KindThreshold returns the similarity threshold for an entity kind,
// falling back to the shared default.
func (c MatchingConfig) KindThreshold(kind string) float64 {
	if t, ok := c.PerKindThreshold[kind]; ok && t > 0 {
		return t
	}
	return c.SimilarityThreshold
}
