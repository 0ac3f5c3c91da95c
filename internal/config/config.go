package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/search"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	DatabaseURL string
	RedisURL    string
	QueuePrefix string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	LogFormat   string `validate:"oneof=json text"`

	Search SearchConfig
	Fetch  FetchConfig
	Crawl  CrawlConfig
}

type SearchConfig struct {
	BaseURL          string `validate:"required,url"`
	Keywords         string
	Location         string
	JobTypes         []search.JobType
	PostedWithinDays int `validate:"gte=0"`
	Total            int `validate:"gt=0"`
}

type FetchConfig struct {
	UserAgent        string        `validate:"required"`
	Timeout          time.Duration `validate:"gt=0"`
	MaxRetries       int           `validate:"gte=0"`
	InitialBackoff   time.Duration `validate:"gte=0"`
	BackoffIncrement time.Duration `validate:"gte=0"`
	RateLimit        float64       `validate:"gte=0"`
	RateBurst        int           `validate:"gte=1"`
	RespectRobots    bool
}

type CrawlConfig struct {
	Concurrency int    `validate:"gt=0"`
	DataDir     string `validate:"required"`
	// Schedule is a cron spec for the server's recurring crawl. Empty
	// disables it.
	Schedule string
	// Timeout bounds a whole crawl. Zero means no limit.
	Timeout time.Duration `validate:"gte=0"`
}

func (c FetchConfig) RetryPolicy() httpx.RetryPolicy {
	return httpx.RetryPolicy{
		MaxAttempts:      c.MaxRetries,
		InitialBackoff:   c.InitialBackoff,
		BackoffIncrement: c.BackoffIncrement,
	}
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}
	retry := httpx.DefaultRetryPolicy()
	cfg := &Config{
		Port:        e.str("PORT", "8080"),
		DatabaseURL: e.str("DATABASE_URL", ""),
		RedisURL:    e.str("REDIS_URL", ""),
		QueuePrefix: e.str("REDIS_QUEUE_KEY", "job-harvester:links"),
		LogLevel:    strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(e.str("LOG_FORMAT", "json")),
		Search: SearchConfig{
			BaseURL:          e.str("SEARCH_BASE_URL", search.DefaultBaseURL),
			Keywords:         e.str("SEARCH_KEYWORDS", ""),
			Location:         e.str("SEARCH_LOCATION", "United States"),
			PostedWithinDays: e.integer("SEARCH_POSTED_WITHIN_DAYS", 0),
			Total:            e.integer("SEARCH_TOTAL", 100),
		},
		Fetch: FetchConfig{
			UserAgent:        e.str("FETCH_USER_AGENT", httpx.DefaultUserAgent),
			Timeout:          e.duration("FETCH_TIMEOUT", httpx.DefaultTimeout),
			MaxRetries:       e.integer("FETCH_MAX_RETRIES", retry.MaxAttempts),
			InitialBackoff:   e.duration("FETCH_INITIAL_BACKOFF", retry.InitialBackoff),
			BackoffIncrement: e.duration("FETCH_BACKOFF_INCREMENT", retry.BackoffIncrement),
			RateLimit:        e.float("FETCH_RATE_LIMIT", 0),
			RateBurst:        e.integer("FETCH_RATE_BURST", 1),
			RespectRobots:    e.boolean("FETCH_RESPECT_ROBOTS", false),
		},
		Crawl: CrawlConfig{
			Concurrency: e.integer("CRAWL_CONCURRENCY", runtime.NumCPU()),
			DataDir:     e.str("CRAWL_DATA_DIR", "data"),
			Schedule:    e.str("CRAWL_SCHEDULE", ""),
			Timeout:     e.duration("CRAWL_TIMEOUT", 0),
		},
	}

	types, err := search.ParseJobTypes(e.str("SEARCH_JOB_TYPES", ""))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("SEARCH_JOB_TYPES: %w", err))
	}
	cfg.Search.JobTypes = types

	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Query is the configured search as a first-page query.
func (c *Config) Query() search.Query {
	return search.Query{
		Keywords:         c.Search.Keywords,
		Location:         c.Search.Location,
		JobTypes:         c.Search.JobTypes,
		PostedWithinDays: c.Search.PostedWithinDays,
	}
}

type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (e *env) boolean(key string, def bool) bool {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
