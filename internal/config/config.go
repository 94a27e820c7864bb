package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "NEWSPRESS_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	openAIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv = "OPENAI_MODEL"
	pexelsKeyEnv   = "PEXELS_API_KEY"
	unsplashKeyEnv = "UNSPLASH_ACCESS_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Images    ImagesConfig    `yaml:"images"`
	Storage   StorageConfig   `yaml:"storage"`
	Lookup    LookupConfig    `yaml:"lookup"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines when collection runs execute.
type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// RateLimitConfig bounds rewrite API calls to a trailing window.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
}

// RewriteConfig defines how to contact the rewrite API.
type RewriteConfig struct {
	Endpoint     string          `yaml:"endpoint"`
	Model        string          `yaml:"model"`
	APIKey       string          `yaml:"apiKey"`
	MaxTokens    int             `yaml:"maxTokens"`
	Temperature  float64         `yaml:"temperature"`
	MaxRetries   int             `yaml:"maxRetries"`
	RetryDelay   time.Duration   `yaml:"retryDelay"`
	ArticleDelay time.Duration   `yaml:"articleDelay"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// ImagesConfig tunes the cascade and the Commons scorer.
type ImagesConfig struct {
	MinWidth    int    `yaml:"minWidth"`
	MinScore    int    `yaml:"minScore"`
	PexelsKey   string `yaml:"pexelsKey"`
	UnsplashKey string `yaml:"unsplashKey"`
}

// StorageConfig covers run artifacts on disk and the optional history DSN.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
	DSN     string `yaml:"dsn"`
}

// LookupConfig points at the external CMS entity cache files.
type LookupConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

// SourceConfig describes a single site with its collection strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Strategy string            `yaml:"strategy"`
	URL      string            `yaml:"url"`
	Category string            `yaml:"category"`
	Count    int               `yaml:"count"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Rewrite.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Rewrite.Model = v
	}

	if v := os.Getenv(pexelsKeyEnv); v != "" {
		c.Images.PexelsKey = v
	}

	if v := os.Getenv(unsplashKeyEnv); v != "" {
		c.Images.UnsplashKey = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	base.Scheduler.Enabled = base.Scheduler.Enabled || override.Scheduler.Enabled

	if override.Rewrite.Endpoint != "" {
		base.Rewrite.Endpoint = override.Rewrite.Endpoint
	}
	if override.Rewrite.Model != "" {
		base.Rewrite.Model = override.Rewrite.Model
	}
	if override.Rewrite.APIKey != "" {
		base.Rewrite.APIKey = override.Rewrite.APIKey
	}
	if override.Rewrite.MaxTokens > 0 {
		base.Rewrite.MaxTokens = override.Rewrite.MaxTokens
	}
	if override.Rewrite.Temperature > 0 {
		base.Rewrite.Temperature = override.Rewrite.Temperature
	}
	if override.Rewrite.MaxRetries > 0 {
		base.Rewrite.MaxRetries = override.Rewrite.MaxRetries
	}
	if override.Rewrite.RetryDelay > 0 {
		base.Rewrite.RetryDelay = override.Rewrite.RetryDelay
	}
	if override.Rewrite.ArticleDelay > 0 {
		base.Rewrite.ArticleDelay = override.Rewrite.ArticleDelay
	}
	if override.Rewrite.RateLimit.MaxRequests > 0 {
		base.Rewrite.RateLimit.MaxRequests = override.Rewrite.RateLimit.MaxRequests
	}
	if override.Rewrite.RateLimit.Window > 0 {
		base.Rewrite.RateLimit.Window = override.Rewrite.RateLimit.Window
	}

	if override.Images.MinWidth > 0 {
		base.Images.MinWidth = override.Images.MinWidth
	}
	if override.Images.MinScore > 0 {
		base.Images.MinScore = override.Images.MinScore
	}
	if override.Images.PexelsKey != "" {
		base.Images.PexelsKey = override.Images.PexelsKey
	}
	if override.Images.UnsplashKey != "" {
		base.Images.UnsplashKey = override.Images.UnsplashKey
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Lookup.Dir != "" {
		base.Lookup.Dir = override.Lookup.Dir
	}
	if override.Lookup.TTL > 0 {
		base.Lookup.TTL = override.Lookup.TTL
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{Enabled: false, Interval: 6 * time.Hour},
		Rewrite: RewriteConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			MaxTokens:    4096,
			Temperature:  0.7,
			MaxRetries:   3,
			RetryDelay:   2 * time.Second,
			ArticleDelay: 60 * time.Second,
			RateLimit:    RateLimitConfig{MaxRequests: 3, Window: time.Minute},
		},
		Images: ImagesConfig{
			MinWidth: 900,
			MinScore: 55,
		},
		Storage: StorageConfig{DataDir: "data/runs"},
		Lookup:  LookupConfig{Dir: "data/cache", TTL: 30 * time.Minute},
		Sources: []SourceConfig{
			{
				Name:     "example-wire",
				Strategy: "rss",
				URL:      "https://example.org/feed.xml",
				Category: "World",
				Count:    5,
			},
		},
	}
}
