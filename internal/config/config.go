// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFeeds are the general-interest feeds polled for freshness context.
var DefaultFeeds = []string{
	"http://feeds.bbci.co.uk/news/rss.xml",
	"https://www.theguardian.com/world/rss",
	"https://www.reuters.com/rssFeed/worldNews",
}

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration
	AI          AIConfig
	News        NewsConfig
	RateLimit   RateLimitConfig
}

// AIConfig controls the language-model provider and the generation pipeline.
type AIConfig struct {
	APIKey            string
	Model             string
	BaseURL           string // empty = provider default
	MaxTokens         int
	Timeout           time.Duration
	ContextWindowSize int
}

// Configured reports whether a provider API key is present.
func (c AIConfig) Configured() bool {
	return c.APIKey != ""
}

// NewsConfig controls the freshness sources.
type NewsConfig struct {
	NewsDataAPIKey  string
	NewsDataBaseURL string
	Feeds           []string
	Timeout         time.Duration
}

// RateLimitConfig controls the per-user fixed window on reply generation.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// feedFile is the YAML layout of NEWS_FEEDS_FILE.
type feedFile struct {
	Feeds []string `yaml:"feeds"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	feeds, err := loadFeeds()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/replycraft.db"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		AI: AIConfig{
			APIKey:            getEnv("ANTHROPIC_API_KEY", ""),
			Model:             getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			BaseURL:           getEnv("ANTHROPIC_BASE_URL", ""),
			MaxTokens:         getEnvInt("AI_MAX_TOKENS", 1024),
			Timeout:           getEnvDuration("GENERATION_TIMEOUT", 30*time.Second),
			ContextWindowSize: getEnvInt("CONTEXT_WINDOW_SIZE", 20),
		},
		News: NewsConfig{
			NewsDataAPIKey:  getEnv("NEWSDATA_API_KEY", ""),
			NewsDataBaseURL: getEnv("NEWSDATA_BASE_URL", "https://newsdata.io"),
			Feeds:           feeds,
			Timeout:         getEnvDuration("NEWS_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 50),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be > 0")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.AI.ContextWindowSize <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW_SIZE must be > 0")
	}
	if c.News.Timeout <= 0 {
		return fmt.Errorf("NEWS_TIMEOUT must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// loadFeeds resolves the feed list: NEWS_FEEDS_FILE wins over NEWS_FEEDS,
// which wins over DefaultFeeds.
func loadFeeds() ([]string, error) {
	if path := getEnv("NEWS_FEEDS_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read NEWS_FEEDS_FILE: %w", err)
		}
		return parseFeedFile(data)
	}
	if raw := getEnv("NEWS_FEEDS", ""); raw != "" {
		return splitList(raw), nil
	}
	return append([]string(nil), DefaultFeeds...), nil
}

func parseFeedFile(data []byte) ([]string, error) {
	var ff feedFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse feed file: %w", err)
	}
	feeds := make([]string, 0, len(ff.Feeds))
	for _, f := range ff.Feeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	return feeds, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
