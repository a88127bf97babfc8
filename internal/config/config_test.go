package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "ANTHROPIC_API_KEY", "NEWS_FEEDS", "NEWS_FEEDS_FILE", "RATE_LIMIT_REQUESTS", "GENERATION_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("expected 30s generation timeout, got %s", cfg.AI.Timeout)
	}
	if cfg.AI.ContextWindowSize != 20 {
		t.Errorf("expected context window 20, got %d", cfg.AI.ContextWindowSize)
	}
	if cfg.RateLimit.Requests != 50 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if len(cfg.News.Feeds) != len(DefaultFeeds) {
		t.Errorf("expected %d default feeds, got %d", len(DefaultFeeds), len(cfg.News.Feeds))
	}
	if cfg.AI.Configured() {
		t.Error("AI must not be configured without an API key")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NEWS_FEEDS_FILE", "")
	os.Unsetenv("NEWS_FEEDS_FILE")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	t.Setenv("NEWS_FEEDS", "https://a.example/rss, ,https://b.example/rss")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RateLimit.Requests != 5 || cfg.RateLimit.Window != 10*time.Second {
		t.Errorf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if len(cfg.News.Feeds) != 2 || cfg.News.Feeds[1] != "https://b.example/rss" {
		t.Errorf("unexpected feeds: %v", cfg.News.Feeds)
	}
	if !cfg.AI.Configured() {
		t.Error("expected AI to be configured")
	}
}

func TestLoadFeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := "feeds:\n  - https://one.example/rss\n  - \"  \"\n  - https://two.example/atom\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write feed file: %v", err)
	}
	t.Setenv("NEWS_FEEDS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.News.Feeds) != 2 || cfg.News.Feeds[0] != "https://one.example/rss" {
		t.Fatalf("unexpected feeds: %v", cfg.News.Feeds)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Port:       "8080",
		DBPath:     "x.db",
		SessionTTL: time.Hour,
		AI:         AIConfig{MaxTokens: 1024, Timeout: time.Second, ContextWindowSize: 20},
		News:       NewsConfig{Timeout: time.Second},
		RateLimit:  RateLimitConfig{Requests: 0, Window: time.Minute},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero rate limit to be rejected")
	}

	cfg.RateLimit.Requests = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
