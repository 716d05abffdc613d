package config

import (
	"fmt"
	"slices"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	if c.PassageRateLimitRPS <= 0 || c.MediaRateLimitRPS <= 0 {
		return fmt.Errorf("rate limits must be > 0")
	}
	if c.PostsCount <= 0 {
		return fmt.Errorf("posts count must be > 0")
	}
	if c.MaxScrollRetries <= 0 {
		return fmt.Errorf("max scroll retries must be > 0")
	}
	if c.DownloadWorkers <= 0 {
		return fmt.Errorf("download workers must be > 0")
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
