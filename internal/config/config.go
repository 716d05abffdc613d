package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Config holds application configuration values. Every field can come from
// the optional YAML file, an FBSCRAPE_* variable (also read from .env) or,
// for the common ones, a CLI flag; later sources win.
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level" env:"FBSCRAPE_LOG_LEVEL"`
	JSONLog  bool   `yaml:"json_log" env:"FBSCRAPE_JSON_LOG"`

	// HTTP
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"FBSCRAPE_HTTP_TIMEOUT"`
	UserAgent   string        `yaml:"user_agent" env:"FBSCRAPE_USER_AGENT"`
	Proxy       string        `yaml:"proxy" env:"FBSCRAPE_PROXY"`
	Proxies     []string      `yaml:"proxies" env:"FBSCRAPE_PROXIES" env-separator:","`

	// Rate Limiting
	PassageRateLimitRPS   float64 `yaml:"passage_rps" env:"FBSCRAPE_PASSAGE_RPS"`
	PassageRateLimitBurst int     `yaml:"passage_burst" env:"FBSCRAPE_PASSAGE_BURST"`
	MediaRateLimitRPS     float64 `yaml:"media_rps" env:"FBSCRAPE_MEDIA_RPS"`
	MediaRateLimitBurst   int     `yaml:"media_burst" env:"FBSCRAPE_MEDIA_BURST"`

	// Browser Pool
	BrowserPoolSize int    `yaml:"browser_pool_size" env:"FBSCRAPE_BROWSER_POOL_SIZE"`
	BrowserHeadless bool   `yaml:"headless" env:"FBSCRAPE_HEADLESS"`
	ChromePath      string `yaml:"chrome_path" env:"FBSCRAPE_CHROME_PATH"`

	// Caching
	CacheTTL          time.Duration `yaml:"cache_ttl" env:"FBSCRAPE_CACHE_TTL"`
	CacheMaxSizeBytes int64         `yaml:"cache_max_size_bytes" env:"FBSCRAPE_CACHE_MAX_SIZE"`

	// Scraping
	PostsCount       int           `yaml:"posts_count" env:"FBSCRAPE_POSTS_COUNT"`
	ScrapeTimeout    time.Duration `yaml:"scrape_timeout" env:"FBSCRAPE_SCRAPE_TIMEOUT"`
	MaxScrollRetries int           `yaml:"max_scroll_retries" env:"FBSCRAPE_MAX_SCROLL_RETRIES"`
	PostsWait        time.Duration `yaml:"posts_wait" env:"FBSCRAPE_POSTS_WAIT"`
	PopupTimeout     time.Duration `yaml:"popup_timeout" env:"FBSCRAPE_POPUP_TIMEOUT"`
	FullGallery      bool          `yaml:"full_gallery" env:"FBSCRAPE_FULL_GALLERY"`

	// Login
	Username string `yaml:"username" env:"FBSCRAPE_USERNAME"`
	Password string `yaml:"password" env:"FBSCRAPE_PASSWORD"`

	// Storage
	DBPath          string `yaml:"db_path" env:"FBSCRAPE_DB"`
	MediaDir        string `yaml:"media_dir" env:"FBSCRAPE_MEDIA_DIR"`
	DownloadWorkers int    `yaml:"download_workers" env:"FBSCRAPE_DOWNLOAD_WORKERS"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		LogLevel:              DefaultLogLevel,
		JSONLog:               DefaultJSONLog,
		HTTPTimeout:           DefaultHTTPTimeout,
		UserAgent:             DefaultUserAgent,
		PassageRateLimitRPS:   DefaultPassageRateLimitRPS,
		PassageRateLimitBurst: DefaultPassageRateLimitBurst,
		MediaRateLimitRPS:     DefaultMediaRateLimitRPS,
		MediaRateLimitBurst:   DefaultMediaRateLimitBurst,
		BrowserPoolSize:       DefaultBrowserPoolSize,
		BrowserHeadless:       DefaultBrowserHeadless,
		CacheTTL:              DefaultCacheTTL,
		CacheMaxSizeBytes:     DefaultCacheMaxSizeBytes,
		PostsCount:            DefaultPostsCount,
		ScrapeTimeout:         DefaultScrapeTimeout,
		MaxScrollRetries:      DefaultMaxScrollRetries,
		PostsWait:             DefaultPostsWait,
		PopupTimeout:          DefaultPopupTimeout,
		DBPath:                DefaultDBPath,
		MediaDir:              DefaultMediaDir,
		DownloadWorkers:       DefaultDownloadWorkers,
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	// cleanenv leaves fields alone that no file key or variable sets
	cfg := Defaults()
	path := flagString(cmd, "config")
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		help, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("failed to read environment: %w\n%s", err, help)
	}

	applyFlags(cfg, cmd)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyFlags overrides cfg with the flags the user actually set
func applyFlags(cfg *Config, cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	if s := flagString(cmd, "user-agent"); s != "" {
		cfg.UserAgent = s
	}
	if s := flagString(cmd, "proxy"); s != "" {
		cfg.Proxy = s
	}
	if s := flagString(cmd, "chrome-path"); s != "" {
		cfg.ChromePath = s
	}
	if s := flagString(cmd, "db"); s != "" {
		cfg.DBPath = s
	}
	if changed(cmd, "timeout") {
		if d, err := time.ParseDuration(flagString(cmd, "timeout")); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if changed(cmd, "headless") {
		cfg.BrowserHeadless = flagString(cmd, "headless") == "true"
	}
	if flagString(cmd, "json") == "true" {
		cfg.JSONLog = true
	}
	if flagString(cmd, "verbose") == "true" {
		cfg.LogLevel = "debug"
	}
	if flagString(cmd, "quiet") == "true" {
		cfg.LogLevel = "error"
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
}

func flagString(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
