package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel              = "warn"
	DefaultJSONLog               = false
	DefaultUserAgent             = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultCacheTTL              = 30 * time.Minute
	DefaultHTTPTimeout           = 30 * time.Second
	DefaultPassageRateLimitRPS   = 2.0
	DefaultPassageRateLimitBurst = 4
	DefaultMediaRateLimitRPS     = 5.0
	DefaultMediaRateLimitBurst   = 10
	DefaultBrowserPoolSize       = 3
	DefaultMaxBrowserPoolSize    = 10
	DefaultBrowserHeadless       = true
	DefaultCacheMaxSizeBytes     = 16 * 1024 * 1024 // 16MB
	DefaultPostsCount            = 10
	DefaultScrapeTimeout         = 10 * time.Minute
	DefaultMaxScrollRetries      = 5
	DefaultPostsWait             = 10 * time.Second
	DefaultPopupTimeout          = 10 * time.Second
	DefaultDBPath                = "fbscrape.db"
	DefaultMediaDir              = "media"
	DefaultDownloadWorkers       = 4
)
