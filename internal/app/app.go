// Package app wires configuration, browsers, fetchers and storage together
// for the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/cache"
	"github.com/law-makers/fbscrape/internal/config"
	"github.com/law-makers/fbscrape/internal/downloader"
	"github.com/law-makers/fbscrape/internal/extract"
	"github.com/law-makers/fbscrape/internal/proxy"
	"github.com/law-makers/fbscrape/internal/ratelimit"
	"github.com/law-makers/fbscrape/internal/scraper"
	"github.com/law-makers/fbscrape/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds the dependencies shared by all commands.
//
// Chrome and the database are started lazily so that help, session and
// export commands stay fast. Call Close when the command finishes.
type Application struct {
	Config       *config.Config
	Logger       *zerolog.Logger
	Cache        cache.Cache
	Proxies      *proxy.Pool
	PageLimiter  ratelimit.RateLimiter
	MediaLimiter ratelimit.RateLimiter
	HTTPClient   *http.Client
	Passages     *extract.HTTPPassages
	// Quiet hides progress bars
	Quiet bool

	poolMu      sync.Mutex
	browserPool *browser.Pool

	storeMu sync.Mutex
	store   *store.Store

	startTime time.Time
}

// SetupLogging configures the global zerolog logger from cfg
func SetupLogging(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if cfg.JSONLog {
		w = os.Stderr
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// New builds the Application. No browser or database is opened yet.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := SetupLogging(cfg)
	logger.Debug().Str("level", cfg.LogLevel).Bool("json", cfg.JSONLog).Msg("Logger initialized")

	proxies := cfg.Proxies
	if len(proxies) == 0 && cfg.Proxy != "" {
		proxies = []string{cfg.Proxy}
	}
	proxyPool := proxy.NewPool(proxies)

	memCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	pageLimiter := ratelimit.NewDomainLimiter(cfg.PassageRateLimitRPS, cfg.PassageRateLimitBurst)
	mediaLimiter := ratelimit.NewDomainLimiter(cfg.MediaRateLimitRPS, cfg.MediaRateLimitBurst)

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			Proxy:               proxyPool.ProxyFunc(),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	passages := extract.NewHTTPPassages(extract.PassageOptions{
		Client:    httpClient,
		Limiter:   pageLimiter,
		Cache:     memCache,
		UserAgent: cfg.UserAgent,
		CacheTTL:  cfg.CacheTTL,
	})

	logger.Debug().
		Int("proxies", proxyPool.Len()).
		Float64("passage_rps", cfg.PassageRateLimitRPS).
		Float64("media_rps", cfg.MediaRateLimitRPS).
		Msg("Fetchers initialized")

	return &Application{
		Config:       cfg,
		Logger:       &logger,
		Cache:        memCache,
		Proxies:      proxyPool,
		PageLimiter:  pageLimiter,
		MediaLimiter: mediaLimiter,
		HTTPClient:   httpClient,
		Passages:     passages,
		startTime:    time.Now(),
	}, nil
}

// BrowserPool starts Chrome on first use. With several proxies configured a
// launch failure marks the proxy failed and tries the next one.
func (a *Application) BrowserPool(ctx context.Context) (*browser.Pool, error) {
	a.poolMu.Lock()
	defer a.poolMu.Unlock()

	if a.browserPool != nil {
		return a.browserPool, nil
	}

	attempts := max(1, a.Proxies.Len())
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		proxyAddr := a.Proxies.Next()

		pool, err := browser.NewPool(browser.PoolOptions{
			Size:       a.Config.BrowserPoolSize,
			Headless:   a.Config.BrowserHeadless,
			UserAgent:  a.Config.UserAgent,
			Proxy:      proxyAddr,
			ChromePath: a.Config.ChromePath,
		})
		if err != nil {
			a.Proxies.MarkFailed(proxyAddr)
			a.Logger.Warn().Err(err).Str("proxy", proxyAddr).Msg("Failed to start browser pool")
			lastErr = err
			continue
		}

		a.browserPool = pool
		a.Logger.Info().Int("pool_size", pool.Size()).Str("proxy", proxyAddr).Msg("Browser pool started")
		return pool, nil
	}
	return nil, fmt.Errorf("failed to start browser: %w", lastErr)
}

// Store opens the post database on first use
func (a *Application) Store(ctx context.Context) (*store.Store, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	st, err := store.Open(ctx, a.Config.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = st
	return st, nil
}

// SetHeaders adds request headers to passage fetches
func (a *Application) SetHeaders(h map[string]string) {
	a.Passages = extract.NewHTTPPassages(extract.PassageOptions{
		Client:    a.HTTPClient,
		Limiter:   a.PageLimiter,
		Cache:     a.Cache,
		UserAgent: a.Config.UserAgent,
		Headers:   h,
		CacheTTL:  a.Config.CacheTTL,
	})
}

// ScraperConfig returns the scrape limits from the configuration
func (a *Application) ScraperConfig() scraper.Config {
	cfg := scraper.DefaultConfig()
	cfg.PostsCount = a.Config.PostsCount
	cfg.Timeout = a.Config.ScrapeTimeout
	cfg.MaxScrollRetries = a.Config.MaxScrollRetries
	cfg.PostsWait = a.Config.PostsWait
	cfg.FullGallery = a.Config.FullGallery
	cfg.ShowProgress = !a.Quiet
	return cfg
}

// NewScraper builds a Scraper over page with the shared passage fetcher
func (a *Application) NewScraper(page browser.Page, opts ...scraper.Option) *scraper.Scraper {
	base := []scraper.Option{
		scraper.WithPassages(a.Passages),
		scraper.WithAutomation(automation.WithPopupTimeout(a.Config.PopupTimeout)),
	}
	return scraper.New(page, a.ScraperConfig(), append(base, opts...)...)
}

// Downloads returns a media worker pool using the media limiter and proxies
func (a *Application) Downloads(workers int) *downloader.WorkerPool {
	if workers <= 0 {
		workers = a.Config.DownloadWorkers
	}
	d := downloader.NewDownloader(a.Config.HTTPTimeout, a.Config.UserAgent, a.MediaLimiter)
	if a.Proxies.Len() > 0 {
		d.SetProxy(a.Proxies.ProxyFunc())
	}
	wp := downloader.NewWorkerPool(workers, d)
	if a.Quiet {
		wp.SetProgressWriter(nil)
	}
	return wp
}

// Close releases the browser, database and connections
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	a.poolMu.Lock()
	if a.browserPool != nil {
		if err := a.browserPool.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
		a.browserPool = nil
	}
	a.poolMu.Unlock()

	a.storeMu.Lock()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing store")
		}
		a.store = nil
	}
	a.storeMu.Unlock()

	if a.Cache != nil {
		if mc, ok := a.Cache.(*cache.MemoryCache); ok {
			a.Logger.Debug().Fields(mc.Stats()).Msg("Passage cache stats")
		}
		a.Cache.Close()
	}
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("Application shutdown complete")
	return nil
}
