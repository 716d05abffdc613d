package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/fbscrape/internal/config"
	"github.com/rs/zerolog/log"
)

// Tab is one pooled browser tab
type Tab struct {
	Page   *CDPPage
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the chromedp context of the tab
func (t *Tab) Context() context.Context {
	return t.ctx
}

// PoolOptions configures a Pool
type PoolOptions struct {
	Size       int
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// Pool keeps a fixed number of warm Chrome tabs that share one browser process
type Pool struct {
	size        int
	tabs        chan *Tab
	allocCtx    context.Context
	allocCancel context.CancelFunc
	mu          sync.Mutex
	closed      bool
}

// NewPool launches Chrome and opens opts.Size tabs on about:blank
func NewPool(opts PoolOptions) (*Pool, error) {
	if opts.Size <= 0 {
		opts.Size = config.DefaultBrowserPoolSize
	}
	if opts.Size > config.DefaultMaxBrowserPoolSize {
		opts.Size = config.DefaultMaxBrowserPoolSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}

	log.Debug().Int("size", opts.Size).Str("proxy", opts.Proxy).Msg("Creating browser pool")

	allocOpts := allocatorOptions(opts)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	pool := &Pool{
		size:        opts.Size,
		tabs:        make(chan *Tab, opts.Size),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}

	for i := 0; i < opts.Size; i++ {
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
			tabCancel()
			pool.Close()
			return nil, fmt.Errorf("failed to warm up browser tab %d: %w", i, err)
		}

		pool.tabs <- &Tab{Page: NewCDPPage(tabCtx), ctx: tabCtx, cancel: tabCancel}
		log.Debug().Int("tab_id", i).Msg("Browser tab initialized")
	}

	log.Info().Int("pool_size", opts.Size).Msg("Browser pool ready")
	return pool, nil
}

func allocatorOptions(opts PoolOptions) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.UserAgent(opts.UserAgent),
	}

	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}

	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	return append(allocOpts, opts.ExtraArgs...)
}

// Acquire takes a tab from the pool, blocking until one is free or ctx is done
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	select {
	case tab, ok := <-p.tabs:
		if !ok {
			return nil, fmt.Errorf("browser pool is closed")
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			tab.cancel()
			return nil, fmt.Errorf("browser pool is closed")
		}
		log.Debug().Msg("Browser tab acquired from pool")
		return tab, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for browser tab: %w", ctx.Err())
	}
}

// Release resets tab to about:blank and returns it to the pool
func (p *Pool) Release(tab *Tab) {
	if err := tab.Page.Navigate(tab.ctx, "about:blank"); err != nil {
		log.Debug().Err(err).Msg("Failed to reset browser tab")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		tab.cancel()
		return
	}

	select {
	case p.tabs <- tab:
		log.Debug().Msg("Browser tab released to pool")
	default:
		tab.cancel()
		log.Warn().Msg("Browser pool full, discarding tab")
	}
}

// Close shuts down every tab and the browser process
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.tabs)
	for tab := range p.tabs {
		tab.cancel()
	}
	p.allocCancel()

	log.Info().Msg("Browser pool closed")
	return nil
}

// Size returns the number of tabs the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Available returns the number of idle tabs
func (p *Pool) Available() int {
	return len(p.tabs)
}
