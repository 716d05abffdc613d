package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/fbscrape/internal/cache"
	"github.com/law-makers/fbscrape/internal/ratelimit"
	"github.com/law-makers/fbscrape/internal/retry"
	"github.com/rs/zerolog/log"
)

// HTTPPassages fetches linked post passages with plain HTTP GETs
type HTTPPassages struct {
	client    *http.Client
	limiter   ratelimit.RateLimiter
	cache     cache.Cache
	retry     retry.Config
	userAgent string
	headers   map[string]string
	ttl       time.Duration
}

// PassageOptions configures HTTPPassages
type PassageOptions struct {
	Client    *http.Client
	Limiter   ratelimit.RateLimiter
	Cache     cache.Cache
	Retry     *retry.Config
	UserAgent string
	Headers   map[string]string
	CacheTTL  time.Duration
}

// NewHTTPPassages builds a passage fetcher. Limiter and Cache are optional.
func NewHTTPPassages(opts PassageOptions) *HTTPPassages {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	rc := retry.DefaultConfig()
	if opts.Retry != nil {
		rc = *opts.Retry
	}
	return &HTTPPassages{
		client:    client,
		limiter:   opts.Limiter,
		cache:     opts.Cache,
		retry:     rc,
		userAgent: opts.UserAgent,
		headers:   opts.Headers,
		ttl:       opts.CacheTTL,
	}
}

// FetchPassage returns the text of the post message found at href
func (h *HTTPPassages) FetchPassage(ctx context.Context, href string) (string, error) {
	if h.cache != nil {
		if text, ok := h.cache.Get(href); ok {
			return text, nil
		}
	}

	var text string
	err := retry.WithRetry(ctx, h.retry, func() error {
		var err error
		text, err = h.fetch(ctx, href)
		return err
	})
	if err != nil {
		return "", err
	}

	if h.cache != nil {
		h.cache.Set(href, text, h.ttl)
	}
	return text, nil
}

func (h *HTTPPassages) fetch(ctx context.Context, href string) (string, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx, href); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", retry.NewHTTPError(resp.StatusCode, resp.Status, href)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse passage page: %w", err)
	}

	msg := doc.Find(PassageMessage).First()
	if msg.Length() == 0 {
		return "", retry.Permanent(fmt.Errorf("no post message at %s", href))
	}

	text := strings.TrimSpace(msg.Text())
	log.Debug().Str("url", href).Int("chars", len(text)).Msg("Fetched post passage")
	return text, nil
}
