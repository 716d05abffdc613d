package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

// Pages hands out browser pages for concurrent scrapes. The returned release
// func gives the page back.
type Pages interface {
	Acquire(ctx context.Context) (browser.Page, func(), error)
}

// PoolPages serves pages from a browser pool
type PoolPages struct {
	Pool *browser.Pool
}

// Acquire implements Pages
func (p PoolPages) Acquire(ctx context.Context) (browser.Page, func(), error) {
	tab, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tab.Page, func() { p.Pool.Release(tab) }, nil
}

// Factory builds a Scraper for a leased page
type Factory func(page browser.Page) *Scraper

// Batch scrapes several targets concurrently, one page each
type Batch struct {
	pages       Pages
	factory     Factory
	concurrency int
}

// NewBatch creates a Batch. If concurrency <= 0, it is tuned to the machine.
func NewBatch(pages Pages, factory Factory, concurrency int) *Batch {
	if concurrency <= 0 {
		concurrency = OptimalConcurrency()
	}
	return &Batch{
		pages:       pages,
		factory:     factory,
		concurrency: concurrency,
	}
}

// Concurrency returns the number of targets scraped at once
func (b *Batch) Concurrency() int {
	return b.concurrency
}

// Run scrapes every target and streams one result per target. Duplicate
// targets are scraped once. The channel is closed when all work is done.
func (b *Batch) Run(ctx context.Context, targets []models.ScrapeOptions) <-chan models.ScrapeResult {
	targets = dedupe(targets)
	results := make(chan models.ScrapeResult, len(targets))

	var wg sync.WaitGroup
	sem := make(chan struct{}, b.concurrency)

	go func() {
		defer close(results)

		for _, t := range targets {
			select {
			case <-ctx.Done():
				results <- models.ScrapeResult{Target: t.Target, Error: ctx.Err()}
				continue
			case sem <- struct{}{}: // Acquire semaphore
			}

			wg.Add(1)
			go func(opts models.ScrapeOptions) {
				defer wg.Done()
				defer func() { <-sem }() // Release semaphore

				posts, err := b.scrapeOne(ctx, opts)
				results <- models.ScrapeResult{
					Target: opts.Target,
					Posts:  posts,
					Error:  err,
				}
			}(t)
		}

		wg.Wait()
	}()

	return results
}

func (b *Batch) scrapeOne(ctx context.Context, opts models.ScrapeOptions) ([]models.Post, error) {
	page, release, err := b.pages.Acquire(ctx)
	if err != nil {
		return nil, NewScrapeError(ErrCodeBrowser, opts.Target, "no browser page available", err)
	}
	defer release()

	posts, err := b.factory(page).Scrape(ctx, opts)
	if err != nil {
		log.Error().Err(err).Str("target", opts.Target).Msg("Target failed")
		return posts, fmt.Errorf("scrape %s: %w", opts.Target, err)
	}
	return posts, nil
}

func dedupe(targets []models.ScrapeOptions) []models.ScrapeOptions {
	seen := make(map[string]bool, len(targets))
	out := make([]models.ScrapeOptions, 0, len(targets))
	for _, t := range targets {
		key := fmt.Sprintf("%t|%s", t.IsGroup, t.Target)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
