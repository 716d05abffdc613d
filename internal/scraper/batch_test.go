package scraper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	html     string
	fail     bool
	acquired atomic.Int32
	released atomic.Int32
}

func (f *fakePages) Acquire(ctx context.Context) (browser.Page, func(), error) {
	if f.fail {
		return nil, nil, errors.New("pool closed")
	}
	f.acquired.Add(1)
	page, err := browser.NewSnapshotString(f.html, "https://www.facebook.com/")
	if err != nil {
		return nil, nil, err
	}
	return page, func() { f.released.Add(1) }, nil
}

func TestBatch_Run(t *testing.T) {
	pages := &fakePages{html: feedHTML}
	factory := func(page browser.Page) *Scraper { return newTestScraper(t, page) }
	b := NewBatch(pages, factory, 2)

	results := map[string]models.ScrapeResult{}
	for r := range b.Run(context.Background(), []models.ScrapeOptions{
		{Target: "nasa", PostsCount: 5},
		{Target: "nasa", PostsCount: 5},
		{Target: " "},
	}) {
		results[r.Target] = r
	}

	require.Len(t, results, 2)
	assert.NoError(t, results["nasa"].Error)
	assert.Len(t, results["nasa"].Posts, 2)
	assert.Equal(t, ErrCodeValidation, CodeOf(results[" "].Error))

	assert.Equal(t, int32(2), pages.acquired.Load())
	assert.Equal(t, pages.acquired.Load(), pages.released.Load())
}

func TestBatch_AcquireFailure(t *testing.T) {
	b := NewBatch(&fakePages{fail: true}, func(page browser.Page) *Scraper { return nil }, 1)

	var got []models.ScrapeResult
	for r := range b.Run(context.Background(), []models.ScrapeOptions{{Target: "nasa"}}) {
		got = append(got, r)
	}
	require.Len(t, got, 1)
	assert.Equal(t, ErrCodeBrowser, CodeOf(got[0].Error))
}

func TestNewBatch_DefaultConcurrency(t *testing.T) {
	b := NewBatch(&fakePages{}, nil, 0)
	assert.GreaterOrEqual(t, b.Concurrency(), 1)
}

func TestByMemory(t *testing.T) {
	assert.Equal(t, 8, byMemory(8, 16<<30))
	assert.Equal(t, 3, byMemory(8, 3*tabMemory+1))
	assert.Equal(t, 1, byMemory(8, 10<<20))
	assert.GreaterOrEqual(t, OptimalConcurrency(), 1)
}
