package scraper

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/extract"
	"github.com/law-makers/fbscrape/internal/filter"
	"github.com/law-makers/fbscrape/internal/retry"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

const feedHTML = `<html><body>
<div data-virtualized="false"><div aria-posinset="1">
  <h3><span><a href="https://www.facebook.com/nasa"><strong>NASA</strong></a></span></h3>
  <span><a attributionsrc="/x" role="link" href="https://www.facebook.com/nasa/posts/pfbidA">3h</a></span>
  <div data-ad-preview="message"><div dir="auto">First launch</div></div>
  <div aria-label="See who reacted to this"><div aria-label="Like: 200 people"></div></div>
</div></div>
<div data-virtualized="false"><div aria-posinset="2">
  <h3><span><a href="https://www.facebook.com/nasa"><strong>NASA</strong></a></span></h3>
  <span><a attributionsrc="/x" role="link" href="https://www.facebook.com/nasa/posts/pfbidB">5h</a></span>
  <div data-ad-preview="message"><div dir="auto">Second</div></div>
  <div aria-label="See who reacted to this"><div aria-label="Like: 3 people"></div></div>
</div></div>
<div data-virtualized="false"><div aria-posinset="3">
  <span><a attributionsrc="/x" role="link" href="https://www.facebook.com/nasa/posts/pfbidA">3h</a></span>
</div></div>
</body></html>`

const oldFeedHTML = `<html><body>
<div id="pagelet_bluebar"></div>
<div class="userContentWrapper">
  <a class="_64-f" href="https://www.facebook.com/nasa"><span>NASA</span></a>
  <a class="_5pcq" href="https://www.facebook.com/nasa/posts/10158"><abbr data-utime="1700000000">2h</abbr></a>
  <div class="userContent">Hello</div>
  <div class="_355t _4vn2">12 shares</div>
</div>
<div class="userContentWrapper"><div class="userContent">No link</div></div>
</body></html>`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ShowProgress = false
	cfg.PostsWait = 0
	cfg.MaxScrollRetries = 2
	cfg.Retry = retry.Config{MaxAttempts: 1}
	return cfg
}

func newTestScraper(t *testing.T, page browser.Page, opts ...Option) *Scraper {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithProgressWriter(io.Discard),
		WithAutomation(
			automation.WithRand(rand.New(rand.NewPCG(1, 2))),
			automation.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
			automation.WithPopupTimeout(0),
		),
		WithExtract(extract.WithHoverWait(0), extract.WithViewerWait(0)),
	}
	return New(page, testConfig(), append(base, opts...)...)
}

func snapshot(t *testing.T, html string) *browser.SnapshotPage {
	t.Helper()
	page, err := browser.NewSnapshotString(html, "https://www.facebook.com/nasa")
	require.NoError(t, err)
	return page
}

func ids(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestScrape_NewLayout(t *testing.T) {
	s := newTestScraper(t, snapshot(t, feedHTML))

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa", PostsCount: 5})
	require.NoError(t, err)
	require.Equal(t, []string{"pfbidA", "pfbidB"}, ids(posts))

	first := posts[0]
	assert.Equal(t, "https://www.facebook.com/nasa/posts/pfbidA", first.URL)
	assert.Equal(t, "NASA", first.AuthorName)
	assert.Equal(t, "First launch", first.Content)
	assert.Equal(t, 200, first.Reactions.Total)
	assert.Equal(t, models.LayoutNew, first.Layout)
	assert.Equal(t, "nasa", first.Target)
	assert.Equal(t, fixedNow, first.ScrapedAt)
}

func TestScrape_StopsAtCount(t *testing.T) {
	s := newTestScraper(t, snapshot(t, feedHTML))

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa", PostsCount: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"pfbidA"}, ids(posts))
}

func TestScrape_Filter(t *testing.T) {
	f, err := filter.Compile("post.reactions.total > 100")
	require.NoError(t, err)
	s := newTestScraper(t, snapshot(t, feedHTML), WithFilter(f))

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa", PostsCount: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"pfbidA"}, ids(posts))
}

func TestScrape_OldLayoutSkipsPostsWithoutID(t *testing.T) {
	s := newTestScraper(t, snapshot(t, oldFeedHTML))

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa", PostsCount: 5})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "10158", posts[0].ID)
	assert.Equal(t, "Hello", posts[0].Content)
	assert.Equal(t, 12, posts[0].Shares)
	assert.Equal(t, models.LayoutOld, posts[0].Layout)
}

func TestScrape_Timeout(t *testing.T) {
	var ticks atomic.Int64
	clock := func() time.Time {
		return fixedNow.Add(time.Duration(ticks.Add(1)) * time.Minute)
	}
	s := newTestScraper(t, snapshot(t, feedHTML), WithClock(clock))

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{
		Target:     "nasa",
		PostsCount: 5,
		Timeout:    30 * time.Second,
	})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestScrape_Errors(t *testing.T) {
	t.Run("invalid target", func(t *testing.T) {
		s := newTestScraper(t, snapshot(t, feedHTML))
		_, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: " "})
		require.Error(t, err)
		assert.Equal(t, ErrCodeValidation, CodeOf(err))
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})

	t.Run("no posts", func(t *testing.T) {
		s := newTestScraper(t, snapshot(t, `<html><body><p>nothing</p></body></html>`))
		_, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa"})
		require.Error(t, err)
		assert.Equal(t, ErrCodeNotFound, CodeOf(err))
		assert.ErrorIs(t, err, ErrNoPosts)
	})

	t.Run("navigation", func(t *testing.T) {
		boom := errors.New("connection refused")
		page := browser.NewSnapshotLoader(func(ctx context.Context, url string) (io.ReadCloser, error) {
			return nil, boom
		})
		s := newTestScraper(t, page)
		_, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa"})
		require.Error(t, err)
		assert.Equal(t, ErrCodeNavigation, CodeOf(err))
		assert.ErrorIs(t, err, &ScrapeError{Code: ErrCodeNavigation})
	})
}

func TestScrapePost(t *testing.T) {
	s := newTestScraper(t, snapshot(t, oldFeedHTML))

	post, err := s.ScrapePost(context.Background(), "https://www.facebook.com/nasa/posts/10158")
	require.NoError(t, err)
	assert.Equal(t, "10158", post.ID)
	assert.Equal(t, "NASA", post.AuthorName)
	assert.Equal(t, "nasa", post.Target)

	_, err = s.ScrapePost(context.Background(), "nasa")
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestScrape_SinglePostOption(t *testing.T) {
	s := newTestScraper(t, snapshot(t, oldFeedHTML))

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{
		Target:     "https://www.facebook.com/nasa/posts/10158",
		SinglePost: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"10158"}, ids(posts))
}

// passPage counts Find calls made on post containers per FindAllPosts pass
type passPage struct {
	browser.Page
	pass     int
	finds    map[int]int
	releases int
}

func (p *passPage) ReleaseElements(ctx context.Context) error {
	p.releases++
	return nil
}

func (p *passPage) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	els, err := p.Page.FindAll(ctx, selector)
	if err != nil || selector != extract.NewPagePost {
		return els, err
	}
	p.pass++
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &passElement{Element: el, page: p}
	}
	return out, nil
}

type passElement struct {
	browser.Element
	page *passPage
}

func (e *passElement) Find(ctx context.Context, selector string) (browser.Element, error) {
	e.page.finds[e.page.pass]++
	return e.Element.Find(ctx, selector)
}

func TestScrape_SkipsVisitedContainers(t *testing.T) {
	page := &passPage{Page: snapshot(t, feedHTML), finds: map[int]int{}}
	s := newTestScraper(t, page)

	posts, err := s.Scrape(context.Background(), models.ScrapeOptions{Target: "nasa", PostsCount: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"pfbidA", "pfbidB"}, ids(posts))

	require.Greater(t, page.pass, 1, "feed should be listed again after scrolling")
	assert.Positive(t, page.finds[1])
	for pass := 2; pass <= page.pass; pass++ {
		assert.Zero(t, page.finds[pass], "pass %d looked into an already handled post", pass)
	}
	assert.Equal(t, page.pass, page.releases, "element handles should be dropped after every pass")
}
