// Package scraper drives one browser page through a scrape: navigate, clear
// popups, scroll the feed and hand each new post to the field extractors.
package scraper

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/extract"
	"github.com/law-makers/fbscrape/internal/filter"
	"github.com/law-makers/fbscrape/internal/parse"
	"github.com/law-makers/fbscrape/internal/reqctx"
	"github.com/law-makers/fbscrape/internal/retry"
	urlutil "github.com/law-makers/fbscrape/internal/utils/url"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// singlePostSelector matches the post container of a permalink page
const singlePostSelector = `div[role="article"], ` + extract.OldPost

// Config holds the limits of a scrape run. Zero fields of ScrapeOptions fall
// back to these.
type Config struct {
	PostsCount       int
	Timeout          time.Duration
	MaxScrollRetries int
	// PostsWait bounds the wait for the first post to render
	PostsWait time.Duration
	// FullGallery opens the photo viewer to collect every image of a post
	FullGallery  bool
	ShowProgress bool
	Retry        retry.Config
}

// DefaultConfig returns the limits used by the CLI
func DefaultConfig() Config {
	return Config{
		PostsCount:       10,
		Timeout:          10 * time.Minute,
		MaxScrollRetries: 5,
		PostsWait:        10 * time.Second,
		ShowProgress:     true,
		Retry:            retry.DefaultConfig(),
	}
}

// Scraper scrapes posts from a single page
type Scraper struct {
	page    browser.Page
	auto    *automation.Helper
	x       *extract.Extractor
	cfg     Config
	filter  *filter.Filter
	cookies []browser.Cookie
	now     func() time.Time

	passages    extract.PassageFetcher
	autoOpts    []automation.Option
	extractOpts []extract.Option
	progressOut io.Writer
}

// Option customises a Scraper
type Option func(*Scraper)

// WithFilter keeps only the posts matching f
func WithFilter(f *filter.Filter) Option {
	return func(s *Scraper) { s.filter = f }
}

// WithCookies installs session cookies before the first navigation
func WithCookies(cookies []browser.Cookie) Option {
	return func(s *Scraper) { s.cookies = cookies }
}

// WithPassages sets the fetcher used for posts that link to their full text
func WithPassages(p extract.PassageFetcher) Option {
	return func(s *Scraper) { s.passages = p }
}

// WithAutomation passes options to the automation helper
func WithAutomation(opts ...automation.Option) Option {
	return func(s *Scraper) { s.autoOpts = append(s.autoOpts, opts...) }
}

// WithExtract passes options to the field extractor
func WithExtract(opts ...extract.Option) Option {
	return func(s *Scraper) { s.extractOpts = append(s.extractOpts, opts...) }
}

// WithClock sets the clock used for deadlines and ScrapedAt
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// WithProgressWriter sets where the progress bar is drawn
func WithProgressWriter(w io.Writer) Option {
	return func(s *Scraper) { s.progressOut = w }
}

// New creates a Scraper over page
func New(page browser.Page, cfg Config, opts ...Option) *Scraper {
	s := &Scraper{
		page:        page,
		cfg:         cfg,
		now:         time.Now,
		progressOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Retry.MaxAttempts <= 0 {
		s.cfg.Retry = retry.DefaultConfig()
	}

	s.auto = automation.New(page, s.autoOpts...)
	s.x = extract.New(s.auto, s.passages, append([]extract.Option{extract.WithClock(s.now)}, s.extractOpts...)...)
	return s
}

// Scrape collects up to the requested number of posts from one page or
// group. It stops early when the timeout passes or when scrolling stops
// turning up new posts; the posts gathered so far are returned either way.
func (s *Scraper) Scrape(ctx context.Context, opts models.ScrapeOptions) ([]models.Post, error) {
	ctx = reqctx.WithRequestContext(ctx, opts.Target)
	logger := reqctx.Logger(ctx)

	if opts.SinglePost {
		post, err := s.scrapePost(ctx, opts)
		if err != nil {
			return nil, err
		}
		return []models.Post{*post}, nil
	}

	pageURL, err := urlutil.TargetURL(opts.Target, opts.IsGroup)
	if err != nil {
		return nil, NewScrapeError(ErrCodeValidation, opts.Target, "invalid target", fmt.Errorf("%w: %v", ErrInvalidTarget, err))
	}

	count, timeout, maxRetries := s.limits(opts)
	target := extract.Target{Name: urlutil.TargetName(opts.Target), IsGroup: opts.IsGroup}

	layout, err := s.open(ctx, pageURL, opts)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("url", pageURL).Str("layout", string(layout)).Int("count", count).Msg("Scraping")

	s.dismissStartup(ctx, layout)
	if err := s.auto.ScrollDown(ctx, layout); err != nil {
		logger.Warn().Err(err).Msg("Initial scroll failed")
	}
	if !s.auto.WaitForPosts(ctx, layout, s.cfg.PostsWait) {
		return nil, NewScrapeError(ErrCodeNotFound, opts.Target, "posts never rendered", ErrNoPosts)
	}

	bar := s.progress(count, opts.Target)
	defer func() { _ = bar.Finish() }()

	start := s.now()
	seen := make(map[string]struct{})
	var posts []models.Post
	misses := 0

	for len(posts) < count {
		if err := ctx.Err(); err != nil {
			return posts, NewScrapeError(ErrCodeTimeout, opts.Target, "scrape interrupted", err)
		}
		if timeout > 0 && s.now().Sub(start) >= timeout {
			logger.Warn().Dur("timeout", timeout).Int("posts", len(posts)).Msg("Scrape timed out")
			break
		}

		s.dismissRecurring(ctx, layout)

		elements, err := s.x.FindAllPosts(ctx, layout, opts.IsGroup)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to list posts")
		}

		fresh := 0
		for _, el := range elements {
			if len(posts) >= count || ctx.Err() != nil {
				break
			}

			if s.visited(ctx, el) {
				continue
			}

			status := s.x.FindStatus(ctx, el, layout, target)
			if status.ID == "" {
				logger.Debug().Str("url", status.URL).Msg("Skipping post without id")
				continue
			}
			if _, dup := seen[status.ID]; dup {
				continue
			}
			seen[status.ID] = struct{}{}
			fresh++

			post := s.fill(ctx, el, layout, target, status)
			post.Target = target.Name
			if !s.keep(ctx, post) {
				continue
			}
			posts = append(posts, post)
			_ = bar.Add(1)
		}
		s.release(ctx)

		if fresh == 0 {
			misses++
			logger.Debug().Int("misses", misses).Msg("No new posts after scroll")
			if misses >= maxRetries {
				logger.Info().Int("posts", len(posts)).Msg("Feed exhausted")
				break
			}
		} else {
			misses = 0
		}

		if len(posts) >= count {
			break
		}
		if err := s.auto.ScrollDown(ctx, layout); err != nil {
			logger.Warn().Err(err).Msg("Scroll failed")
		}
	}

	logger.Info().
		Int("posts", len(posts)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Scrape finished")
	return posts, nil
}

// ScrapePost extracts the post shown at postURL
func (s *Scraper) ScrapePost(ctx context.Context, postURL string) (*models.Post, error) {
	ctx = reqctx.WithRequestContext(ctx, postURL)
	return s.scrapePost(ctx, models.ScrapeOptions{Target: postURL, SinglePost: true})
}

func (s *Scraper) scrapePost(ctx context.Context, opts models.ScrapeOptions) (*models.Post, error) {
	postURL := opts.Target
	if err := urlutil.ValidateURL(postURL); err != nil {
		return nil, NewScrapeError(ErrCodeValidation, postURL, "single post mode needs a post URL", fmt.Errorf("%w: %v", ErrInvalidTarget, err))
	}

	layout, err := s.open(ctx, postURL, opts)
	if err != nil {
		return nil, err
	}
	s.dismissStartup(ctx, layout)
	s.dismissRecurring(ctx, layout)

	el, err := s.page.WaitFor(ctx, singlePostSelector, s.cfg.PostsWait)
	if err != nil {
		return nil, NewScrapeError(ErrCodeNotFound, postURL, "post not found", fmt.Errorf("%w: %v", ErrNoPosts, err))
	}

	target := extract.Target{
		Name:       urlutil.TargetName(postURL),
		IsGroup:    opts.IsGroup || strings.Contains(postURL, "/groups/"),
		SinglePost: true,
	}
	status := s.x.FindStatus(ctx, el, layout, target)
	if status.ID == "" {
		status.ID = parse.ExtractIDFromLink(postURL)
	}
	if status.URL == "" {
		status.URL = postURL
	}

	post := s.fill(ctx, el, layout, target, status)
	post.Target = target.Name
	return &post, nil
}

// open installs cookies, navigates, logs in when credentials are given and
// detects the layout
func (s *Scraper) open(ctx context.Context, pageURL string, opts models.ScrapeOptions) (models.Layout, error) {
	logger := reqctx.Logger(ctx)

	if len(s.cookies) > 0 {
		if err := s.page.SetCookies(ctx, s.cookies); err != nil {
			return "", NewScrapeError(ErrCodeSessionError, pageURL, "failed to install session cookies", err)
		}
		logger.Debug().Int("cookies", len(s.cookies)).Msg("Session cookies installed")
	}

	err := retry.WithRetry(ctx, s.cfg.Retry, func() error {
		return s.page.Navigate(ctx, pageURL)
	})
	if err != nil {
		return "", NewScrapeError(ErrCodeNavigation, pageURL, "navigation failed", err).WithRetry()
	}

	if opts.Username != "" {
		if err := s.auto.Login(ctx, opts.Username, opts.Password); err != nil {
			return "", NewScrapeError(ErrCodeSessionError, pageURL, "login failed", err)
		}
		logger.Info().Str("user", opts.Username).Msg("Logged in")
	}

	layout, err := s.x.DetectLayout(ctx)
	if err != nil {
		return "", NewScrapeError(ErrCodeLayout, pageURL, "layout detection failed", fmt.Errorf("%w: %v", ErrLayout, err))
	}
	return layout, nil
}

// dismissStartup clears the prompts shown on first load
func (s *Scraper) dismissStartup(ctx context.Context, layout models.Layout) {
	s.auto.AcceptCookies(ctx)
	if layout == models.LayoutOld {
		s.auto.CloseErrorPopup(ctx)
		s.auto.ClosePopup(ctx)
	}
}

// dismissRecurring clears overlays that come back while scrolling
func (s *Scraper) dismissRecurring(ctx context.Context, layout models.Layout) {
	if layout == models.LayoutOld {
		s.auto.CloseForceLoginPopup(ctx)
		return
	}
	s.auto.CloseModernSignupModal(ctx)
	s.auto.CloseCookieConsent(ctx)
}

// fill runs every field finder against one post container
func (s *Scraper) fill(ctx context.Context, el browser.Element, layout models.Layout, target extract.Target, status extract.Status) models.Post {
	name, authorURL := s.x.FindName(ctx, el, layout)
	content := s.x.FindContent(ctx, el, layout)

	post := models.Post{
		ID:          status.ID,
		URL:         status.URL,
		AuthorName:  name,
		AuthorURL:   authorURL,
		Content:     content.Text,
		ContentHTML: content.HTML,
		PostedAt:    s.x.FindPostedTime(ctx, el, layout, status.Link, target),
		Reactions:   s.x.FindReactions(ctx, el, layout),
		Comments:    s.x.FindComments(ctx, el, layout),
		Shares:      s.x.FindShares(ctx, el, layout),
		Videos:      s.x.FindVideoURLs(ctx, el),
		Layout:      layout,
		ScrapedAt:   s.now().UTC(),
	}

	if s.cfg.FullGallery {
		post.Images = s.x.FindAllImageURLs(ctx, el, layout).Images
	} else {
		post.Images = s.x.FindImageURLs(ctx, el, layout)
	}

	if post.URL == "" && !target.IsGroup && target.Name != "" {
		post.URL = parse.BuildPostURL(target.Name, post.ID)
	}
	return post
}

// release drops the element handles of the pass that just finished
func (s *Scraper) release(ctx context.Context) {
	r, ok := s.page.(browser.ElementReleaser)
	if !ok {
		return
	}
	if err := r.ReleaseElements(ctx); err != nil {
		reqctx.Logger(ctx).Debug().Err(err).Msg("Failed to release elements")
	}
}

// visitedAttr marks post containers already handled in this page visit
const visitedAttr = "data-fbscrape-visited"

// visited reports whether el was handled on an earlier pass and marks it
// otherwise, so the costly status lookup runs once per container
func (s *Scraper) visited(ctx context.Context, el browser.Element) bool {
	if v, err := el.Attr(ctx, visitedAttr); err == nil && v != "" {
		return true
	}
	if err := el.SetAttr(ctx, visitedAttr, "1"); err != nil {
		reqctx.Logger(ctx).Debug().Err(err).Msg("Cannot mark post container")
	}
	return false
}

func (s *Scraper) keep(ctx context.Context, post models.Post) bool {
	if s.filter == nil {
		return true
	}
	ok, err := s.filter.Match(post)
	if err != nil {
		reqctx.Logger(ctx).Warn().Err(err).Str("post_id", post.ID).Msg("Filter failed, dropping post")
		return false
	}
	return ok
}

func (s *Scraper) limits(opts models.ScrapeOptions) (count int, timeout time.Duration, maxRetries int) {
	count, timeout, maxRetries = s.cfg.PostsCount, s.cfg.Timeout, s.cfg.MaxScrollRetries
	if opts.PostsCount > 0 {
		count = opts.PostsCount
	}
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if opts.MaxScrollRetries > 0 {
		maxRetries = opts.MaxScrollRetries
	}
	if count <= 0 {
		count = 10
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return count, timeout, maxRetries
}

func (s *Scraper) progress(count int, target string) *progressbar.ProgressBar {
	if !s.cfg.ShowProgress {
		return progressbar.DefaultSilent(int64(count))
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(s.progressOut),
		progressbar.OptionSetDescription(target),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
