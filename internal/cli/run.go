package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/law-makers/fbscrape/internal/app"
	"github.com/law-makers/fbscrape/internal/auth"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/downloader"
	"github.com/law-makers/fbscrape/internal/filter"
	"github.com/law-makers/fbscrape/internal/scraper"
	"github.com/law-makers/fbscrape/internal/store"
	"github.com/law-makers/fbscrape/internal/ui"
	"github.com/law-makers/fbscrape/internal/utils/headers"
	"github.com/law-makers/fbscrape/internal/utils/output"
	urlutil "github.com/law-makers/fbscrape/internal/utils/url"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// scrapeFlags are shared by scrape, post and watch
type scrapeFlags struct {
	group       bool
	count       int
	timeout     time.Duration
	filter      string
	session     string
	username    string
	headers     []string
	concurrency int
	fullGallery bool
}

func (f *scrapeFlags) register(cmd *cobra.Command, feed bool) {
	fs := cmd.Flags()
	if feed {
		fs.BoolVarP(&f.group, "group", "g", false, "Targets are group ids or names")
		fs.IntVarP(&f.count, "count", "n", 0, "Posts to collect per target (default from config, 10)")
		fs.DurationVar(&f.timeout, "scrape-timeout", 0, "Stop scrolling a target after this long (default from config, 10m)")
		fs.IntVarP(&f.concurrency, "concurrency", "c", 0, "Targets scraped at once (default tuned to CPU and memory)")
	}
	fs.StringVar(&f.filter, "filter", "", "JavaScript expression over `post` that must be true to keep a post")
	fs.StringVarP(&f.session, "session", "s", "", "Saved session to scrape with")
	fs.StringVar(&f.username, "username", "", "Log in with this account (password from FBSCRAPE_PASSWORD)")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "Extra header for passage fetches, e.g. -H \"Accept-Language: en\"")
	fs.BoolVar(&f.fullGallery, "full-gallery", false, "Open the photo viewer to collect every image of a post")
}

// runner holds what a scrape command resolved from its flags
type runner struct {
	app     *app.Application
	filter  *filter.Filter
	cookies []browser.Cookie
	flags   *scrapeFlags
}

func newRunner(a *app.Application, f *scrapeFlags) (*runner, error) {
	r := &runner{app: a, flags: f}

	if f.filter != "" {
		compiled, err := filter.Compile(f.filter)
		if err != nil {
			return nil, err
		}
		r.filter = compiled
	}

	if len(f.headers) > 0 {
		h, err := headers.Parse(f.headers)
		if err != nil {
			return nil, err
		}
		a.SetHeaders(h)
	}

	if f.fullGallery {
		a.Config.FullGallery = true
	}

	if f.session != "" {
		sessions, err := auth.NewStore()
		if err != nil {
			return nil, err
		}
		session, err := sessions.Load(f.session)
		if err != nil {
			return nil, scraper.NewScrapeError(scraper.ErrCodeSessionError, "", "cannot use session "+f.session, err)
		}
		if !session.SignedIn() {
			log.Warn().Str("session", f.session).Msg("Session has no account cookie; scraping as a visitor")
		}
		r.cookies = session.BrowserCookies()
	}
	return r, nil
}

// options builds the per-target scrape options
func (r *runner) options(target string, single bool) models.ScrapeOptions {
	username := r.flags.username
	if username == "" {
		username = r.app.Config.Username
	}
	opts := models.ScrapeOptions{
		Target:      target,
		IsGroup:     r.flags.group,
		SinglePost:  single,
		PostsCount:  r.flags.count,
		Timeout:     r.flags.timeout,
		SessionName: r.flags.session,
	}
	// a saved session already carries the login
	if len(r.cookies) == 0 && username != "" {
		opts.Username = username
		opts.Password = r.app.Config.Password
	}
	return opts
}

// scrape runs every target on the browser pool and returns the results in
// completion order
func (r *runner) scrape(ctx context.Context, targets []models.ScrapeOptions) ([]models.ScrapeResult, error) {
	pool, err := r.app.BrowserPool(ctx)
	if err != nil {
		return nil, scraper.NewScrapeError(scraper.ErrCodeBrowser, "", "cannot start Chrome", err)
	}

	concurrency := r.flags.concurrency
	if concurrency <= 0 {
		concurrency = min(scraper.OptimalConcurrency(), pool.Size())
	}

	opts := []scraper.Option{scraper.WithCookies(r.cookies)}
	if r.filter != nil {
		opts = append(opts, scraper.WithFilter(r.filter))
	}
	// interleaved bars are unreadable
	if len(targets) > 1 {
		opts = append(opts, scraper.WithProgressWriter(io.Discard))
	}

	batch := scraper.NewBatch(scraper.PoolPages{Pool: pool}, func(page browser.Page) *scraper.Scraper {
		return r.app.NewScraper(page, opts...)
	}, concurrency)

	log.Debug().Int("targets", len(targets)).Int("concurrency", batch.Concurrency()).Msg("Starting scrape")

	var results []models.ScrapeResult
	for res := range batch.Run(ctx, targets) {
		if res.Error == nil {
			log.Info().Str("target", res.Target).Int("posts", len(res.Posts)).Msg("Target done")
		}
		results = append(results, res)
	}
	return results, nil
}

// persist stores each result and records the run
func persist(ctx context.Context, st *store.Store, started time.Time, results []models.ScrapeResult) error {
	for _, res := range results {
		run := &store.Run{Target: urlutil.TargetName(res.Target), StartedAt: started, Posts: len(res.Posts)}
		if res.Error != nil {
			run.Error = res.Error.Error()
		}

		fresh, err := st.UpsertPosts(ctx, res.Posts)
		if err != nil {
			return err
		}
		run.NewPosts = fresh
		if err := st.RecordRun(ctx, run); err != nil {
			return err
		}
		log.Info().Str("target", res.Target).Int("new", fresh).Msg("Posts stored")
	}
	return nil
}

// collect flattens results and joins their errors
func collect(results []models.ScrapeResult) ([]models.Post, error) {
	var (
		posts []models.Post
		errs  []error
	)
	for _, res := range results {
		posts = append(posts, res.Posts...)
		if res.Error != nil {
			errs = append(errs, res.Error)
		}
	}
	return posts, errors.Join(errs...)
}

// emit writes posts to path, or to stdout when path is empty
func emit(posts []models.Post, path, format string) error {
	var f output.Format
	if format != "" || path == "" {
		parsed, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		f = parsed
	}

	if path == "" {
		return output.Write(os.Stdout, posts, f)
	}
	if err := output.Save(path, posts, f); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("✓ Saved %d posts to %s", len(posts), path)))
	return nil
}

// download fetches the media of posts into dir and prints a summary
func download(ctx context.Context, a *app.Application, posts []models.Post, mediaType downloader.MediaType, dir string, workers int) error {
	jobs := downloader.ExtractJobs(posts, mediaType)
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, ui.Info("No media to download"))
		return nil
	}
	if dir == "" {
		dir = a.Config.MediaDir
	}

	results := a.Downloads(workers).DownloadBatch(ctx, jobs, downloader.DownloadOptions{OutputDir: dir})

	var ok, skipped, failed int
	var bytes int64
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
		case res.Success:
			ok++
			bytes += res.Size
		default:
			failed++
		}
	}

	fmt.Fprintf(os.Stderr, "%s %d downloaded (%.1f MB), %d already present, %d failed → %s\n",
		ui.Success("✓"), ok, float64(bytes)/(1<<20), skipped, failed, dir)
	if failed > 0 && ok == 0 && skipped == 0 {
		return fmt.Errorf("all %d downloads failed", failed)
	}
	return nil
}

// printError renders err for the terminal, with a hint for scrape errors
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.Error("Error:"), err)

	var hint string
	switch scraper.CodeOf(err) {
	case scraper.ErrCodeNotFound:
		hint = "The page showed no posts. It may need a login: try --session or --username."
	case scraper.ErrCodeNavigation:
		hint = "Facebook could not be reached. Check the network or --proxy."
	case scraper.ErrCodeSessionError:
		hint = "Create a session with \"fbscrape login\" or \"fbscrape sessions import\"."
	case scraper.ErrCodeBrowser:
		hint = "Chrome could not start. Install Chrome or pass --chrome-path."
	}
	if hint != "" {
		fmt.Fprintln(os.Stderr, ui.Info(hint))
	}
}
