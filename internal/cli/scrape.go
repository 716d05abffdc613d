package cli

import (
	"time"

	"github.com/law-makers/fbscrape/internal/downloader"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/spf13/cobra"
)

var (
	scrapeOpts    scrapeFlags
	scrapeOutput  string
	scrapeFormat  string
	scrapeSave    bool
	scrapeMedia   string
	scrapeMediaTo string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <target>...",
	Short: "Scrape recent posts from pages or groups",
	Long: `Opens each target in headless Chrome, scrolls its feed and extracts up to
--count posts. A target is a page name (nasa), a group id with --group, or a
full facebook.com URL.

Several targets are scraped concurrently, one browser tab each. A target that
fails does not stop the others; the command exits non-zero if any failed.`,
	Example: `  # Ten latest posts of a page as JSON
  fbscrape scrape nasa

  # 50 posts from a group, logged in with a saved session, as CSV
  fbscrape scrape 1234567890 --group -n 50 -s main -o posts.csv

  # Only posts with more than 100 reactions, stored in the database
  fbscrape scrape nasa esa --filter "post.reactions.total > 100" --save

  # Download the images of the scraped posts
  fbscrape scrape nasa --download-media image --media-dir ./nasa`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeOpts.register(scrapeCmd, true)
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "Write posts to this file (format from extension)")
	scrapeCmd.Flags().StringVarP(&scrapeFormat, "format", "f", "", "Output format: json, csv or md")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "Store posts in the SQLite database")
	scrapeCmd.Flags().StringVar(&scrapeMedia, "download-media", "", "Download media after scraping: image, video or all")
	scrapeCmd.Flags().StringVar(&scrapeMediaTo, "media-dir", "", "Directory for downloaded media (default from config)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := appFrom(cmd)

	var mediaType downloader.MediaType
	if scrapeMedia != "" {
		t, err := downloader.ParseMediaType(scrapeMedia)
		if err != nil {
			return err
		}
		mediaType = t
	}

	r, err := newRunner(a, &scrapeOpts)
	if err != nil {
		return err
	}

	targets := make([]models.ScrapeOptions, 0, len(args))
	for _, t := range args {
		targets = append(targets, r.options(t, false))
	}

	started := time.Now()
	results, err := r.scrape(ctx, targets)
	if err != nil {
		return err
	}
	posts, scrapeErr := collect(results)

	if scrapeSave {
		st, err := a.Store(ctx)
		if err != nil {
			return err
		}
		if err := persist(ctx, st, started, results); err != nil {
			return err
		}
	}

	if err := emit(posts, scrapeOutput, scrapeFormat); err != nil {
		return err
	}

	if mediaType != "" {
		if err := download(ctx, a, posts, mediaType, scrapeMediaTo, 0); err != nil {
			return err
		}
	}
	return scrapeErr
}
