package cli

import (
	"time"

	"github.com/law-makers/fbscrape/internal/scraper"
	urlutil "github.com/law-makers/fbscrape/internal/utils/url"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/spf13/cobra"
)

var (
	postOpts   scrapeFlags
	postOutput string
	postFormat string
	postSave   bool
)

var postCmd = &cobra.Command{
	Use:   "post <url>",
	Short: "Scrape a single post by its permalink",
	Example: `  fbscrape post https://www.facebook.com/nasa/posts/pfbid02abc
  fbscrape post "https://www.facebook.com/permalink.php?story_fbid=10158&id=4" -f md`,
	Args: cobra.ExactArgs(1),
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)

	postOpts.register(postCmd, false)
	postCmd.Flags().StringVarP(&postOutput, "output", "o", "", "Write the post to this file")
	postCmd.Flags().StringVarP(&postFormat, "format", "f", "", "Output format: json, csv or md")
	postCmd.Flags().BoolVar(&postSave, "save", false, "Store the post in the SQLite database")
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := appFrom(cmd)

	if err := urlutil.ValidateURL(args[0]); err != nil {
		return scraper.NewScrapeError(scraper.ErrCodeValidation, args[0], "post must be a full URL", err)
	}

	r, err := newRunner(a, &postOpts)
	if err != nil {
		return err
	}

	started := time.Now()
	results, err := r.scrape(ctx, []models.ScrapeOptions{r.options(args[0], true)})
	if err != nil {
		return err
	}
	posts, scrapeErr := collect(results)
	if scrapeErr != nil {
		return scrapeErr
	}

	if postSave {
		st, err := a.Store(ctx)
		if err != nil {
			return err
		}
		if err := persist(ctx, st, started, results); err != nil {
			return err
		}
	}
	return emit(posts, postOutput, postFormat)
}
