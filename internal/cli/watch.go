package cli

import (
	"context"
	"time"

	"github.com/law-makers/fbscrape/internal/watch"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	watchOpts   scrapeFlags
	watchEvery  time.Duration
	watchJitter time.Duration
	watchCron   string
)

var watchCmd = &cobra.Command{
	Use:   "watch <target>...",
	Short: "Scrape targets on a schedule into the database",
	Long: `Scrapes the targets right away and then again on every tick, storing new
and updated posts in the SQLite database and recording each run. Runs never
overlap; a slow run pushes the next one back. Stop with Ctrl-C.

Use "fbscrape export" and "fbscrape runs" to read the results.`,
	Example: `  # Every 30 minutes, with up to 5 minutes of random delay
  fbscrape watch nasa esa --every 30m --jitter 5m

  # At minute 0 of every hour, a group, logged in
  fbscrape watch 1234567890 --group --cron "0 * * * *" -s main`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchOpts.register(watchCmd, true)
	watchCmd.Flags().DurationVar(&watchEvery, "every", 0, "Interval between runs, e.g. 30m")
	watchCmd.Flags().DurationVar(&watchJitter, "jitter", 0, "Random extra delay added to each interval")
	watchCmd.Flags().StringVar(&watchCron, "cron", "", "Cron expression instead of --every")
	watchCmd.MarkFlagsMutuallyExclusive("every", "cron")
	watchCmd.MarkFlagsOneRequired("every", "cron")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := appFrom(cmd)

	st, err := a.Store(ctx)
	if err != nil {
		return err
	}
	r, err := newRunner(a, &watchOpts)
	if err != nil {
		return err
	}

	targets := make([]models.ScrapeOptions, 0, len(args))
	for _, t := range args {
		targets = append(targets, r.options(t, false))
	}

	// a run gets twice the per-target budget before it is abandoned
	timeout := 2 * a.Config.ScrapeTimeout
	if watchOpts.timeout > 0 {
		timeout = 2 * watchOpts.timeout
	}

	sched := watch.Schedule{Every: watchEvery, Jitter: watchJitter, Cron: watchCron}
	log.Info().Strs("targets", args).Str("cron", watchCron).Dur("every", watchEvery).Msg("Watching")

	return watch.Run(ctx, sched, timeout, func(ctx context.Context) error {
		started := time.Now()
		results, err := r.scrape(ctx, targets)
		if err != nil {
			return err
		}
		if err := persist(ctx, st, started, results); err != nil {
			return err
		}
		_, scrapeErr := collect(results)
		return scrapeErr
	})
}
