package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/law-makers/fbscrape/internal/store"
	"github.com/law-makers/fbscrape/internal/ui"
	urlutil "github.com/law-makers/fbscrape/internal/utils/url"
	"github.com/spf13/cobra"
)

var (
	exportTarget string
	exportSince  time.Duration
	exportLimit  uint64
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored posts",
	Example: `  # Everything stored for one page as CSV
  fbscrape export --target nasa -o nasa.csv

  # Posts scraped in the last day as Markdown
  fbscrape export --since 24h -f md`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := appFrom(cmd).Store(ctx)
		if err != nil {
			return err
		}

		q := store.Query{Target: storedTarget(exportTarget), Limit: exportLimit}
		if exportSince > 0 {
			q.Since = time.Now().Add(-exportSince)
		}
		posts, err := st.Posts(ctx, q)
		if err != nil {
			return err
		}
		return emit(posts, exportOutput, exportFormat)
	},
}

var runsLimit uint64

var runsCmd = &cobra.Command{
	Use:   "runs [target]",
	Short: "List recorded scrape runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := appFrom(cmd).Store(ctx)
		if err != nil {
			return err
		}

		target := ""
		if len(args) == 1 {
			target = storedTarget(args[0])
		}
		runs, err := st.Runs(ctx, target, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println(ui.Info("No runs recorded yet. Use --save or \"fbscrape watch\"."))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Started", "Target", "Posts", "New", "Took", "Error"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.StartedAt.Local().Format("2006-01-02 15:04"), r.Target, r.Posts, r.NewPosts,
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second), r.Error,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

// storedTarget maps a target as typed on the command line to the target
// recorded on posts
func storedTarget(target string) string {
	return urlutil.TargetName(target)
}

func init() {
	rootCmd.AddCommand(exportCmd, runsCmd)

	exportCmd.Flags().StringVarP(&exportTarget, "target", "t", "", "Only posts of this page or group")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "Only posts scraped within this long, e.g. 24h")
	exportCmd.Flags().Uint64VarP(&exportLimit, "limit", "n", 0, "At most this many posts")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write posts to this file (format from extension)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: json, csv or md")

	runsCmd.Flags().Uint64VarP(&runsLimit, "limit", "n", 20, "At most this many runs")
}
