package cli

import (
	"context"
	"os"
	"time"

	"github.com/law-makers/fbscrape/internal/app"
	"github.com/law-makers/fbscrape/internal/config"
	"github.com/law-makers/fbscrape/internal/ui"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "fbscrape",
	Short: "Scrape posts from Facebook pages and groups",
	Long: `fbscrape drives headless Chrome through Facebook pages and groups and
extracts each post: author, text, posting time, reactions, comments, shares,
images and videos.

Both the classic and the current Facebook layouts are supported. Results can
be printed, written to JSON, CSV or Markdown, stored in a local SQLite
database and watched on a schedule.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appFrom(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		a.Quiet = cfg.LogLevel == "error"
		withApp(cmd, a)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp(cmd)
	},
}

func closeApp(cmd *cobra.Command) error {
	a := appFrom(cmd)
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.Close(ctx)
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		ui.Help(os.Stdout, cmd)
	})
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		return ui.Usage(os.Stderr, cmd)
	})
}

// Execute runs the command line. It returns the process exit code.
func Execute(ctx context.Context) int {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		// the post-run hook is skipped when RunE fails
		_ = closeApp(cmd)
		printError(err)
		return 1
	}
	return 0
}
