package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/law-makers/fbscrape/internal/auth"
	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	loginUsername       string
	loginWait           string
	loginTimeout        time.Duration
	remoteDebuggingPort int
)

var loginCmd = &cobra.Command{
	Use:   "login <session-name>",
	Short: "Log in to Facebook and save the session",
	Long: `Logs in to Facebook and stores the session cookies in your OS keyring (or
~/.fbscrape/sessions when no keyring is available).

With --username the login form is filled in headless Chrome, using the
password from FBSCRAPE_PASSWORD. Without it a visible browser opens and you
log in by hand, which also gets you through checkpoints and two-factor
prompts.

Pass the session to scrape commands with --session.`,
	Example: `  # Log in by hand in a browser window
  fbscrape login main

  # Log in headlessly
  FBSCRAPE_PASSWORD=... fbscrape login main --username me@example.com

  # Log in from a dev container through Chrome remote debugging
  fbscrape login main --remote-debug 9222

  # Use the session
  fbscrape scrape 1234567890 --group --session main`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account email or phone for a headless login")
	loginCmd.Flags().StringVarP(&loginWait, "wait", "w", "", "CSS selector that appears once logged in (interactive only)")
	loginCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "Timeout for the login")
	loginCmd.Flags().IntVar(&remoteDebuggingPort, "remote-debug", 0, "Enable Chrome remote debugging on this port (interactive only)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := appFrom(cmd)
	name := args[0]

	sessions, err := auth.NewStore()
	if err != nil {
		return err
	}

	username := loginUsername
	if username == "" {
		username = a.Config.Username
	}

	fmt.Printf("\n%s\n", ui.Bold("🔐 Facebook Login"))
	fmt.Printf("  %s %s\n", ui.Bold("Session:"), name)
	if username != "" {
		fmt.Printf("  %s %s\n", ui.Bold("Account:"), username)
	}
	fmt.Printf("  %s %s\n\n", ui.Bold("Timeout:"), loginTimeout)

	var session *auth.SessionData
	if username != "" {
		if a.Config.Password == "" {
			return fmt.Errorf("set FBSCRAPE_PASSWORD to log in as %s", username)
		}

		pool, err := a.BrowserPool(ctx)
		if err != nil {
			return err
		}
		tab, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer pool.Release(tab)

		loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
		defer cancel()
		session, err = auth.PasswordLogin(loginCtx, tab.Page, name, username, a.Config.Password,
			automation.WithPopupTimeout(a.Config.PopupTimeout))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	} else {
		session, err = auth.InteractiveLogin(auth.LoginOptions{
			SessionName:         name,
			WaitSelector:        loginWait,
			Timeout:             loginTimeout,
			ChromePath:          a.Config.ChromePath,
			RemoteDebuggingPort: remoteDebuggingPort,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	log.Debug().Str("session", name).Int("cookies", len(session.Cookies)).Msg("Saving session")
	if err := sessions.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Println(ui.Success("✓ Session saved"))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("  Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\n  Use it with: %s\n\n", ui.Paint(ui.ColorCyan, "fbscrape scrape <target> --session "+name))
	return nil
}
