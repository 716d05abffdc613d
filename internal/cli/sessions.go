package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/auth"
	"github.com/law-makers/fbscrape/internal/ui"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved Facebook sessions",
	Long: `List, view, import and delete saved sessions.

Sessions hold the cookies of a logged-in Facebook account and are stored in
your OS keyring, or in ~/.fbscrape/sessions when no keyring is available.`,
	Example: `  fbscrape sessions list
  fbscrape sessions view main
  fbscrape sessions import main --format netscape < cookies.txt
  fbscrape sessions delete old --yes`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <session-name>",
	Short: "Show a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsView,
}

var deleteYes bool

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsViewCmd, sessionsDeleteCmd)

	sessionsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")
}

// expiry describes when a session expires
func expiry(s *auth.SessionData) string {
	if s.ExpiresAt.IsZero() {
		return "at browser close"
	}
	return fmt.Sprintf("%s (in %s)", s.ExpiresAt.Format(time.RFC1123), time.Until(s.ExpiresAt).Round(time.Hour))
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	sessions, err := auth.NewStore()
	if err != nil {
		return err
	}
	names, err := sessions.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("\nNo saved sessions.")
		fmt.Println("\nCreate one with:")
		fmt.Println("  fbscrape login <name>")
		fmt.Println("  fbscrape sessions import <name>")
		fmt.Println()
		return nil
	}

	fmt.Printf("\n%s\n\n", ui.Bold(fmt.Sprintf("📋 Saved Sessions (%d)", len(names))))
	for i, name := range names {
		fmt.Printf("%d. %s\n", i+1, ui.Paint(ui.ColorCyan, name))

		s, err := sessions.Load(name)
		switch {
		case errors.Is(err, auth.ErrSessionExpired):
			fmt.Printf("   %s\n", ui.Warn("⚠️  Expired"))
		case err != nil:
			fmt.Printf("   %s\n", ui.Error(fmt.Sprintf("⚠️  %v", err)))
		default:
			status := "visitor"
			if s.SignedIn() {
				status = "signed in"
			}
			fmt.Printf("   Cookies: %d (%s)\n", len(s.Cookies), status)
			fmt.Printf("   Created: %s\n", s.CreatedAt.Format(time.RFC1123))
			fmt.Printf("   Expires: %s\n", expiry(s))
		}
	}
	fmt.Println()
	return nil
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	sessions, err := auth.NewStore()
	if err != nil {
		return err
	}
	name := args[0]
	s, err := sessions.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load session %q: %w", name, err)
	}

	fmt.Printf("\n%s\n\n", ui.Bold("🔍 Session "+name))
	fmt.Printf("URL:        %s\n", s.URL)
	fmt.Printf("Created:    %s\n", s.CreatedAt.Format(time.RFC1123))
	fmt.Printf("Expires:    %s\n", expiry(s))
	fmt.Printf("Signed in:  %t\n", s.SignedIn())

	fmt.Printf("\nCookies (%d):\n", len(s.Cookies))
	for i, c := range s.Cookies {
		if i >= 8 {
			fmt.Printf("  ... and %d more\n", len(s.Cookies)-8)
			break
		}
		fmt.Printf("  • %s (domain: %s)\n", c.Name, c.Domain)
	}
	fmt.Println()
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !deleteYes {
		fmt.Printf("\n⚠️  Delete session %q? [y/N]: ", name)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	sessions, err := auth.NewStore()
	if err != nil {
		return err
	}
	if err := sessions.Delete(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Println(ui.Success(fmt.Sprintf("✓ Session %q deleted", name)))
	return nil
}
