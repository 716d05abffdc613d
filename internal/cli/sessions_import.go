package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/law-makers/fbscrape/internal/auth"
	"github.com/law-makers/fbscrape/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var importFormat string

var sessionsImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Create a session from cookies copied out of your browser",
	Long: `Creates a session from the cookies of a browser where you are already
logged in to Facebook. Useful on servers where neither login flow works.

Formats:
  - header: the Cookie request header, e.g. "c_user=...; xs=..." (default)
  - json: an array of cookies as exported by browser cookie extensions
  - netscape: a cookies.txt file as used by curl and wget

In the default format you are prompted to paste the header. The c_user and
xs cookies are the ones that keep the account signed in.`,
	Example: `  # Paste a Cookie header from DevTools > Network
  fbscrape sessions import main

  # From a cookies.txt export
  fbscrape sessions import main --format netscape < cookies.txt

  # From a JSON export
  fbscrape sessions import main --format json < cookies.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)
	sessionsImportCmd.Flags().StringVar(&importFormat, "format", string(auth.FormatHeader), "Cookie format: header, json or netscape")
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	name := args[0]
	format := auth.CookieFormat(strings.ToLower(importFormat))

	var in io.Reader = os.Stdin
	if format == auth.FormatHeader && isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Println("Open facebook.com logged in, DevTools > Network, pick any request and")
		fmt.Print("copy its Cookie header.\n\nCookie: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read cookie header: %w", err)
		}
		in = strings.NewReader(line)
	}

	cookies, err := auth.ParseCookies(in, format)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies imported")
	}

	session := auth.FromCookies(name, auth.LoginURL, cookies)
	if !session.SignedIn() {
		fmt.Println(ui.Warn("⚠️  No c_user cookie: this session will not be signed in"))
	}

	sessions, err := auth.NewStore()
	if err != nil {
		return err
	}
	if err := sessions.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Println(ui.Success(fmt.Sprintf("✓ Session %q created with %d cookies", name, len(cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("  Expires: %s\n", expiry(session))
	}
	return nil
}
