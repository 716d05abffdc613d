package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/rs/zerolog/log"
)

// LoginURL is the page both login flows start from
const LoginURL = "https://www.facebook.com/login"

// SessionCookie is set only once the account is signed in
const SessionCookie = "c_user"

// ErrLoginFailed is returned when the browser never receives a session cookie
var ErrLoginFailed = errors.New("login failed: no session cookie")

// LoginOptions configures the interactive login behavior
type LoginOptions struct {
	// SessionName is the name to save the session as
	SessionName string
	// URL to navigate to for login
	URL string
	// WaitSelector is the CSS selector to wait for after login (e.g., "[aria-label='Your profile']")
	WaitSelector string
	// Timeout for the entire login process
	Timeout    time.Duration
	ChromePath string
	// RemoteDebuggingPort enables Chrome DevTools on this port (e.g., 9222)
	RemoteDebuggingPort int
}

// CookiePage is a page whose cookies can be read back
type CookiePage interface {
	browser.Page
	Cookies(ctx context.Context) ([]browser.Cookie, error)
}

// InteractiveLogin launches a visible browser for manual login
func InteractiveLogin(opts LoginOptions) (*SessionData, error) {
	if opts.SessionName == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if opts.URL == "" {
		opts.URL = LoginURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}

	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("interactive login requires a display server (DISPLAY not set)\n\n" +
			"💡 In headless environments, use:\n" +
			"   fbscrape login <name> --username=<email>   (password from FBSCRAPE_PASSWORD)\n" +
			"   fbscrape sessions import <name>            (cookies from your browser's DevTools)")
	}

	log.Info().
		Str("session", opts.SessionName).
		Str("url", opts.URL).
		Msg("Starting interactive login")

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1280, 900),
	}
	if path := browser.FindChrome(opts.ChromePath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	if opts.RemoteDebuggingPort > 0 {
		allocOpts = append(allocOpts,
			chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", opts.RemoteDebuggingPort)),
			chromedp.Flag("remote-debugging-address", "0.0.0.0"),
		)
		log.Info().Int("port", opts.RemoteDebuggingPort).Msg("Remote debugging enabled")
		fmt.Printf("\n🔧 Remote debugging enabled on port %d\n", opts.RemoteDebuggingPort)
		fmt.Printf("   Open chrome://inspect in your local Chrome and add localhost:%d\n", opts.RemoteDebuggingPort)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	page := browser.NewCDPPage(tabCtx)
	fmt.Println("\n🌐 Browser opened. Please complete the login process manually.")
	if err := page.Navigate(ctx, opts.URL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if opts.WaitSelector != "" {
		fmt.Printf("   Waiting for element: %s\n", opts.WaitSelector)
		if _, err := page.WaitFor(ctx, opts.WaitSelector, opts.Timeout); err != nil {
			return nil, fmt.Errorf("login timeout or failed: %w", err)
		}
	} else {
		fmt.Println("\n   Press Enter once you have completed login...")
		_, _ = fmt.Scanln()
	}

	session, err := capture(ctx, page, opts.SessionName, opts.URL)
	if err != nil {
		return nil, err
	}
	fmt.Printf("\n✓ Successfully captured %d cookies\n", len(session.Cookies))
	return session, nil
}

// PasswordLogin signs in by filling the login form of page and returns the
// resulting session
func PasswordLogin(ctx context.Context, page CookiePage, name, username, password string, opts ...automation.Option) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	if err := page.Navigate(ctx, LoginURL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	auto := automation.New(page, opts...)
	auto.AcceptCookies(ctx)
	if err := auto.Login(ctx, username, password); err != nil {
		return nil, err
	}
	// let the post-login redirect set its cookies
	if err := auto.Pause(ctx, 5*time.Second); err != nil {
		return nil, err
	}

	return capture(ctx, page, name, LoginURL)
}

// capture reads the page cookies and checks that they hold a signed-in session
func capture(ctx context.Context, page CookiePage, name, url string) (*SessionData, error) {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}

	signedIn := false
	for _, c := range cookies {
		if c.Name == SessionCookie && c.Value != "" {
			signedIn = true
			break
		}
	}
	if !signedIn {
		return nil, ErrLoginFailed
	}

	log.Info().Int("cookie_count", len(cookies)).Str("session", name).Msg("Cookies extracted")
	return NewSession(name, url, cookies), nil
}
