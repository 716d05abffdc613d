// Package automation holds the page chores that surround extraction:
// dismissing popups and consent prompts, scrolling the feed and waiting for
// posts to render.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

// Selectors for the popups and prompts the site shows anonymous visitors.
const (
	ErrorPopupCloseSelector   = "a.layerCancel"
	ExpandingCTACloseSelector = "#expanding_cta_close_button"
	ModalCloseSelector        = `[aria-label="Close"]`
	ForceLoginContainer       = "div._fb-light-mode"
	CookieAcceptSelector      = `[aria-label="Allow essential and optional cookies"]`
	CookieAllowLabelSelector  = `div[aria-label*="Allow"]`
	DefaultSeeMoreSelector    = "span.see_more_link_inner"
	OldPostSelector           = ".userContentWrapper"
	NewPostSelector           = "[aria-posinset]"
	LoginEmailSelector        = "input[name='email']"
	LoginPasswordSelector     = "input[name='pass']"
)

// ForceLoginSelectors locate the sign-in form of the overlay that has no close button.
var ForceLoginSelectors = []string{
	"#login_popup_cta_form",
	`div[aria-label*="Login form for accessing your account"]`,
}

// SleepFunc pauses for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Helper runs automation chores against one page
type Helper struct {
	page         browser.Page
	rnd          *rand.Rand
	sleep        SleepFunc
	popupTimeout time.Duration
	scrollPause  func(r *rand.Rand) time.Duration
}

// Option customises a Helper
type Option func(*Helper)

// WithRand fixes the source of the random key-press counts and pauses
func WithRand(r *rand.Rand) Option {
	return func(h *Helper) { h.rnd = r }
}

// WithSleep replaces the pause implementation
func WithSleep(fn SleepFunc) Option {
	return func(h *Helper) { h.sleep = fn }
}

// WithPopupTimeout bounds how long popup dismissal waits for a popup to appear
func WithPopupTimeout(d time.Duration) Option {
	return func(h *Helper) { h.popupTimeout = d }
}

// New returns a Helper for page
func New(page browser.Page, opts ...Option) *Helper {
	h := &Helper{
		page:         page,
		rnd:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		sleep:        Sleep,
		popupTimeout: 10 * time.Second,
		scrollPause: func(r *rand.Rand) time.Duration {
			return time.Duration(5+r.IntN(2)) * time.Second
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Page returns the page the helper drives
func (h *Helper) Page() browser.Page {
	return h.page
}

// Sleep waits for d unless ctx ends first
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause waits for d using the helper's sleep function
func (h *Helper) Pause(ctx context.Context, d time.Duration) error {
	return h.sleep(ctx, d)
}

// between returns a random int in [lo, hi]
func (h *Helper) between(lo, hi int) int {
	return lo + h.rnd.IntN(hi-lo+1)
}

// waitAndClick clicks selector once it shows up. A popup that never shows is not an error.
func (h *Helper) waitAndClick(ctx context.Context, selector, what string) {
	el, err := h.page.WaitFor(ctx, selector, h.popupTimeout)
	if err != nil {
		if !browser.IsMissing(err) {
			log.Error().Err(err).Str("popup", what).Msg("Failed to look for popup")
		}
		return
	}
	if err := el.Click(ctx); err != nil && !browser.IsMissing(err) {
		log.Error().Err(err).Str("popup", what).Msg("Failed to close popup")
		return
	}
	log.Debug().Str("popup", what).Msg("Popup closed")
}

// CloseErrorPopup dismisses the "could not process your request" dialog
func (h *Helper) CloseErrorPopup(ctx context.Context) {
	h.waitAndClick(ctx, ErrorPopupCloseSelector, "error")
}

// ClosePopup dismisses the "Not Now" login prompt
func (h *Helper) ClosePopup(ctx context.Context) {
	h.waitAndClick(ctx, ExpandingCTACloseSelector, "login prompt")
}

// CloseForceLoginPopup deletes the login overlay that has no close button
func (h *Helper) CloseForceLoginPopup(ctx context.Context) {
	form, err := browser.FindFirst(ctx, h.page, ForceLoginSelectors...)
	if err != nil {
		log.Debug().Msg("Force login popup not found")
		return
	}

	popup, err := form.Ancestor(ctx, ForceLoginContainer)
	if err != nil {
		if !browser.IsMissing(err) {
			log.Error().Err(err).Msg("Failed to locate force login container")
			return
		}
		popup = form
	}

	if err := popup.Remove(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to remove force login popup")
		return
	}
	log.Info().Msg("Force login popup removed")
}

// CloseModernSignupModal scrolls to the bottom and closes the sign-up modal
func (h *Helper) CloseModernSignupModal(ctx context.Context) {
	if err := h.page.ScrollTo(ctx, 1); err != nil {
		log.Error().Err(err).Msg("Failed to scroll before closing signup modal")
		return
	}
	el, err := h.page.Find(ctx, ModalCloseSelector)
	if err != nil {
		return
	}
	if err := el.Click(ctx); err != nil && !browser.IsMissing(err) {
		log.Error().Err(err).Msg("Failed to close signup modal")
	}
}

// AcceptCookies clicks the last "allow all cookies" button. It reports whether a button was clicked.
func (h *Helper) AcceptCookies(ctx context.Context) bool {
	buttons, err := h.page.FindAll(ctx, CookieAcceptSelector)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look for cookie buttons")
		return false
	}
	if len(buttons) == 0 {
		return false
	}
	if err := buttons[len(buttons)-1].Click(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to accept cookies")
		return false
	}
	return true
}

// CloseCookieConsent clears the cookie prompt of the new layout: the allow
// button, or else the first div following the "Allow" label's wrapper.
func (h *Helper) CloseCookieConsent(ctx context.Context) {
	if h.AcceptCookies(ctx) {
		return
	}

	label, err := h.page.Find(ctx, CookieAllowLabelSelector)
	if err != nil {
		log.Info().Msg("Cookie consent prompt not found")
		return
	}
	wrapper, err := label.Parent(ctx)
	if err != nil {
		log.Info().Msg("Cookie consent prompt not found")
		return
	}

	for sib, err := wrapper.NextSibling(ctx); err == nil; sib, err = sib.NextSibling(ctx) {
		tag, _ := sib.TagName(ctx)
		if !strings.EqualFold(tag, "div") {
			continue
		}
		if err := sib.Click(ctx); err != nil {
			log.Info().Err(err).Msg("Failed to click cookie consent")
		}
		return
	}
	log.Info().Msg("Cookie consent prompt not found")
}

// ScrollDownHalf scrolls to the middle of the page
func (h *Helper) ScrollDownHalf(ctx context.Context) error {
	if err := h.page.ScrollTo(ctx, 0.5); err != nil {
		return fmt.Errorf("scroll down half: %w", err)
	}
	return nil
}

// ScrollDown loads more of the feed. The old layout jumps to the bottom. The
// new layout nudges up a little, pauses, then pages down, which is what makes
// the virtualised feed render the next batch.
func (h *Helper) ScrollDown(ctx context.Context, layout models.Layout) error {
	if layout == models.LayoutOld {
		if err := h.page.ScrollTo(ctx, 1); err != nil {
			return fmt.Errorf("scroll down: %w", err)
		}
		return nil
	}

	if err := h.page.PressKey(ctx, browser.KeyPageUp, h.between(1, 3)); err != nil {
		return fmt.Errorf("scroll up: %w", err)
	}
	if err := h.sleep(ctx, h.scrollPause(h.rnd)); err != nil {
		return err
	}
	if err := h.page.PressKey(ctx, browser.KeyPageDown, h.between(5, 8)); err != nil {
		return fmt.Errorf("scroll down: %w", err)
	}
	return nil
}

// WaitForPosts waits until the first post of layout is in the DOM. A false
// return means the page never rendered posts.
func (h *Helper) WaitForPosts(ctx context.Context, layout models.Layout, timeout time.Duration) bool {
	selector := NewPostSelector
	if layout == models.LayoutOld {
		selector = OldPostSelector
		if err := h.page.PressKey(ctx, browser.KeyPageDown, h.between(3, 5)); err != nil {
			log.Error().Err(err).Msg("Failed to page down while waiting for posts")
		}
	}

	if _, err := h.page.WaitFor(ctx, selector, timeout); err != nil {
		if browser.IsMissing(err) {
			log.Error().Str("layout", string(layout)).Msg("No posts were found")
		} else {
			log.Error().Err(err).Msg("Failed waiting for posts")
		}
		return false
	}

	log.Debug().Str("layout", string(layout)).Msg("Posts loaded")
	return true
}

// ClickSeeMore expands truncated text inside scope. An empty selector means
// the old layout's "See more" link. Missing links are ignored.
func (h *Helper) ClickSeeMore(ctx context.Context, scope browser.Element, selector string) {
	if selector == "" {
		selector = DefaultSeeMoreSelector
	}
	el, err := scope.Find(ctx, selector)
	if err != nil {
		if !browser.IsMissing(err) {
			log.Error().Err(err).Msg("Failed to find see more link")
		}
		return
	}
	if err := el.Click(ctx); err != nil && !browser.IsMissing(err) {
		log.Error().Err(err).Msg("Failed to click see more link")
	}
}

// ErrLoginForm is returned when the login inputs never appear
var ErrLoginForm = errors.New("login form not found")

// Login fills in and submits the login form of the current page
func (h *Helper) Login(ctx context.Context, username, password string) error {
	if el, err := h.page.WaitFor(ctx, ModalCloseSelector, 4*time.Second); err == nil {
		if err := el.Click(ctx); err != nil {
			log.Debug().Err(err).Msg("Failed to close pre-login modal")
		}
	} else {
		log.Debug().Msg("No pre-login modal")
	}

	if err := h.sleep(ctx, time.Second); err != nil {
		return err
	}

	email, err := h.page.WaitFor(ctx, LoginEmailSelector, 10*time.Second)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginForm, err)
	}
	pass, err := h.page.WaitFor(ctx, LoginPasswordSelector, 10*time.Second)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginForm, err)
	}

	if err := email.SetValue(ctx, username); err != nil {
		return fmt.Errorf("failed to fill email: %w", err)
	}
	if err := pass.SetValue(ctx, password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	submit, err := h.page.WaitFor(ctx, "button[type='submit']", 2*time.Second)
	if err != nil {
		if submit, err = h.page.WaitFor(ctx, "button", 2*time.Second); err != nil {
			return fmt.Errorf("login button not found: %w", err)
		}
	}
	if err := submit.Click(ctx); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	log.Info().Str("username", username).Msg("Login form submitted")
	return nil
}
