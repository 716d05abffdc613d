// Package browser is the driver layer the extractors talk to. A Page is a
// loaded document and an Element is a handle to one node inside it. Two
// drivers exist: a live Chrome tab driven over CDP and a static goquery
// snapshot of recorded HTML.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound    = errors.New("element not found")
	ErrStale       = errors.New("element is no longer attached to the document")
	ErrTimeout     = errors.New("timed out waiting for element")
	ErrUnsupported = errors.New("action not supported by this driver")
)

// Key is a keyboard key the page can receive
type Key string

const (
	KeyPageUp   Key = "PageUp"
	KeyPageDown Key = "PageDown"
)

// Cookie is a browser cookie to install before navigation
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  float64
	HTTPOnly bool
	Secure   bool
}

// ElementReleaser is a Page whose element handles hold driver memory.
// ReleaseElements invalidates every element handed out so far.
type ElementReleaser interface {
	ReleaseElements(ctx context.Context) error
}

// Element is a handle to a DOM node
type Element interface {
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// Ancestor returns the nearest ancestor (excluding the element itself) matching selector.
	Ancestor(ctx context.Context, selector string) (Element, error)
	Parent(ctx context.Context) (Element, error)
	NextSibling(ctx context.Context) (Element, error)
	// Attr returns the attribute value, "" when it is absent.
	Attr(ctx context.Context, name string) (string, error)
	// Text returns textContent.
	Text(ctx context.Context) (string, error)
	InnerText(ctx context.Context) (string, error)
	OuterHTML(ctx context.Context) (string, error)
	TagName(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	Hover(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Remove(ctx context.Context) error
	SetValue(ctx context.Context, value string) error
	SetAttr(ctx context.Context, name, value string) error
}

// Page is a loaded document
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// WaitFor polls until selector matches or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// ScrollTo scrolls the window to a fraction of the body height (1 is the bottom).
	ScrollTo(ctx context.Context, fraction float64) error
	PressKey(ctx context.Context, key Key, times int) error
	SetViewport(ctx context.Context, width, height int) error
	Eval(ctx context.Context, script string, out any) error
	SetCookies(ctx context.Context, cookies []Cookie) error
}

// Finder is anything that can be searched by selector: a Page or an Element.
type Finder interface {
	Find(ctx context.Context, selector string) (Element, error)
}

// FindFirst tries selectors in order against scope and returns the first
// match. Unexpected lookup errors are logged and the next selector is tried.
func FindFirst(ctx context.Context, scope Finder, selectors ...string) (Element, error) {
	for _, sel := range selectors {
		el, err := scope.Find(ctx, sel)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("selector", sel).Msg("Selector lookup failed")
		}
	}
	return nil, fmt.Errorf("%w: no match for selectors [%s]", ErrNotFound, strings.Join(selectors, ", "))
}

// Exists reports whether selector matches inside scope
func Exists(ctx context.Context, scope Finder, selector string) bool {
	_, err := scope.Find(ctx, selector)
	return err == nil
}

// IsStale reports whether el has been detached from its document
func IsStale(ctx context.Context, el Element) bool {
	_, err := el.TagName(ctx)
	return errors.Is(err, ErrStale)
}

// IsMissing reports whether err means "nothing there" rather than a driver failure.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrStale)
}

const pollInterval = 250 * time.Millisecond

// poll calls find until it succeeds, the timeout elapses or ctx is done.
func poll(ctx context.Context, selector string, timeout time.Duration, find func() (Element, error)) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, err := find()
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, selector, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
