// Package extract reads individual post fields out of a rendered page.
//
// Every finder is best-effort: an element that is not there yields the
// field's zero value, and unexpected driver errors are logged and swallowed
// so one broken field never aborts a post.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/parse"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

// Target describes what is being scraped
type Target struct {
	// Name is the page name or group id used to build post URLs
	Name       string
	IsGroup    bool
	SinglePost bool
}

// PassageFetcher loads the full text of a post that only links to it
type PassageFetcher interface {
	FetchPassage(ctx context.Context, href string) (string, error)
}

// Extractor runs the field finders against one page
type Extractor struct {
	page      browser.Page
	auto      *automation.Helper
	passages  PassageFetcher
	now       func() time.Time
	hoverWait time.Duration
	viewWait  time.Duration
}

// Option customises an Extractor
type Option func(*Extractor)

// WithClock sets the reference time for relative timestamps
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.now = now }
}

// WithHoverWait sets how long to let hover-driven markup settle
func WithHoverWait(d time.Duration) Option {
	return func(x *Extractor) { x.hoverWait = d }
}

// WithViewerWait sets the pause between photo viewer steps
func WithViewerWait(d time.Duration) Option {
	return func(x *Extractor) { x.viewWait = d }
}

// New returns an Extractor over the helper's page. passages may be nil, in
// which case linked passages fall back to the visible text.
func New(auto *automation.Helper, passages PassageFetcher, opts ...Option) *Extractor {
	x := &Extractor{
		page:      auto.Page(),
		auto:      auto,
		passages:  passages,
		now:       time.Now,
		hoverWait: 2 * time.Second,
		viewWait:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// warn logs a field lookup failure unless it only means the element is absent
func warn(err error, field string) {
	if err == nil || browser.IsMissing(err) {
		return
	}
	log.Warn().Err(err).Str("field", field).Msg("Field extraction failed")
}

// DetectLayout reports which markup variant the page was served with
func (x *Extractor) DetectLayout(ctx context.Context) (models.Layout, error) {
	_, err := x.page.Find(ctx, OldLayoutMarker)
	switch {
	case err == nil:
		return models.LayoutOld, nil
	case browser.IsMissing(err):
		return models.LayoutNew, nil
	default:
		return models.LayoutNew, fmt.Errorf("detect layout: %w", err)
	}
}

// FindAllPosts returns the post containers currently in the DOM
func (x *Extractor) FindAllPosts(ctx context.Context, layout models.Layout, isGroup bool) ([]browser.Element, error) {
	selector := NewPagePost
	switch {
	case layout == models.LayoutOld:
		selector = OldPost
	case isGroup:
		selector = NewGroupPost
	}

	posts, err := x.page.FindAll(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("find posts %q: %w", selector, err)
	}
	return posts, nil
}

// StatusLink returns the first link that points at a post, or nil
func StatusLink(ctx context.Context, links []browser.Element) browser.Element {
	for _, link := range links {
		href, err := link.Attr(ctx, "href")
		if err != nil {
			warn(err, "status_link")
			continue
		}
		if parse.IsStatusLink(href) {
			return link
		}
	}
	return nil
}

// FindName returns the author name and profile URL found in scope
func (x *Extractor) FindName(ctx context.Context, scope browser.Finder, layout models.Layout) (name, url string) {
	selector := NewAuthor
	if layout == models.LayoutOld {
		selector = OldAuthor
	}

	el, err := scope.Find(ctx, selector)
	if err != nil {
		warn(err, "name")
		return "", ""
	}

	name = strings.TrimSpace(textContent(ctx, el))

	// The old layout's name element is the profile link itself.
	var a browser.Element = el
	if tag, _ := el.TagName(ctx); !strings.EqualFold(tag, "a") {
		a, err = el.Ancestor(ctx, "a")
	}
	if err != nil {
		a, err = el.Find(ctx, "a")
	}
	if err != nil {
		warn(err, "author_url")
		return name, ""
	}
	url, err = a.Attr(ctx, "href")
	warn(err, "author_url")
	return name, url
}

// FindVideoURLs returns the src of every video in the post, in document order
func (x *Extractor) FindVideoURLs(ctx context.Context, post browser.Element) []string {
	return srcs(ctx, post, Video, "videos")
}

// FindImageURLs returns the inline images of the post
func (x *Extractor) FindImageURLs(ctx context.Context, post browser.Element, layout models.Layout) []string {
	selector := NewImages
	if layout == models.LayoutOld {
		selector = OldImages
	}
	return srcs(ctx, post, selector, "images")
}

func srcs(ctx context.Context, scope browser.Element, selector, field string) []string {
	els, err := scope.FindAll(ctx, selector)
	if err != nil {
		warn(err, field)
		return []string{}
	}

	out := make([]string, 0, len(els))
	for _, el := range els {
		src, err := el.Attr(ctx, "src")
		if err != nil {
			warn(err, field)
			continue
		}
		if src != "" {
			out = append(out, src)
		}
	}
	return out
}
