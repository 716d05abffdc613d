package extract

import (
	"context"
	"strings"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

// Content is a post's text and the markup it came from
type Content struct {
	Text string
	HTML string
}

// FindContent returns the full text of the post. Truncated posts are
// expanded in place, or fetched over HTTP when "See more" opens a new tab.
func (x *Extractor) FindContent(ctx context.Context, post browser.Element, layout models.Layout) Content {
	if layout == models.LayoutOld {
		return x.oldContent(ctx, post)
	}
	return x.newContent(ctx, post)
}

func (x *Extractor) oldContent(ctx context.Context, post browser.Element) Content {
	msg, err := post.Find(ctx, OldContent)
	if err != nil {
		warn(err, "content")
		return Content{}
	}

	var (
		text    string
		fetched bool
	)
	more, err := msg.Find(ctx, OldSeeMore)
	switch {
	case err != nil:
		warn(err, "content")
		text = textContent(ctx, msg)
	case attr(ctx, more, "onclick") != "":
		x.auto.ClickSeeMore(ctx, msg, "")
		text = paragraphs(ctx, msg)
	case attr(ctx, more, "target") != "":
		text, fetched = x.passage(ctx, more, msg, textContent)
	default:
		text = textContent(ctx, msg)
	}

	return content(ctx, msg, text, fetched)
}

func (x *Extractor) newContent(ctx context.Context, post browser.Element) Content {
	msg, err := post.Find(ctx, NewContent)
	if err != nil {
		warn(err, "content")
		return Content{}
	}

	var (
		text    string
		fetched bool
	)
	more, err := msg.Find(ctx, NewSeeMore)
	switch {
	case err != nil:
		warn(err, "content")
		text = innerText(ctx, msg)
	case attr(ctx, more, "target") != "":
		text, fetched = x.passage(ctx, more, msg, innerText)
	default:
		x.auto.ClickSeeMore(ctx, msg, NewSeeMore)
		text = innerText(ctx, msg)
	}

	return content(ctx, msg, text, fetched)
}

// content pairs text with the message markup. A fetched passage has no
// markup here, since msg only holds the teaser.
func content(ctx context.Context, msg browser.Element, text string, fetched bool) Content {
	c := Content{Text: strings.TrimSpace(text)}
	if !fetched {
		c.HTML = outerHTML(ctx, msg)
	}
	return c
}

// passage fetches the linked full text, falling back to the visible text.
// fetched reports whether the text came from the link.
func (x *Extractor) passage(ctx context.Context, link, msg browser.Element, visible func(context.Context, browser.Element) string) (text string, fetched bool) {
	href := attr(ctx, link, "href")
	if x.passages == nil || href == "" {
		return visible(ctx, msg), false
	}
	text, err := x.passages.FetchPassage(ctx, href)
	if err != nil {
		log.Warn().Err(err).Str("url", href).Msg("Failed to fetch post passage")
		return visible(ctx, msg), false
	}
	return text, true
}

// paragraphs joins the text of every <p> in el, or its whole text when it has none
func paragraphs(ctx context.Context, el browser.Element) string {
	ps, err := el.FindAll(ctx, "p")
	if err != nil || len(ps) == 0 {
		warn(err, "content")
		return textContent(ctx, el)
	}

	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		if t := strings.TrimSpace(textContent(ctx, p)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func attr(ctx context.Context, el browser.Element, name string) string {
	v, err := el.Attr(ctx, name)
	warn(err, name)
	return v
}

func textContent(ctx context.Context, el browser.Element) string {
	v, err := el.Text(ctx)
	warn(err, "content")
	return v
}

func innerText(ctx context.Context, el browser.Element) string {
	v, err := el.InnerText(ctx)
	warn(err, "content")
	return v
}

func outerHTML(ctx context.Context, el browser.Element) string {
	v, err := el.OuterHTML(ctx)
	warn(err, "content_html")
	return v
}
