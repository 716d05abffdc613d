package extract

import (
	"context"
	"strings"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/parse"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

// Status is a post's identity: its id, its URL and the timestamp link they
// were read from. Link is nil when no link was found.
type Status struct {
	ID   string
	URL  string
	Link browser.Element
}

// FindStatus locates the post's own link and derives its id
func (x *Extractor) FindStatus(ctx context.Context, post browser.Element, layout models.Layout, target Target) Status {
	if layout == models.LayoutOld {
		return x.oldStatus(ctx, post)
	}
	return x.newStatus(ctx, post, target)
}

func (x *Extractor) oldStatus(ctx context.Context, post browser.Element) Status {
	link, err := post.Find(ctx, OldStatusLink)
	if err != nil {
		warn(err, "status")
		return Status{}
	}
	href, err := link.Attr(ctx, "href")
	if err != nil {
		warn(err, "status")
		return Status{}
	}
	return Status{ID: parse.ExtractIDFromLink(href), URL: href, Link: link}
}

// newStatus hovers the timestamp link, which makes the site swap its
// placeholder href for the real permalink.
func (x *Extractor) newStatus(ctx context.Context, post browser.Element, target Target) Status {
	warn(post.ScrollIntoView(ctx), "status")

	link, err := browser.FindFirst(ctx, post, newLinkCandidates(target.IsGroup)...)
	if err != nil {
		warn(err, "status")
		return Status{}
	}

	warn(link.ScrollIntoView(ctx), "status")
	x.auto.CloseForceLoginPopup(ctx)
	warn(link.Hover(ctx), "status")
	x.auto.CloseForceLoginPopup(ctx)
	if err := x.auto.Pause(ctx, x.hoverWait); err != nil {
		return Status{Link: link}
	}

	after := NewPageLinkAfter
	if target.IsGroup {
		after = NewGroupLinkAfter
	}
	if real, err := post.Find(ctx, after); err == nil {
		link = real
	} else {
		warn(err, "status")
		if id := x.FindPostID(ctx, post, models.LayoutNew); id != "" {
			url := parse.BuildPostURL(target.Name, id)
			log.Debug().Str("url", url).Msg("Constructed post URL from photo link")
			return Status{ID: id, URL: url, Link: link}
		}
	}

	x.auto.CloseForceLoginPopup(ctx)

	href, err := link.Attr(ctx, "href")
	warn(err, "status")
	id := parse.ExtractIDFromLink(href)
	if !target.IsGroup && href != "" && id != "" {
		return Status{ID: id, URL: href, Link: link}
	}

	// Group posts: the first group link that names a post wins, then any
	// group link, then whatever the timestamp link gave.
	anchors, err := post.FindAll(ctx, "a")
	warn(err, "status")
	var firstGroupLink Status
	for _, a := range anchors {
		h, err := a.Attr(ctx, "href")
		if err != nil || !strings.Contains(h, "/groups/") {
			continue
		}
		st := Status{ID: parse.ExtractIDFromLink(h), URL: h, Link: a}
		if st.ID != "" {
			return st
		}
		if firstGroupLink.URL == "" {
			firstGroupLink = st
		}
	}
	if id == "" && firstGroupLink.URL != "" {
		return firstGroupLink
	}

	return Status{ID: id, URL: href, Link: link}
}

// FindPostID recovers the post id from the first photo link of a new
// layout post. The old layout carries no such link.
func (x *Extractor) FindPostID(ctx context.Context, post browser.Element, layout models.Layout) string {
	if layout == models.LayoutOld {
		return ""
	}
	links, err := post.FindAll(ctx, NewPhotoLink)
	if err != nil || len(links) == 0 {
		warn(err, "post_id")
		return ""
	}
	href, err := links[0].Attr(ctx, "href")
	if err != nil {
		warn(err, "post_id")
		return ""
	}
	return parse.PostIDFromPhotoURL(href)
}
