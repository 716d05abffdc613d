package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/parse"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

// maxDescribedByClimb bounds the walk from the link's parent to the element
// carrying aria-describedby.
const maxDescribedByClimb = 5

// FindPostedTime returns the post's publish time as ISO-8601, "" when unknown.
// link is the status link returned by FindStatus and may be nil.
func (x *Extractor) FindPostedTime(ctx context.Context, post browser.Element, layout models.Layout, link browser.Element, target Target) string {
	if layout == models.LayoutOld {
		abbr, err := post.Find(ctx, OldPostedTime)
		if err != nil {
			warn(err, "posted_time")
			return ""
		}
		return parse.UnixToISO(attr(ctx, abbr, "data-utime"))
	}
	if target.IsGroup {
		return x.groupPostedTime(ctx, post, link)
	}
	if link == nil {
		return ""
	}
	return x.tooltipPostedTime(ctx, link)
}

// tooltipPostedTime hovers the timestamp link and reads the tooltip it opens.
// The tooltip is tied to the link through aria-describedby on one of its
// ancestors.
func (x *Extractor) tooltipPostedTime(ctx context.Context, link browser.Element) string {
	warn(link.ScrollIntoView(ctx), "posted_time")
	warn(link.Hover(ctx), "posted_time")

	describedBy, err := describedBy(ctx, link)
	if err != nil {
		warn(err, "posted_time")
		return ""
	}

	id := strings.ReplaceAll(describedBy, ":", "")
	tooltip, err := x.page.WaitFor(ctx, fmt.Sprintf(`[id*="%s"]`, id), x.hoverWait)
	if err != nil {
		warn(err, "posted_time")
		return ""
	}

	text := strings.TrimSpace(innerText(ctx, tooltip))
	log.Debug().Str("tooltip", text).Msg("Read timestamp tooltip")
	return parse.ToISO(text, x.now())
}

func describedBy(ctx context.Context, link browser.Element) (string, error) {
	el, err := link.Parent(ctx)
	if err != nil {
		return "", err
	}
	for i := 0; ; i++ {
		v, err := el.Attr(ctx, "aria-describedby")
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		if i >= maxDescribedByClimb {
			return "", fmt.Errorf("%w: aria-describedby", browser.ErrNotFound)
		}
		if el, err = el.Parent(ctx); err != nil {
			return "", err
		}
	}
}

// groupPostedTime reads the group post timestamp from whatever the markup
// exposes: the link label, a data-utime abbr or a time element.
func (x *Extractor) groupPostedTime(ctx context.Context, post, link browser.Element) string {
	if link != nil {
		if label := attr(ctx, link, "aria-label"); label != "" {
			if iso := parse.ToISO(label, x.now()); iso != "" {
				return iso
			}
		}
	}
	if abbr, err := post.Find(ctx, NewGroupTimeAbbr); err == nil {
		if iso := parse.UnixToISO(attr(ctx, abbr, "data-utime")); iso != "" {
			return iso
		}
	}
	if tm, err := post.Find(ctx, NewGroupTimeTag); err == nil {
		if v := attr(ctx, tm, "datetime"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return parse.FormatISO(t)
			}
		}
	}
	return ""
}
