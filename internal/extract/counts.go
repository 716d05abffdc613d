package extract

import (
	"context"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/parse"
	"github.com/law-makers/fbscrape/pkg/models"
)

// FindShares returns the share count, 0 when the post shows none
func (x *Extractor) FindShares(ctx context.Context, post browser.Element, layout models.Layout) int {
	if layout == models.LayoutOld {
		return count(ctx, post, OldShares, false, "shares")
	}
	return count(ctx, post, NewShares, true, "shares")
}

// FindComments returns the comment count, 0 when the post shows none
func (x *Extractor) FindComments(ctx context.Context, post browser.Element, layout models.Layout) int {
	if layout == models.LayoutOld {
		return count(ctx, post, OldComments, false, "comments")
	}
	return count(ctx, post, NewComments, true, "comments")
}

// count reads the first number in the selected element. The new layout is
// read as rendered text, the old one as textContent.
func count(ctx context.Context, post browser.Element, selector string, rendered bool, field string) int {
	el, err := post.Find(ctx, selector)
	if err != nil {
		warn(err, field)
		return 0
	}

	var text string
	if rendered {
		text, err = el.InnerText(ctx)
	} else {
		text, err = el.Text(ctx)
	}
	if err != nil {
		warn(err, field)
		return 0
	}
	return parse.ExtractNumber(text)
}

// FindReactions reads the reaction breakdown from the labels of the
// "See who reacted" toolbar. Old layout entries are links, new ones divs.
func (x *Extractor) FindReactions(ctx context.Context, post browser.Element, layout models.Layout) models.Reactions {
	bar, err := post.Find(ctx, ReactionsBar)
	if err != nil {
		warn(err, "reactions")
		return models.Reactions{}
	}

	tag := "div"
	if layout == models.LayoutOld {
		tag = "a"
	}
	items, err := bar.FindAll(ctx, tag)
	if err != nil {
		warn(err, "reactions")
		return models.Reactions{}
	}

	labels := make([]string, 0, len(items))
	for _, item := range items {
		label, err := item.Attr(ctx, "aria-label")
		if err != nil {
			warn(err, "reactions")
			continue
		}
		if label != "" {
			labels = append(labels, label)
		}
	}
	return parse.ParseReactions(labels)
}
