package extract

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/internal/parse"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/rs/zerolog/log"
)

var moreImagesRe = regexp.MustCompile(`^\+(\d+)$`)

// Gallery is the result of walking a post's photo viewer
type Gallery struct {
	Images []string
	// PostID is recovered from the photo links and viewer URL, "" when unknown
	PostID string
}

// FindAllImageURLs returns every image of the post. Posts of the new
// layout show a few thumbnails plus a "+N" overlay, so the photo viewer is
// opened and stepped through until an image repeats or all are seen. Any
// failure along the way returns what was collected so far.
func (x *Extractor) FindAllImageURLs(ctx context.Context, post browser.Element, layout models.Layout) Gallery {
	visible := x.FindImageURLs(ctx, post, layout)
	if layout == models.LayoutOld {
		return Gallery{Images: visible}
	}

	thumbs, err := post.FindAll(ctx, NewImages)
	if err != nil || len(thumbs) == 0 {
		warn(err, "images")
		return Gallery{Images: visible}
	}

	warn(x.page.SetViewport(ctx, 1920, 1200), "images")
	x.closeViewer(ctx)

	expected := len(thumbs) + x.overlayCount(ctx, thumbs[len(thumbs)-1])
	log.Debug().Int("expected", expected).Msg("Counting post images")

	first, err := thumbs[0].Ancestor(ctx, "a")
	if err != nil {
		warn(err, "images")
		return Gallery{Images: visible}
	}
	href := attr(ctx, first, "href")
	g := Gallery{Images: visible, PostID: parse.PostIDFromPhotoURL(href)}
	if !strings.Contains(href, "/photo") {
		log.Debug().Str("href", href).Msg("Post has no photo viewer")
		return g
	}

	warn(first.ScrollIntoView(ctx), "images")
	if err := first.Click(ctx); err != nil {
		warn(err, "images")
		return g
	}

	if _, err := x.page.WaitFor(ctx, PhotoViewer, 30*time.Second); err != nil {
		warn(err, "images")
		return g
	}
	if u, err := x.page.URL(ctx); err == nil {
		if id := parse.PostIDFromPhotoURL(u); id != "" {
			g.PostID = id
		}
	}

	collected := x.walkViewer(ctx, expected)
	x.closeViewer(ctx)

	if len(collected) > 0 {
		g.Images = collected
	}
	return g
}

// walkViewer reads the current viewer image and presses "next" until an
// image repeats, the expected count is reached or the viewer stops responding.
func (x *Extractor) walkViewer(ctx context.Context, expected int) []string {
	var srcs []string
	for len(srcs) < expected {
		if err := x.auto.Pause(ctx, x.viewWait); err != nil {
			return srcs
		}

		img, err := x.page.Find(ctx, PhotoViewerImage)
		if err != nil {
			img, err = x.page.WaitFor(ctx, PhotoViewerImage, 5*x.viewWait)
		}
		if err != nil {
			warn(err, "images")
			return srcs
		}

		src := attr(ctx, img, "src")
		if src == "" || slices.Contains(srcs, src) {
			return srcs
		}
		srcs = append(srcs, src)
		log.Debug().Str("src", src).Msg("Image from photo viewer")

		x.auto.CloseForceLoginPopup(ctx)

		nav, err := x.page.FindAll(ctx, PhotoViewerNav)
		if err != nil || len(nav) < 2 {
			warn(err, "images")
			return srcs
		}
		if err := nav[1].Click(ctx); err != nil {
			warn(err, "images")
			return srcs
		}
		if _, err := x.page.WaitFor(ctx, PhotoViewerImage, 30*time.Second); err != nil {
			warn(err, "images")
			return srcs
		}
	}
	return srcs
}

// overlayCount reads the "+N" badge drawn over the last thumbnail
func (x *Extractor) overlayCount(ctx context.Context, last browser.Element) int {
	a, err := last.Ancestor(ctx, `a[href*="/photo"]`)
	if err != nil {
		return 0
	}
	parent, err := a.Parent(ctx)
	if err != nil {
		return 0
	}
	divs, err := parent.FindAll(ctx, "div")
	if err != nil {
		return 0
	}
	for _, d := range divs {
		if m := moreImagesRe.FindStringSubmatch(strings.TrimSpace(textContent(ctx, d))); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
	}
	return 0
}

func (x *Extractor) closeViewer(ctx context.Context) {
	viewer, err := x.page.Find(ctx, PhotoViewer)
	if err != nil {
		return
	}
	closer, err := browser.FindFirst(ctx, viewer, PhotoViewerExit, PhotoViewerClose)
	if err != nil {
		log.Debug().Msg("Photo viewer has no close control")
		return
	}
	warn(closer.Click(ctx), "images")
}
