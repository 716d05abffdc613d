package extract

// Site DOM selectors, grouped by layout.
// Update these when the markup changes and extraction breaks.

const (
	OldLayoutMarker = "#pagelet_bluebar"

	// Post containers
	OldPost      = "div.userContentWrapper"
	NewGroupPost = "div[role='feed'] > div"
	NewPagePost  = "div[data-virtualized]"

	// Post link
	OldStatusLink     = "a._5pcq"
	NewGroupLinkAfter = `span > a[role="link"]`
	NewPageLinkAfter  = `span > a[href*="/posts/"][role="link"]`
	NewPhotoLink      = "a[href*='/photo/']"

	// Counters
	OldShares    = "._355t._4vn2"
	NewShares    = "div:nth-child(2) > span > div > div > div:nth-child(1) > span"
	OldComments  = "a._3hg-"
	NewComments  = "div:nth-child(1) > span > div > div > div:nth-child(1) > span"
	ReactionsBar = `[aria-label="See who reacted to this"]`

	// Content
	OldContent       = ".userContent"
	OldSeeMore       = "span.text_exposed_link > a"
	NewContent       = `[data-ad-preview="message"]`
	NewSeeMore       = `div[dir="auto"] > div[role]`
	PassageMessage   = `div[data-testid="post_message"]`
	OldPostedTime    = "abbr"
	NewGroupTimeAbbr = "abbr[data-utime]"
	NewGroupTimeTag  = "time[datetime]"

	// Media
	Video     = "video"
	OldImages = "img.scaledImageFitWidth.img"
	NewImages = "div > img[referrerpolicy]"

	// Photo viewer
	PhotoViewer      = `div[aria-label="Photo Viewer"]`
	PhotoViewerClose = `[aria-label="Close"]`
	PhotoViewerImage = "img[data-visualcompletion]"
	PhotoViewerNav   = `div[data-name="media-viewer-nav-container"] div[data-visualcompletion]`
	PhotoViewerExit  = `i[data-visualcompletion="css-img"]`

	// Author
	OldAuthor = "a._64-f"
	NewAuthor = "strong"
)

// newLinkCandidates are tried in order to find the timestamp link of a new layout post.
func newLinkCandidates(isGroup bool) []string {
	last := `span > a[target="_blank"][role="link"]`
	if isGroup {
		last = `span > a[role="link"]`
	}
	return []string{
		`span > a[attributionsrc][role="link"][href*="/posts/"]`,
		`span > a[attributionsrc][role="link"][href*="/permalink"]`,
		`span > a[attributionsrc][role="link"][href="#"]`,
		last,
	}
}
