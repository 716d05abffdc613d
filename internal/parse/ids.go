// Package parse holds the string and URL helpers used by the field extractors:
// post id recovery from links, count parsing, and timestamp normalisation.
package parse

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	groupPostRe = regexp.MustCompile(`/groups/[^/]+/(?:posts|permalink)/([^/?#]+)`)
	postsRe     = regexp.MustCompile(`/posts/([^/?#]+)`)
	permalinkRe = regexp.MustCompile(`/permalink/([^/?#]+)`)
	videosRe    = regexp.MustCompile(`/videos/(?:[^/?#]+/)?(\d+)`)
	photosRe    = regexp.MustCompile(`/photos/(?:[^/?#]+/)?(\d+)`)
	eventsRe    = regexp.MustCompile(`/events/(\d+)`)
)

// ExtractIDFromLink returns the post identifier encoded in a post link,
// or "" when the link does not carry one.
func ExtractIDFromLink(link string) string {
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err == nil {
		q := u.Query()
		if v := q.Get("story_fbid"); v != "" {
			return v
		}
		if v := q.Get("fbid"); v != "" {
			return v
		}
	}

	for _, re := range []*regexp.Regexp{groupPostRe, postsRe, permalinkRe, videosRe, photosRe, eventsRe} {
		if m := re.FindStringSubmatch(link); m != nil {
			return m[1]
		}
	}
	return ""
}

// PostIDFromPhotoURL recovers a post id from a photo or event link. Photo
// links carry the album set ("set=a.<id>") or fall back to the fbid param.
func PostIDFromPhotoURL(link string) string {
	if strings.Contains(link, "/events") {
		if m := regexp.MustCompile(`/events/(\d+)/`).FindStringSubmatch(link); m != nil {
			return m[1]
		}
		return ""
	}
	if !strings.Contains(link, "/photo") {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	if set := q.Get("set"); set != "" {
		parts := strings.Split(set, ".")
		if len(parts) > 1 {
			return parts[1]
		}
	}
	return q.Get("fbid")
}

// StatusLinkMarkers are the href fragments that identify a post's own link
// among all anchors inside a post, in priority order.
var StatusLinkMarkers = []string{
	"/posts/",
	"/videos/pcb",
	"/photos/",
	"fbid=",
	"/group/",
	"/videos/",
	"/groups/",
}

// IsStatusLink reports whether href looks like a link to a post
func IsStatusLink(href string) bool {
	for _, m := range StatusLinkMarkers {
		if strings.Contains(href, m) {
			return true
		}
	}
	return false
}

// FacebookBase is the origin used to build canonical post links.
const FacebookBase = "https://www.facebook.com"

// BuildPostURL constructs the canonical URL of a page post
func BuildPostURL(pageName, postID string) string {
	return FacebookBase + "/" + strings.Trim(pageName, "/") + "/posts/" + postID
}
