// internal/downloader/extractor.go
package downloader

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/law-makers/fbscrape/pkg/models"
)

// MediaType represents the type of media to download
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAll   MediaType = "all"
)

// ParseMediaType validates a --type flag value
func ParseMediaType(s string) (MediaType, error) {
	switch t := MediaType(strings.ToLower(s)); t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeAll:
		return t, nil
	case "":
		return MediaTypeAll, nil
	default:
		return "", fmt.Errorf("unknown media type %q (want image, video or all)", s)
	}
}

// Job is one media file of one post
type Job struct {
	URL      string
	PostID   string
	Filename string
}

// ExtractJobs lists the media of posts, named <post id>_<n><ext>. URLs that
// appear in several posts are downloaded once, under the first post.
func ExtractJobs(posts []models.Post, mediaType MediaType) []Job {
	seen := make(map[string]bool)
	var jobs []Job

	add := func(p models.Post, urls []string, prefix string) {
		n := 0
		for _, u := range urls {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			n++
			jobs = append(jobs, Job{
				URL:      u,
				PostID:   p.ID,
				Filename: fmt.Sprintf("%s_%s%d%s", p.ID, prefix, n, extension(u)),
			})
		}
	}

	for _, p := range posts {
		if mediaType == MediaTypeImage || mediaType == MediaTypeAll {
			add(p, p.Images, "img")
		}
		if mediaType == MediaTypeVideo || mediaType == MediaTypeAll {
			add(p, p.Videos, "vid")
		}
	}
	return jobs
}

// extension guesses a file extension from the URL path
func extension(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) > 5 || strings.ContainsAny(ext, "?&=") {
		return ""
	}
	return ext
}
