package models

import "time"

// Layout identifies which front-end markup variant a page was rendered with
type Layout string

const (
	LayoutOld Layout = "old"
	LayoutNew Layout = "new"
)

// Reactions holds the per-kind reaction breakdown of a post
type Reactions struct {
	Like  int `json:"like"`
	Love  int `json:"love"`
	Wow   int `json:"wow"`
	Care  int `json:"care"`
	Sad   int `json:"sad"`
	Angry int `json:"angry"`
	Haha  int `json:"haha"`
	Total int `json:"total"`
}

// Sum returns the sum of all per-kind counts
func (r Reactions) Sum() int {
	return r.Like + r.Love + r.Wow + r.Care + r.Sad + r.Angry + r.Haha
}

// Post represents a single scraped post. Every field is best-effort: a field
// that could not be located is left at its zero value.
type Post struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	AuthorName  string    `json:"author_name"`
	AuthorURL   string    `json:"author_url"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"-"`
	PostedAt    string    `json:"posted_at"`
	Reactions   Reactions `json:"reactions"`
	Comments    int       `json:"comments"`
	Shares      int       `json:"shares"`
	Images      []string  `json:"images"`
	Videos      []string  `json:"videos"`
	Layout      Layout    `json:"layout,omitempty"`
	Target      string    `json:"target,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// ScrapeOptions contains options for a single scrape run
type ScrapeOptions struct {
	// Target is a page name, a group id, or a full post/page URL
	Target           string
	IsGroup          bool
	SinglePost       bool
	PostsCount       int
	Timeout          time.Duration
	MaxScrollRetries int
	SessionName      string
	Username         string
	Password         string
	Headers          map[string]string
	Proxy            string
}

// ScrapeResult is one target's outcome in a batch run
type ScrapeResult struct {
	Target string
	Posts  []Post
	Error  error
}
