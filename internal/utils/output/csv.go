package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/pkg/models"
)

// CSVHeader lists the flattened post columns
var CSVHeader = []string{
	"id", "url", "author_name", "author_url", "posted_at", "content",
	"reactions_total", "like", "love", "wow", "care", "sad", "angry", "haha",
	"comments", "shares", "images", "videos", "layout", "target", "scraped_at",
}

// WriteCSV writes one row per post. Media URLs are joined with spaces.
func WriteCSV(w io.Writer, posts []models.Post) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return err
	}

	for _, p := range posts {
		r := p.Reactions
		scraped := ""
		if !p.ScrapedAt.IsZero() {
			scraped = p.ScrapedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			p.ID, p.URL, p.AuthorName, p.AuthorURL, p.PostedAt, p.Content,
			strconv.Itoa(r.Total), strconv.Itoa(r.Like), strconv.Itoa(r.Love), strconv.Itoa(r.Wow),
			strconv.Itoa(r.Care), strconv.Itoa(r.Sad), strconv.Itoa(r.Angry), strconv.Itoa(r.Haha),
			strconv.Itoa(p.Comments), strconv.Itoa(p.Shares),
			strings.Join(p.Images, " "), strings.Join(p.Videos, " "),
			string(p.Layout), p.Target, scraped,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
