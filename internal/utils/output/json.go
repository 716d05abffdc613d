package output

import (
	"encoding/json"
	"io"

	"github.com/law-makers/fbscrape/pkg/models"
)

// WriteJSON writes posts as an indented JSON array. Missing media lists are
// written as [] rather than null.
func WriteJSON(w io.Writer, posts []models.Post) error {
	export := make([]models.Post, len(posts))
	for i, p := range posts {
		if p.Images == nil {
			p.Images = []string{}
		}
		if p.Videos == nil {
			p.Videos = []string{}
		}
		export[i] = p
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(export)
}
