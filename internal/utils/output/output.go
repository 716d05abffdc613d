// Package output writes scraped posts as JSON, CSV or Markdown.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/law-makers/fbscrape/pkg/models"
)

// Format is an export format
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, csv or md)", s)
}

// FormatFromPath infers the format from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return FormatJSON
}

// Write encodes posts to w
func Write(w io.Writer, posts []models.Post, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, posts)
	case FormatMarkdown:
		return WriteMarkdown(w, posts)
	default:
		return WriteJSON(w, posts)
	}
}

// Save writes posts to path. An empty format is inferred from the extension.
func Save(path string, posts []models.Post, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, posts, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
