package output

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/fbscrape/internal/utils/url"
	"github.com/law-makers/fbscrape/pkg/models"
)

// newConverter returns a converter that resolves links against base
func newConverter(base string) *md.Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}

			resolved := urlutil.ResolveURL(base, href)
			title, hasTitle := selec.Attr("title")
			var titlePart string
			if hasTitle {
				titlePart = fmt.Sprintf(" %q", title)
			}
			str := fmt.Sprintf("[%s](%s)%s", strings.TrimSpace(selec.Text()), resolved, titlePart)
			return &str
		},
	})
	return converter
}

// WriteMarkdown writes one section per post. The body comes from the post
// HTML when present, otherwise from its text.
func WriteMarkdown(w io.Writer, posts []models.Post) error {
	var sb strings.Builder

	for i, p := range posts {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}

		title := p.AuthorName
		if title == "" {
			title = "Post " + p.ID
		}
		fmt.Fprintf(&sb, "## %s\n\n", title)

		var meta []string
		if p.PostedAt != "" {
			meta = append(meta, p.PostedAt)
		}
		if p.URL != "" {
			meta = append(meta, fmt.Sprintf("[permalink](%s)", p.URL))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&sb, "*%s*\n\n", strings.Join(meta, " · "))
		}

		body, err := postBody(p)
		if err != nil {
			return fmt.Errorf("post %s: %w", p.ID, err)
		}
		if body != "" {
			sb.WriteString(body)
			sb.WriteString("\n\n")
		}

		for _, img := range p.Images {
			fmt.Fprintf(&sb, "![](%s)\n", img)
		}
		for _, v := range p.Videos {
			fmt.Fprintf(&sb, "[video](%s)\n", v)
		}
		if len(p.Images)+len(p.Videos) > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "👍 %d · 💬 %d · ↗ %d\n", p.Reactions.Total, p.Comments, p.Shares)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func postBody(p models.Post) (string, error) {
	if p.ContentHTML == "" {
		return strings.TrimSpace(p.Content), nil
	}

	cleaned, err := CleanHTML(p.ContentHTML)
	if err != nil {
		return "", err
	}
	body, err := newConverter(p.URL).ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
