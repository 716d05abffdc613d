package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePosts() []models.Post {
	return []models.Post{
		{
			ID:          "10158",
			URL:         "https://www.facebook.com/nasa/posts/10158",
			AuthorName:  "NASA",
			Content:     "Launch day!\nGo for launch.",
			ContentHTML: `<div data-ad-preview="message"><div dir="auto">Launch <a href="/hashtag/artemis">#artemis</a></div><div role="button">See more</div></div>`,
			PostedAt:    "2024-03-04T15:15:00Z",
			Reactions:   models.Reactions{Like: 10, Love: 5, Total: 15},
			Comments:    3,
			Shares:      1,
			Images:      []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"},
			Layout:      models.LayoutNew,
			Target:      "nasa",
			ScrapedAt:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{ID: "2", Content: "plain text"},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, samplePosts()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "10158", got[0]["id"])
	assert.NotContains(t, got[0], "ContentHTML")
	assert.Equal(t, []any{}, got[1]["images"])
	assert.Equal(t, []any{}, got[1]["videos"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samplePosts()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])

	row := map[string]string{}
	for i, h := range CSVHeader {
		row[h] = rows[1][i]
	}
	assert.Equal(t, "10158", row["id"])
	assert.Equal(t, "Launch day!\nGo for launch.", row["content"])
	assert.Equal(t, "15", row["reactions_total"])
	assert.Equal(t, "5", row["love"])
	assert.Equal(t, "https://cdn.example.com/1.jpg https://cdn.example.com/2.jpg", row["images"])
	assert.Equal(t, "2024-03-10T12:00:00Z", row["scraped_at"])
	assert.Equal(t, "", rows[2][len(CSVHeader)-1])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, samplePosts()))
	out := buf.String()

	assert.Contains(t, out, "## NASA")
	assert.Contains(t, out, "[permalink](https://www.facebook.com/nasa/posts/10158)")
	assert.Contains(t, out, "[#artemis](https://www.facebook.com/hashtag/artemis)")
	assert.NotContains(t, out, "See more")
	assert.Contains(t, out, "![](https://cdn.example.com/1.jpg)")
	assert.Contains(t, out, "## Post 2")
	assert.Contains(t, out, "plain text")
	assert.Equal(t, 1, strings.Count(out, "\n---\n"))
}

func TestCleanHTML(t *testing.T) {
	out, err := CleanHTML(`<div class="x" onclick="y()"><script>bad()</script><a href="/a" class="c">link</a><img src="i.jpg" style="s"></div>`)
	require.NoError(t, err)
	assert.Equal(t, `<div><a href="/a">link</a><img src="i.jpg"/></div>`, out)
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat("markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, FormatCSV, FormatFromPath("out.CSV"))
	assert.Equal(t, FormatJSON, FormatFromPath("out"))
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")
	require.NoError(t, Save(path, samplePosts(), ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,url,"))
}
