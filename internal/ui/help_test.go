package ui

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	got := Wrap("one two three four\n- item stays\n\nsecond paragraph", 9)
	assert.Equal(t, "one two\nthree\nfour\n- item stays\n\nsecond\nparagraph", got)
}

func TestHelpPlain(t *testing.T) {
	Enabled = false

	root := &cobra.Command{Use: "fbscrape", Short: "Scrape posts"}
	sub := &cobra.Command{
		Use:     "scrape <target>",
		Short:   "Scrape a page",
		Example: "# a page\nfbscrape scrape nasa\n# a group\nfbscrape scrape 123 --group",
		Run:     func(cmd *cobra.Command, args []string) {},
	}
	sub.Flags().IntP("count", "n", 10, "Posts to collect")
	root.AddCommand(sub)

	var buf bytes.Buffer
	Help(&buf, root)
	out := buf.String()
	assert.Contains(t, out, "FBSCRAPE")
	assert.Contains(t, out, "fbscrape <command> [flags]")
	assert.Contains(t, out, "  scrape  Scrape a page")
	assert.NotContains(t, out, "\033[")

	buf.Reset()
	Help(&buf, sub)
	out = buf.String()
	assert.Contains(t, out, "  # a page\n  $ fbscrape scrape nasa\n\n  # a group")
	assert.Contains(t, out, "-n, --count int")
	assert.Contains(t, out, "Posts to collect (default 10)")
}

func TestPaint(t *testing.T) {
	Enabled = true
	defer func() { Enabled = false }()
	assert.Equal(t, ColorRed+"x"+ColorReset, Error("x"))
	assert.Equal(t, "x", Paint("", "x"))
}
