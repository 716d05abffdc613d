package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Loader fetches the HTML of a URL for a SnapshotPage
type Loader func(ctx context.Context, url string) (io.ReadCloser, error)

// SnapshotPage serves recorded HTML through the Page interface. Interaction
// (clicks, hovers, key presses, scrolling) is accepted and ignored, since a
// static document cannot react to it.
type SnapshotPage struct {
	doc    *goquery.Document
	url    string
	loader Loader
}

// NewSnapshot parses html as the document found at pageURL
func NewSnapshot(r io.Reader, pageURL string) (*SnapshotPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &SnapshotPage{doc: doc, url: pageURL}, nil
}

// NewSnapshotString is NewSnapshot for an in-memory document
func NewSnapshotString(htmlContent, pageURL string) (*SnapshotPage, error) {
	return NewSnapshot(strings.NewReader(htmlContent), pageURL)
}

// NewSnapshotLoader returns an empty page that loads documents on Navigate
func NewSnapshotLoader(loader Loader) *SnapshotPage {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	return &SnapshotPage{doc: doc, loader: loader}
}

func (p *SnapshotPage) Navigate(ctx context.Context, target string) error {
	if p.loader == nil {
		p.url = target
		return nil
	}
	rc, err := p.loader(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", target, err)
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(rc)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", target, err)
	}
	p.doc = doc
	p.url = target
	return nil
}

func (p *SnapshotPage) URL(ctx context.Context) (string, error) {
	return p.url, nil
}

func (p *SnapshotPage) Find(ctx context.Context, selector string) (Element, error) {
	return p.root().Find(ctx, selector)
}

func (p *SnapshotPage) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return p.root().FindAll(ctx, selector)
}

func (p *SnapshotPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := p.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return el, nil
}

func (p *SnapshotPage) ScrollTo(ctx context.Context, fraction float64) error { return nil }

func (p *SnapshotPage) PressKey(ctx context.Context, key Key, times int) error { return nil }

func (p *SnapshotPage) SetViewport(ctx context.Context, width, height int) error { return nil }

func (p *SnapshotPage) Eval(ctx context.Context, script string, out any) error {
	return ErrUnsupported
}

func (p *SnapshotPage) SetCookies(ctx context.Context, cookies []Cookie) error { return nil }

// HTML returns the current document markup
func (p *SnapshotPage) HTML() (string, error) {
	return p.doc.Html()
}

func (p *SnapshotPage) root() *snapshotElement {
	return &snapshotElement{page: p, sel: p.doc.Selection}
}

type snapshotElement struct {
	page *SnapshotPage
	sel  *goquery.Selection
}

func (e *snapshotElement) wrap(s *goquery.Selection) *snapshotElement {
	return &snapshotElement{page: e.page, sel: s}
}

func (e *snapshotElement) attached() bool {
	if len(e.sel.Nodes) == 0 {
		return false
	}
	n := e.sel.Nodes[0]
	for n.Parent != nil {
		n = n.Parent
	}
	return n == e.page.doc.Selection.Nodes[0]
}

func (e *snapshotElement) check() error {
	if !e.attached() {
		return ErrStale
	}
	return nil
}

func (e *snapshotElement) Find(ctx context.Context, selector string) (Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	s := e.sel.Find(selector).First()
	if s.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return e.wrap(s), nil
}

func (e *snapshotElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	var out []Element
	e.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, e.wrap(s))
	})
	return out, nil
}

func (e *snapshotElement) Ancestor(ctx context.Context, selector string) (Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	s := e.sel.ParentsFiltered(selector).First()
	if s.Length() == 0 {
		return nil, fmt.Errorf("%w: ancestor %s", ErrNotFound, selector)
	}
	return e.wrap(s), nil
}

func (e *snapshotElement) Parent(ctx context.Context) (Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	s := e.sel.Parent()
	if s.Length() == 0 || s.Nodes[0].Type != html.ElementNode {
		return nil, ErrNotFound
	}
	return e.wrap(s), nil
}

func (e *snapshotElement) NextSibling(ctx context.Context) (Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	s := e.sel.Next()
	if s.Length() == 0 {
		return nil, ErrNotFound
	}
	return e.wrap(s), nil
}

func (e *snapshotElement) Attr(ctx context.Context, name string) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	v, _ := e.sel.Attr(name)
	if (name == "href" || name == "src") && v != "" && e.page.url != "" {
		v = resolveAgainst(e.page.url, v)
	}
	return v, nil
}

func (e *snapshotElement) Text(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *snapshotElement) InnerText(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, n := range e.sel.Nodes {
		renderInnerText(&sb, n)
	}
	return collapseLines(sb.String()), nil
}

func (e *snapshotElement) OuterHTML(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return goquery.OuterHtml(e.sel)
}

func (e *snapshotElement) TagName(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return goquery.NodeName(e.sel), nil
}

func (e *snapshotElement) Click(ctx context.Context) error { return e.check() }

func (e *snapshotElement) Hover(ctx context.Context) error { return e.check() }

func (e *snapshotElement) ScrollIntoView(ctx context.Context) error { return e.check() }

func (e *snapshotElement) Remove(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	e.sel.Remove()
	return nil
}

func (e *snapshotElement) SetValue(ctx context.Context, value string) error {
	if err := e.check(); err != nil {
		return err
	}
	e.sel.SetAttr("value", value)
	return nil
}

func (e *snapshotElement) SetAttr(ctx context.Context, name, value string) error {
	if err := e.check(); err != nil {
		return err
	}
	e.sel.SetAttr(name, value)
	return nil
}

var blockTags = map[string]bool{
	"div": true, "p": true, "li": true, "ul": true, "ol": true, "section": true,
	"article": true, "h1": true, "h2": true, "h3": true, "h4": true, "blockquote": true,
}

func renderInnerText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(strings.Join(strings.Fields(n.Data), " "))
		if strings.HasSuffix(n.Data, " ") || strings.HasSuffix(n.Data, "\n") {
			sb.WriteString(" ")
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript":
			return
		case "br":
			sb.WriteString("\n")
			return
		}
	}
	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderInnerText(sb, c)
	}
	if block {
		sb.WriteString("\n")
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func resolveAgainst(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
