package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog/log"
)

const objectGroup = "fbscrape"

// CDPPage drives a live Chrome tab. Elements are CDP remote objects held in
// one object group that is released on navigation or by ReleaseElements.
type CDPPage struct {
	tab context.Context
}

// NewCDPPage wraps a chromedp tab context (one created by chromedp.NewContext
// or acquired from a BrowserPool).
func NewCDPPage(tab context.Context) *CDPPage {
	return &CDPPage{tab: tab}
}

// run executes fn against the tab. ctx only has to carry cancellation; it
// does not need to be derived from the tab context.
func (p *CDPPage) run(ctx context.Context, fn func(ctx context.Context) error) error {
	runCtx := ctx
	if chromedp.FromContext(ctx) == nil {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithCancel(p.tab)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
	}
	return chromedp.Run(runCtx, chromedp.ActionFunc(fn))
}

func (p *CDPPage) Navigate(ctx context.Context, url string) error {
	log.Debug().Str("url", url).Msg("Navigating")
	return p.run(ctx, func(ctx context.Context) error {
		_ = runtime.ReleaseObjectGroup(objectGroup).Do(ctx)
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		return chromedp.Navigate(url).Do(ctx)
	})
}

// ReleaseElements frees the remote objects of every element found so far
func (p *CDPPage) ReleaseElements(ctx context.Context) error {
	return p.run(ctx, func(ctx context.Context) error {
		return runtime.ReleaseObjectGroup(objectGroup).Do(ctx)
	})
}

func (p *CDPPage) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, func(ctx context.Context) error {
		return chromedp.Location(&u).Do(ctx)
	})
	return u, err
}

func (p *CDPPage) document(ctx context.Context) (*cdpElement, error) {
	var id runtime.RemoteObjectID
	err := p.run(ctx, func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate("document").WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("evaluate document: %s", exc.Text)
		}
		id = res.ObjectID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cdpElement{page: p, id: id}, nil
}

func (p *CDPPage) Find(ctx context.Context, selector string) (Element, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Find(ctx, selector)
}

func (p *CDPPage) FindAll(ctx context.Context, selector string) ([]Element, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.FindAll(ctx, selector)
}

func (p *CDPPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	return poll(ctx, selector, timeout, func() (Element, error) {
		return p.Find(ctx, selector)
	})
}

func (p *CDPPage) ScrollTo(ctx context.Context, fraction float64) error {
	script := fmt.Sprintf("window.scrollTo(0, document.body.scrollHeight * %s)", strconv.FormatFloat(fraction, 'f', -1, 64))
	return p.Eval(ctx, script, nil)
}

func (p *CDPPage) PressKey(ctx context.Context, key Key, times int) error {
	var k string
	switch key {
	case KeyPageUp:
		k = kb.PageUp
	case KeyPageDown:
		k = kb.PageDown
	default:
		k = string(key)
	}
	return p.run(ctx, func(ctx context.Context) error {
		for i := 0; i < times; i++ {
			if err := chromedp.KeyEvent(k).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *CDPPage) SetViewport(ctx context.Context, width, height int) error {
	return p.run(ctx, func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false).Do(ctx)
	})
}

func (p *CDPPage) Eval(ctx context.Context, script string, out any) error {
	return p.run(ctx, func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(script).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(exc)
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal(res.Value, out)
	})
}

func (p *CDPPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	return p.run(ctx, func(ctx context.Context) error {
		for _, c := range cookies {
			params := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				params = params.WithExpires(&expires)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

// Cookies returns every cookie the browser holds for the current page
func (p *CDPPage) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := p.run(ctx, func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return out, nil
}

type cdpElement struct {
	page *CDPPage
	id   runtime.RemoteObjectID
}

// staleGuard prefixes every element function so detached nodes fail loudly.
const staleGuard = `if (this.nodeType !== 9 && !this.isConnected) throw new Error("stale-element");`

// call runs a function declaration with this bound to the element.
func (e *cdpElement) call(ctx context.Context, body string, byValue bool) (*runtime.RemoteObject, error) {
	var res *runtime.RemoteObject
	err := e.page.run(ctx, func(ctx context.Context) error {
		r, exc, err := runtime.CallFunctionOn("function() {" + staleGuard + body + "}").
			WithObjectID(e.id).
			WithReturnByValue(byValue).
			WithAwaitPromise(true).
			WithObjectGroup(objectGroup).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(exc)
		}
		res = r
		return nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "Could not find object") {
			return nil, ErrStale
		}
		return nil, err
	}
	return res, nil
}

func (e *cdpElement) value(ctx context.Context, body string, out any) error {
	res, err := e.call(ctx, body, true)
	if err != nil {
		return err
	}
	if out == nil || res == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Value, out)
}

func (e *cdpElement) node(ctx context.Context, body string) (Element, error) {
	res, err := e.call(ctx, body, false)
	if err != nil {
		return nil, err
	}
	if res == nil || res.ObjectID == "" || res.Subtype == runtime.SubtypeNull {
		return nil, ErrNotFound
	}
	return &cdpElement{page: e.page, id: res.ObjectID}, nil
}

func (e *cdpElement) Find(ctx context.Context, selector string) (Element, error) {
	el, err := e.node(ctx, "return this.querySelector("+jsString(selector)+");")
	if err == ErrNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return el, err
}

func (e *cdpElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	res, err := e.call(ctx, "return Array.from(this.querySelectorAll("+jsString(selector)+"));", false)
	if err != nil {
		return nil, err
	}
	if res == nil || res.ObjectID == "" {
		return nil, nil
	}

	type indexed struct {
		idx int
		id  runtime.RemoteObjectID
	}
	var items []indexed
	err = e.page.run(ctx, func(ctx context.Context) error {
		props, _, _, exc, err := runtime.GetProperties(res.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(exc)
		}
		for _, prop := range props {
			idx, convErr := strconv.Atoi(prop.Name)
			if convErr != nil || prop.Value == nil || prop.Value.ObjectID == "" {
				continue
			}
			items = append(items, indexed{idx: idx, id: prop.Value.ObjectID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].idx < items[j].idx })
	out := make([]Element, 0, len(items))
	for _, it := range items {
		out = append(out, &cdpElement{page: e.page, id: it.id})
	}
	return out, nil
}

func (e *cdpElement) Ancestor(ctx context.Context, selector string) (Element, error) {
	el, err := e.node(ctx, "return this.parentElement ? this.parentElement.closest("+jsString(selector)+") : null;")
	if err == ErrNotFound {
		return nil, fmt.Errorf("%w: ancestor %s", ErrNotFound, selector)
	}
	return el, err
}

func (e *cdpElement) Parent(ctx context.Context) (Element, error) {
	return e.node(ctx, "return this.parentElement;")
}

func (e *cdpElement) NextSibling(ctx context.Context) (Element, error) {
	return e.node(ctx, "return this.nextElementSibling;")
}

func (e *cdpElement) Attr(ctx context.Context, name string) (string, error) {
	var v string
	// Resolved properties win over raw attributes so href comes back absolute.
	body := fmt.Sprintf(`const n = %s;
		if (n in this && typeof this[n] === "string" && this.hasAttribute(n)) return this[n];
		return this.getAttribute(n) || "";`, jsString(name))
	err := e.value(ctx, body, &v)
	return v, err
}

func (e *cdpElement) Text(ctx context.Context) (string, error) {
	var v string
	err := e.value(ctx, `return this.textContent || "";`, &v)
	return v, err
}

func (e *cdpElement) InnerText(ctx context.Context) (string, error) {
	var v string
	err := e.value(ctx, `return this.innerText || "";`, &v)
	return v, err
}

func (e *cdpElement) OuterHTML(ctx context.Context) (string, error) {
	var v string
	err := e.value(ctx, `return this.outerHTML || "";`, &v)
	return v, err
}

func (e *cdpElement) TagName(ctx context.Context) (string, error) {
	var v string
	err := e.value(ctx, `return (this.tagName || "").toLowerCase();`, &v)
	return v, err
}

func (e *cdpElement) Click(ctx context.Context) error {
	_, err := e.call(ctx, `this.click();`, true)
	return err
}

func (e *cdpElement) ScrollIntoView(ctx context.Context) error {
	_, err := e.call(ctx, `this.scrollIntoView({block: "center", inline: "center"});`, true)
	return err
}

// Hover moves the real mouse pointer over the element centre and also fires
// a synthetic mouseover, which some tooltips listen for instead.
func (e *cdpElement) Hover(ctx context.Context) error {
	var pt struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	err := e.value(ctx, `this.scrollIntoView({block: "center", inline: "center"});
		const r = this.getBoundingClientRect();
		this.dispatchEvent(new MouseEvent("mouseover", {bubbles: true}));
		return {x: r.left + r.width / 2, y: r.top + r.height / 2};`, &pt)
	if err != nil {
		return err
	}
	return e.page.run(ctx, func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, pt.X, pt.Y).Do(ctx)
	})
}

func (e *cdpElement) Remove(ctx context.Context) error {
	_, err := e.call(ctx, `if (this.parentNode) this.parentNode.removeChild(this);`, true)
	return err
}

func (e *cdpElement) SetValue(ctx context.Context, value string) error {
	body := fmt.Sprintf(`this.focus();
		this.value = %s;
		this.dispatchEvent(new Event("input", {bubbles: true}));
		this.dispatchEvent(new Event("change", {bubbles: true}));`, jsString(value))
	_, err := e.call(ctx, body, true)
	return err
}

func (e *cdpElement) SetAttr(ctx context.Context, name, value string) error {
	_, err := e.call(ctx, fmt.Sprintf(`this.setAttribute(%s, %s);`, jsString(name), jsString(value)), true)
	return err
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func scriptError(exc *runtime.ExceptionDetails) error {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
	}
	if strings.Contains(msg, "stale-element") {
		return ErrStale
	}
	return fmt.Errorf("script error: %s", msg)
}
