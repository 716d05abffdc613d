package automation

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyPage records key presses and scrolls on top of a snapshot
type keyPage struct {
	*browser.SnapshotPage
	presses map[browser.Key][]int
	scrolls []float64
}

func (k *keyPage) PressKey(ctx context.Context, key browser.Key, times int) error {
	k.presses[key] = append(k.presses[key], times)
	return nil
}

func (k *keyPage) ScrollTo(ctx context.Context, fraction float64) error {
	k.scrolls = append(k.scrolls, fraction)
	return nil
}

func newKeyPage(t *testing.T, html string) *keyPage {
	t.Helper()
	snap, err := browser.NewSnapshotString(html, "https://www.facebook.com/nasa")
	require.NoError(t, err)
	return &keyPage{SnapshotPage: snap, presses: map[browser.Key][]int{}}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newHelper(p browser.Page) *Helper {
	return New(p,
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithSleep(noSleep),
		WithPopupTimeout(0),
	)
}

func TestScrollDown_NewLayoutKeyCounts(t *testing.T) {
	ctx := context.Background()
	p := newKeyPage(t, "<body></body>")
	h := newHelper(p)

	for i := 0; i < 20; i++ {
		require.NoError(t, h.ScrollDown(ctx, models.LayoutNew))
	}

	require.Len(t, p.presses[browser.KeyPageUp], 20)
	for _, n := range p.presses[browser.KeyPageUp] {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 3)
	}
	for _, n := range p.presses[browser.KeyPageDown] {
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 8)
	}
	assert.Empty(t, p.scrolls)
}

func TestScrollDown_OldLayoutJumpsToBottom(t *testing.T) {
	p := newKeyPage(t, "<body></body>")
	h := newHelper(p)

	require.NoError(t, h.ScrollDown(context.Background(), models.LayoutOld))
	assert.Equal(t, []float64{1}, p.scrolls)
	assert.Empty(t, p.presses)

	require.NoError(t, h.ScrollDownHalf(context.Background()))
	assert.Equal(t, []float64{1, 0.5}, p.scrolls)
}

func TestWaitForPosts(t *testing.T) {
	ctx := context.Background()

	p := newKeyPage(t, `<div class="userContentWrapper"></div>`)
	h := newHelper(p)
	assert.True(t, h.WaitForPosts(ctx, models.LayoutOld, time.Second))
	require.Len(t, p.presses[browser.KeyPageDown], 1)
	assert.False(t, h.WaitForPosts(ctx, models.LayoutNew, time.Second))

	p = newKeyPage(t, `<div aria-posinset="1"></div>`)
	h = newHelper(p)
	assert.True(t, h.WaitForPosts(ctx, models.LayoutNew, time.Second))
}

func TestCloseForceLoginPopup(t *testing.T) {
	ctx := context.Background()
	p := newKeyPage(t, `<body>
		<div class="_fb-light-mode x1"><div><form id="login_popup_cta_form"></form></div></div>
		<div id="content"></div>
	</body>`)
	h := newHelper(p)

	h.CloseForceLoginPopup(ctx)

	assert.False(t, browser.Exists(ctx, p, "div._fb-light-mode"))
	assert.False(t, browser.Exists(ctx, p, "#login_popup_cta_form"))
	assert.True(t, browser.Exists(ctx, p, "#content"))

	// second call has nothing to do
	h.CloseForceLoginPopup(ctx)
}

func TestCloseForceLoginPopup_NoContainerRemovesForm(t *testing.T) {
	ctx := context.Background()
	p := newKeyPage(t, `<div aria-label="Login form for accessing your account"></div>`)
	h := newHelper(p)

	h.CloseForceLoginPopup(ctx)
	assert.False(t, browser.Exists(ctx, p, `div[aria-label]`))
}

func TestAcceptCookies(t *testing.T) {
	ctx := context.Background()

	h := newHelper(newKeyPage(t, `<div aria-label="Allow essential and optional cookies"></div>
		<div aria-label="Allow essential and optional cookies"></div>`))
	assert.True(t, h.AcceptCookies(ctx))

	h = newHelper(newKeyPage(t, `<div></div>`))
	assert.False(t, h.AcceptCookies(ctx))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	p := newKeyPage(t, `<form>
		<input name="email"><input name="pass" type="password">
		<button type="submit">Log in</button>
	</form>`)
	h := newHelper(p)

	require.NoError(t, h.Login(ctx, "user@example.com", "secret"))

	email, err := p.Find(ctx, "input[name='email']")
	require.NoError(t, err)
	v, _ := email.Attr(ctx, "value")
	assert.Equal(t, "user@example.com", v)
}

func TestLogin_NoForm(t *testing.T) {
	h := newHelper(newKeyPage(t, `<div></div>`))
	err := h.Login(context.Background(), "u", "p")
	assert.ErrorIs(t, err, ErrLoginForm)
}
