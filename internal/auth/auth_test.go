package auth

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/fbscrape/internal/automation"
	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sampleSession(name string) *SessionData {
	return NewSession(name, LoginURL, []browser.Cookie{
		{Name: "c_user", Value: "100", Domain: ".facebook.com", Path: "/", Expires: float64(time.Now().Add(time.Hour).Unix())},
		{Name: "xs", Value: "secret", Domain: ".facebook.com", Path: "/", HTTPOnly: true, Secure: true},
	})
}

func TestFileStore(t *testing.T) {
	st, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, st.Save(sampleSession("work")))
	require.NoError(t, st.Save(sampleSession("alt")))

	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alt", "work"}, names)

	got, err := st.Load("work")
	require.NoError(t, err)
	assert.Len(t, got.Cookies, 2)
	assert.Equal(t, "secret", got.BrowserCookies()[1].Value)
	assert.True(t, got.BrowserCookies()[1].HTTPOnly)

	require.NoError(t, st.Delete("work"))
	require.NoError(t, st.Delete("work"))
	_, err = st.Load("work")
	assert.Error(t, err)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	st := &Store{}

	require.NoError(t, st.Save(sampleSession("main")))
	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)

	got, err := st.Load("main")
	require.NoError(t, err)
	assert.Equal(t, "main", got.Name)

	require.NoError(t, st.Delete("main"))
	names, err = st.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoad_Expired(t *testing.T) {
	st, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := sampleSession("old")
	s.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, st.Save(s))

	_, err = st.Load("old")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestNewSession_ExpiresAtLatestCookie(t *testing.T) {
	s := NewSession("x", LoginURL, []browser.Cookie{
		{Name: "a", Expires: 1000},
		{Name: "b", Expires: 3000},
		{Name: "c"},
	})
	assert.Equal(t, time.Unix(3000, 0), s.ExpiresAt)

	s = NewSession("x", LoginURL, []browser.Cookie{{Name: "a"}})
	assert.True(t, s.ExpiresAt.IsZero())
}

type cookiePage struct {
	*browser.SnapshotPage
	cookies []browser.Cookie
}

func (p *cookiePage) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	return p.cookies, nil
}

const loginHTML = `<html><body><form>
<input name="email"><input name="pass" type="password">
<button type="submit">Log in</button>
</form></body></html>`

func loginPage(t *testing.T, cookies []browser.Cookie) *cookiePage {
	t.Helper()
	snap, err := browser.NewSnapshotString(loginHTML, LoginURL)
	require.NoError(t, err)
	return &cookiePage{SnapshotPage: snap, cookies: cookies}
}

func noWait() []automation.Option {
	return []automation.Option{
		automation.WithRand(rand.New(rand.NewPCG(1, 1))),
		automation.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	}
}

func TestPasswordLogin(t *testing.T) {
	page := loginPage(t, []browser.Cookie{{Name: "c_user", Value: "100"}, {Name: "xs", Value: "s"}})

	s, err := PasswordLogin(context.Background(), page, "main", "me@example.com", "pw", noWait()...)
	require.NoError(t, err)
	assert.Equal(t, "main", s.Name)
	assert.Len(t, s.Cookies, 2)
}

func TestPasswordLogin_NoSessionCookie(t *testing.T) {
	page := loginPage(t, []browser.Cookie{{Name: "datr", Value: "x"}})

	_, err := PasswordLogin(context.Background(), page, "main", "me@example.com", "pw", noWait()...)
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestPasswordLogin_Validation(t *testing.T) {
	page := loginPage(t, nil)
	_, err := PasswordLogin(context.Background(), page, "main", "", "pw")
	assert.Error(t, err)
}

func TestParseCookiesJSON(t *testing.T) {
	in := `[{"name":"c_user","value":"100","domain":".facebook.com","expirationDate":1900000000.5},
	        {"name":"xs","value":"abc","expires":1800000000,"httpOnly":true}]`
	cookies, err := ParseCookies(strings.NewReader(in), FormatJSON)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, 1900000000.5, cookies[0].Expires)
	assert.Equal(t, DefaultCookieDomain, cookies[1].Domain)
	assert.Equal(t, "/", cookies[1].Path)
	assert.True(t, cookies[1].HTTPOnly)

	_, err = ParseCookies(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)
}

func TestParseCookiesNetscape(t *testing.T) {
	in := "# Netscape HTTP Cookie File\n" +
		".facebook.com\tTRUE\t/\tTRUE\t1900000000\tc_user\t100\n" +
		"#HttpOnly_.facebook.com\tTRUE\t/\tTRUE\t0\txs\tabc\n" +
		"short line\n"
	cookies, err := ParseCookies(strings.NewReader(in), FormatNetscape)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, Cookie{Name: "c_user", Value: "100", Domain: ".facebook.com", Path: "/", Expires: 1900000000, Secure: true}, cookies[0])
	assert.True(t, cookies[1].HTTPOnly)
	assert.Zero(t, cookies[1].Expires)
}

func TestParseCookieHeader(t *testing.T) {
	cookies, err := ParseCookies(strings.NewReader("Cookie: c_user=100; xs=a=b;; bad"), FormatHeader)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "c_user", cookies[0].Name)
	assert.Equal(t, "a=b", cookies[1].Value)
	assert.Equal(t, DefaultCookieDomain, cookies[1].Domain)

	_, err = ParseCookies(strings.NewReader(""), CookieFormat("yaml"))
	assert.Error(t, err)
}

func TestFromCookies(t *testing.T) {
	s := FromCookies("main", LoginURL, []Cookie{{Name: "c_user", Value: "1", Expires: 1900000000}, {Name: "xs", Value: "x"}})
	assert.True(t, s.SignedIn())
	assert.Equal(t, int64(1900000000), s.ExpiresAt.Unix())

	assert.False(t, FromCookies("anon", LoginURL, []Cookie{{Name: "datr", Value: "1"}}).SignedIn())
}
