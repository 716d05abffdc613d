package auth

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CookieFormat names a cookie export format accepted by ParseCookies
type CookieFormat string

const (
	// FormatJSON is an array of cookie objects as DevTools extensions export them
	FormatJSON CookieFormat = "json"
	// FormatNetscape is the cookies.txt format of curl and wget
	FormatNetscape CookieFormat = "netscape"
	// FormatHeader is a raw "name=value; name2=value2" Cookie header
	FormatHeader CookieFormat = "header"
)

// DefaultCookieDomain is used for cookies that carry no domain
const DefaultCookieDomain = ".facebook.com"

// exportedCookie accepts both our field names and the browser extension ones
type exportedCookie struct {
	Cookie
	ExpirationDate float64 `json:"expirationDate"`
}

// ParseCookies reads cookies in the given format
func ParseCookies(r io.Reader, format CookieFormat) ([]Cookie, error) {
	switch format {
	case FormatJSON:
		return parseJSONCookies(r)
	case FormatNetscape:
		return parseNetscapeCookies(r)
	case FormatHeader:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return ParseCookieHeader(string(data)), nil
	default:
		return nil, fmt.Errorf("unsupported cookie format %q (use json, netscape or header)", format)
	}
}

func parseJSONCookies(r io.Reader) ([]Cookie, error) {
	var exported []exportedCookie
	if err := json.NewDecoder(r).Decode(&exported); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	cookies := make([]Cookie, 0, len(exported))
	for _, e := range exported {
		c := e.Cookie
		if c.Expires == 0 {
			c.Expires = e.ExpirationDate
		}
		cookies = append(cookies, withDefaults(c))
	}
	return cookies, nil
}

// parseNetscapeCookies reads tab separated lines of
// domain, subdomains, path, secure, expiry, name, value
func parseNetscapeCookies(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if rest, ok := strings.CutPrefix(line, "#HttpOnly_"); ok {
			line, httpOnly = rest, true
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			fields = strings.Fields(line)
		}
		if len(fields) < 7 {
			continue
		}

		c := Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HTTPOnly: httpOnly,
		}
		if exp, err := strconv.ParseFloat(fields[4], 64); err == nil {
			c.Expires = exp
		}
		cookies = append(cookies, withDefaults(c))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// ParseCookieHeader splits a Cookie request header into facebook.com cookies
func ParseCookieHeader(header string) []Cookie {
	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "Cookie:")

	var cookies []Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, withDefaults(Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Secure: true,
		}))
	}
	return cookies
}

func withDefaults(c Cookie) Cookie {
	if c.Domain == "" {
		c.Domain = DefaultCookieDomain
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return c
}

// FromCookies builds a session from imported cookies. ExpiresAt is the
// latest cookie expiry.
func FromCookies(name, url string, cookies []Cookie) *SessionData {
	s := &SessionData{
		Name:      name,
		URL:       url,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}
	maxExpires := 0.0
	for _, c := range cookies {
		maxExpires = max(maxExpires, c.Expires)
	}
	if maxExpires > 0 {
		s.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
	return s
}

// SignedIn reports whether the session carries the account cookie
func (s *SessionData) SignedIn() bool {
	for _, c := range s.Cookies {
		if c.Name == SessionCookie && c.Value != "" {
			return true
		}
	}
	return false
}
