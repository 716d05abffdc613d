package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/law-makers/fbscrape/internal/parse"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// IsURL reports whether target is already an absolute http(s) URL
func IsURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// TargetURL builds the address of a page or group. Full URLs pass through.
func TargetURL(target string, isGroup bool) (string, error) {
	if IsURL(target) {
		if err := ValidateURL(target); err != nil {
			return "", err
		}
		return target, nil
	}

	name := strings.Trim(strings.TrimSpace(target), "/")
	if name == "" {
		return "", fmt.Errorf("empty target")
	}
	if isGroup {
		return parse.FacebookBase + "/groups/" + url.PathEscape(name), nil
	}
	return parse.FacebookBase + "/" + url.PathEscape(name), nil
}

// TargetName returns the page name or group id a target refers to. For URLs
// it is the first path segment, or the one after /groups/.
func TargetName(target string) string {
	if !IsURL(target) {
		return strings.Trim(strings.TrimSpace(target), "/")
	}

	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return ""
	}
	if segs[0] == "groups" && len(segs) > 1 {
		return segs[1]
	}
	return segs[0]
}
