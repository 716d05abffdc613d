// Package auth persists logged-in browser sessions so scrapes can reuse them.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/browser"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "fbscrape"
	// FallbackDir is the directory for file-based session storage (when keyring fails)
	FallbackDir = ".fbscrape/sessions"

	manifestKey = "_manifest"
)

// ErrSessionExpired is returned when every cookie of a session has expired
var ErrSessionExpired = errors.New("session expired")

// SessionData represents stored authentication session
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// BrowserCookies converts the session cookies for installation in a page
func (s *SessionData) BrowserCookies() []browser.Cookie {
	out := make([]browser.Cookie, len(s.Cookies))
	for i, c := range s.Cookies {
		out[i] = browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
	}
	return out
}

// NewSession builds a session from browser cookies. ExpiresAt is the latest
// cookie expiry, zero when every cookie is a session cookie.
func NewSession(name, url string, cookies []browser.Cookie) *SessionData {
	s := &SessionData{
		Name:      name,
		URL:       url,
		Cookies:   make([]Cookie, len(cookies)),
		CreatedAt: time.Now(),
	}
	maxExpires := 0.0
	for i, c := range cookies {
		s.Cookies[i] = Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		maxExpires = max(maxExpires, c.Expires)
	}
	if maxExpires > 0 {
		s.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
	return s
}

// Store saves sessions in the OS keyring, or as files when no keyring is
// reachable (Codespaces, CI, headless servers).
type Store struct {
	dir string // non-empty means file storage
}

// NewStore picks the keyring when it works and the home directory otherwise
func NewStore() (*Store, error) {
	if !useFileBasedStorage() {
		return &Store{}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return NewFileStore(filepath.Join(home, FallbackDir))
}

// NewFileStore stores sessions as JSON files in dir
func NewFileStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// useFileBasedStorage checks if the keyring is unusable
func useFileBasedStorage() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}

	testKey := "_test_keyring_access_"
	if err := keyring.Set(KeyringService, testKey, "test"); err != nil {
		return true
	}
	_ = keyring.Delete(KeyringService, testKey)
	return false
}

func (st *Store) path(name string) string {
	return filepath.Join(st.dir, name+".json")
}

// Save stores a session, replacing one of the same name
func (st *Store) Save(session *SessionData) error {
	if session.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if st.dir != "" {
		if err := os.WriteFile(st.path(session.Name), data, 0o600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, session.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return st.updateManifest(session.Name, true)
}

// Load returns a stored session. Expired sessions yield ErrSessionExpired.
func (st *Store) Load(name string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	var data []byte
	if st.dir != "" {
		b, err := os.ReadFile(st.path(name))
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
		data = b
	} else {
		s, err := keyring.Get(KeyringService, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
		data = []byte(s)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", name, ErrSessionExpired)
	}
	return &session, nil
}

// Delete removes a session. Deleting a missing file session is not an error.
func (st *Store) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if st.dir != "" {
		if err := os.Remove(st.path(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, name); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return st.updateManifest(name, false)
}

// List returns the names of all stored sessions, sorted
func (st *Store) List() ([]string, error) {
	if st.dir != "" {
		entries, err := os.ReadDir(st.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}

		sessions := []string{}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
			}
		}
		slices.Sort(sessions)
		return sessions, nil
	}

	// The keyring cannot be enumerated, so names are tracked in a manifest
	manifestData, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		return []string{}, nil
	}

	var sessions []string
	if err := json.Unmarshal([]byte(manifestData), &sessions); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	slices.Sort(sessions)
	return sessions, nil
}

// updateManifest adds or removes a session from the keyring manifest
func (st *Store) updateManifest(sessionName string, add bool) error {
	sessions, _ := st.List()

	sessions = slices.DeleteFunc(sessions, func(s string) bool { return s == sessionName })
	if add {
		sessions = append(sessions, sessionName)
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}
