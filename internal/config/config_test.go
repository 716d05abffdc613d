package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "fbscrape"}
	RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultPassageRateLimitRPS, cfg.PassageRateLimitRPS)
	assert.Equal(t, DefaultPassageRateLimitBurst, cfg.PassageRateLimitBurst)
	assert.Equal(t, DefaultMediaRateLimitRPS, cfg.MediaRateLimitRPS)
	assert.Equal(t, DefaultBrowserPoolSize, cfg.BrowserPoolSize)
	assert.Equal(t, DefaultBrowserHeadless, cfg.BrowserHeadless)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, int64(DefaultCacheMaxSizeBytes), cfg.CacheMaxSizeBytes)
	assert.Equal(t, DefaultPostsCount, cfg.PostsCount)
	assert.Equal(t, DefaultScrapeTimeout, cfg.ScrapeTimeout)
	assert.Equal(t, DefaultMaxScrollRetries, cfg.MaxScrollRetries)
	assert.Equal(t, DefaultPostsWait, cfg.PostsWait)
	assert.Equal(t, DefaultPopupTimeout, cfg.PopupTimeout)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultMediaDir, cfg.MediaDir)
	assert.Equal(t, DefaultDownloadWorkers, cfg.DownloadWorkers)
	assert.Equal(t, DefaultJSONLog, cfg.JSONLog)
	assert.Equal(t, DefaultMediaRateLimitBurst, cfg.MediaRateLimitBurst)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FBSCRAPE_POSTS_COUNT", "25")
	t.Setenv("FBSCRAPE_PROXIES", "http://a:1,http://b:2")
	t.Setenv("FBSCRAPE_SCRAPE_TIMEOUT", "90s")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.PostsCount)
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, cfg.Proxies)
	assert.Equal(t, 90*time.Second, cfg.ScrapeTimeout)
}

func TestLoad_LogLevel(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	t.Setenv("FBSCRAPE_LOG_LEVEL", "info")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("FBSCRAPE_USER_AGENT", "from-env")

	cmd := newCmd(t, "--user-agent", "from-flag", "--verbose", "--headless=false", "--timeout", "5s", "--db", "x.db")
	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.UserAgent)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "x.db", cfg.DBPath)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte("posts_count: 42\nfull_gallery: true\n"), 0o600))

	cfg, err := Load(newCmd(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.PostsCount)
	assert.True(t, cfg.FullGallery)
	assert.Equal(t, DefaultScrapeTimeout, cfg.ScrapeTimeout)
}

func TestLoad_FileFalseOverridesTrueDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte("headless: false\nlog_level: info\n"), 0o600))

	cfg, err := Load(newCmd(t, "--config", path))
	require.NoError(t, err)
	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("FBSCRAPE_BROWSER_POOL_SIZE", "50")
	_, err := Load(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	bad := *cfg
	bad.LogLevel = "loud"
	assert.Error(t, validate(&bad))

	bad = *cfg
	bad.PostsCount = 0
	assert.Error(t, validate(&bad))
}
