// internal/downloader/downloader.go
package downloader

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/fbscrape/internal/config"
	"github.com/law-makers/fbscrape/internal/ratelimit"
	"github.com/law-makers/fbscrape/internal/retry"
	"github.com/rs/zerolog/log"
)

// ErrUnfetchable is returned for media URLs that only exist inside the
// browser, such as blob: video sources
var ErrUnfetchable = errors.New("media URL cannot be fetched outside the browser")

// DownloadResult represents the result of a download operation
type DownloadResult struct {
	URL       string
	PostID    string
	FilePath  string
	Size      int64
	Success   bool
	Skipped   bool
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	OutputDir string
	Filename  string
	Headers   map[string]string
	// Overwrite re-downloads files that already exist
	Overwrite bool
}

// Downloader fetches media files with streaming I/O
type Downloader struct {
	client    *http.Client
	userAgent string
	limiter   ratelimit.RateLimiter
	retry     retry.Config
}

// NewDownloader creates a new Downloader instance. limiter may be nil.
func NewDownloader(timeout time.Duration, userAgent string, limiter ratelimit.RateLimiter) *Downloader {
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Downloader{
		client:    client,
		userAgent: userAgent,
		limiter:   limiter,
		retry:     retry.DefaultConfig(),
	}
}

// SetProxy routes downloads through fn, typically a proxy.Pool rotation
func (d *Downloader) SetProxy(fn func(*http.Request) (*url.URL, error)) {
	if t, ok := d.client.Transport.(*http.Transport); ok && fn != nil {
		t.Proxy = fn
	}
}

// Download downloads a single file
func (d *Downloader) Download(ctx context.Context, fileURL string, opts DownloadOptions) *DownloadResult {
	result := &DownloadResult{
		URL:       fileURL,
		StartTime: time.Now(),
	}
	fail := func(err error) *DownloadResult {
		result.Error = err
		result.Duration = time.Since(result.StartTime)
		return result
	}

	u, err := url.Parse(fileURL)
	if err != nil {
		return fail(fmt.Errorf("invalid URL: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fail(fmt.Errorf("%w: %s", ErrUnfetchable, fileURL))
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	filename := opts.Filename
	if filename == "" {
		filename = fileURL
	}
	filePath := filepath.Join(opts.OutputDir, sanitizeFilename(filename))
	result.FilePath = filePath

	if !opts.Overwrite {
		if info, err := os.Stat(filePath); err == nil && info.Size() > 0 {
			result.Size = info.Size()
			result.Success = true
			result.Skipped = true
			result.Duration = time.Since(result.StartTime)
			return result
		}
	}

	err = retry.WithRetry(ctx, d.retry, func() error {
		n, err := d.fetch(ctx, fileURL, filePath, opts.Headers)
		result.Size = n
		return err
	})
	if err != nil {
		return fail(err)
	}

	result.Success = true
	result.Duration = time.Since(result.StartTime)

	log.Debug().
		Str("url", fileURL).
		Str("file", filePath).
		Int64("bytes", result.Size).
		Dur("duration", result.Duration).
		Msg("Download completed")

	return result
}

// fetch streams one response body to filePath
func (d *Downloader) fetch(ctx context.Context, fileURL, filePath string, headers map[string]string) (int64, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, fileURL); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, retry.NewHTTPError(resp.StatusCode, resp.Status, fileURL)
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create file: %w", err))
	}
	defer outFile.Close()

	n, err := io.Copy(outFile, resp.Body)
	if err != nil {
		_ = os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	return n, nil
}

// sanitizeFilename prevents path traversal attacks
func sanitizeFilename(input string) string {
	// Extract filename from URL
	var queryHash string
	if u, err := url.Parse(input); err == nil && u.Host != "" {
		parts := strings.Split(u.Path, "/")
		if len(parts) > 0 {
			input = parts[len(parts)-1]
		}
		if u.RawQuery != "" {
			queryHash = "_" + hashString(u.RawQuery)
		}
	}

	input = strings.NewReplacer(
		"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	).Replace(input)

	input = strings.TrimSpace(input)
	input = strings.Trim(input, ".")

	// Append query hash before extension
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if queryHash != "" {
		input = stem + queryHash + ext
	}

	if input == "" {
		input = fmt.Sprintf("download_%d", time.Now().UnixNano())
	}
	if len(input) > 200 {
		input = input[:200]
	}

	return input
}

// hashString creates a short hash for unique filenames
func hashString(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
