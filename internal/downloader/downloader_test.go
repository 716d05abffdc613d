package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/fbscrape/internal/ratelimit"
)

func TestDownload_Success(t *testing.T) {
	content := "test file content"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Test/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(content))
	}))
	defer server.Close()

	tempDir := t.TempDir()
	dl := NewDownloader(10*time.Second, "Test/1.0", ratelimit.NewDomainLimiter(100, 10))

	result := dl.Download(context.Background(), server.URL+"/test.txt", DownloadOptions{
		OutputDir: tempDir,
	})

	if !result.Success {
		t.Fatalf("Download failed: %v", result.Error)
	}

	data, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != content {
		t.Errorf("Content mismatch: got %q, want %q", string(data), content)
	}
}

func TestDownload_SkipsExisting(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("data"))
	}))
	defer server.Close()

	dl := NewDownloader(10*time.Second, "", nil)
	opts := DownloadOptions{OutputDir: t.TempDir(), Filename: "1_img1.jpg"}

	first := dl.Download(context.Background(), server.URL+"/a.jpg", opts)
	second := dl.Download(context.Background(), server.URL+"/a.jpg", opts)

	if !first.Success || !second.Success {
		t.Fatalf("downloads failed: %v, %v", first.Error, second.Error)
	}
	if !second.Skipped {
		t.Error("second download should be skipped")
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestDownload_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dl := NewDownloader(10*time.Second, "", nil)
	result := dl.Download(context.Background(), server.URL+"/missing.jpg", DownloadOptions{OutputDir: t.TempDir()})

	if result.Success || result.Error == nil {
		t.Fatal("expected failure for 404")
	}
	if _, err := os.Stat(result.FilePath); !os.IsNotExist(err) {
		t.Error("no file should be left behind")
	}
}

func TestDownload_BlobURL(t *testing.T) {
	dl := NewDownloader(time.Second, "", nil)
	result := dl.Download(context.Background(), "blob:https://www.facebook.com/abc", DownloadOptions{OutputDir: t.TempDir()})

	if !errors.Is(result.Error, ErrUnfetchable) {
		t.Errorf("expected ErrUnfetchable, got %v", result.Error)
	}
}

func TestSanitizeFilename_Security(t *testing.T) {
	dangerous := []string{
		"../../etc/passwd",
		"/etc/shadow",
		"file:with:colons",
		"https://cdn.example.com/a/../../b.jpg?x=1",
	}

	for _, input := range dangerous {
		t.Run(input, func(t *testing.T) {
			result := sanitizeFilename(input)
			if strings.Contains(result, "/") || strings.Contains(result, "\\") {
				t.Errorf("Sanitized filename contains path separator: %q", result)
			}
			if strings.Contains(result, "..") {
				t.Errorf("Sanitized filename contains '..': %q", result)
			}
		})
	}
}

func TestSanitizeFilename_QueryHash(t *testing.T) {
	a := sanitizeFilename("https://scontent.example.com/v/t39/photo.jpg?stp=1&oh=aa")
	b := sanitizeFilename("https://scontent.example.com/v/t39/photo.jpg?stp=1&oh=bb")

	if a == b {
		t.Errorf("different queries should give different names: %q", a)
	}
	if !strings.HasPrefix(a, "photo_") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("unexpected name %q", a)
	}
}

func TestWorkerPool_Concurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte("data"))
	}))
	defer server.Close()

	jobs := []Job{
		{URL: server.URL + "/1.jpg", PostID: "1", Filename: "1_img1.jpg"},
		{URL: server.URL + "/2.jpg", PostID: "1", Filename: "1_img2.jpg"},
		{URL: server.URL + "/3.jpg", PostID: "2", Filename: "2_img1.jpg"},
	}

	pool := NewWorkerPool(2, NewDownloader(10*time.Second, "Test/1.0", nil))
	pool.SetProgressWriter(nil)

	results := pool.DownloadBatch(context.Background(), jobs, DownloadOptions{OutputDir: t.TempDir()})

	if len(results) != len(jobs) {
		t.Fatalf("Result count mismatch: got %d, want %d", len(results), len(jobs))
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("download of %s failed: %v", result.URL, result.Error)
		}
		if result.PostID == "" {
			t.Errorf("result for %s lost its post id", result.URL)
		}
	}
}

func BenchmarkSanitizeFilename(b *testing.B) {
	input := "https://example.com/path/to/file.mp4?query=param"
	for i := 0; i < b.N; i++ {
		sanitizeFilename(input)
	}
}
