package cache

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(1024 * 1024)
	defer c.Close()

	if err := c.Set("https://m.facebook.com/story/1", "full passage", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok := c.Get("https://m.facebook.com/story/1")
	if !ok || v != "full passage" {
		t.Fatalf("Get = %q, %v", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	stats := c.Stats()
	if stats["hits"].(uint64) != 1 || stats["misses"].(uint64) != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(1024)
	defer c.Close()

	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, len = %d", c.Len())
	}
}

func TestMemoryCache_EvictsLRU(t *testing.T) {
	value := strings.Repeat("x", 100)
	// room for two entries
	c := NewMemoryCache(2 * (int64(len(value)) + 1 + 64))
	defer c.Close()

	c.Set("a", value, time.Minute)
	c.Set("b", value, time.Minute)
	c.Get("a")
	c.Set("c", value, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("new entry should be present")
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemoryCache(1024)
	defer c.Close()

	c.Set("k", "one", time.Minute)
	c.Set("k", "two", time.Minute)

	if v, _ := c.Get("k"); v != "two" {
		t.Errorf("Get = %q, want two", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
