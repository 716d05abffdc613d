package proxy

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRotation(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := NewPool([]string{"p1", " ", "p2", "p3"})
	pool.now = func() time.Time { return now }

	assert.Equal(t, 3, pool.Len())
	assert.Equal(t, "p1", pool.Next())
	assert.Equal(t, "p2", pool.Next())
	assert.Equal(t, "p3", pool.Next())
	assert.Equal(t, "p1", pool.Next())

	pool.MarkFailed("p2")
	assert.Equal(t, "p3", pool.Next())
	assert.Equal(t, "p1", pool.Next())
	assert.Equal(t, "p3", pool.Next())

	now = now.Add(DefaultCooldown)
	assert.Equal(t, "p1", pool.Next())
	assert.Equal(t, "p2", pool.Next())
}

func TestPoolAllFailed(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := NewPool([]string{"p1", "p2"})
	pool.now = func() time.Time { return now }

	pool.MarkFailed("p2")
	now = now.Add(time.Second)
	pool.MarkFailed("p1")

	assert.Equal(t, "p2", pool.Next())

	pool.MarkHealthy("p1")
	assert.Equal(t, "p1", pool.Next())
}

func TestPoolEmpty(t *testing.T) {
	pool := NewPool(nil)
	assert.Equal(t, "", pool.Next())
	pool.MarkFailed("")
}

func TestProxyFunc(t *testing.T) {
	pool := NewPool([]string{"127.0.0.1:8080", "socks5://127.0.0.1:1080"})
	fn := pool.ProxyFunc()
	req, err := http.NewRequest(http.MethodGet, "https://www.facebook.com/", nil)
	require.NoError(t, err)

	u, err := fn(req)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", u.String())

	u, err = fn(req)
	require.NoError(t, err)
	assert.Equal(t, "socks5", u.Scheme)
}
