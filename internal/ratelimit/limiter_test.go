package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://scontent-ams2-1.xx.fbcdn.net/v/t39/1.jpg", "fbcdn.net"},
		{"https://www.facebook.com/nasa", "facebook.com"},
		{"https://m.facebook.com/story.php?id=1", "facebook.com"},
		{"http://127.0.0.1:8080/x", "127.0.0.1"},
		{"http://localhost/x", "localhost"},
		{"/relative", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.in))
		})
	}
}

func TestAllowSharesBucketAcrossSubdomains(t *testing.T) {
	dl := NewDomainLimiter(0.001, 2)

	assert.True(t, dl.Allow("https://scontent-a.xx.fbcdn.net/1.jpg"))
	assert.True(t, dl.Allow("https://scontent-b.xx.fbcdn.net/2.jpg"))
	assert.False(t, dl.Allow("https://scontent-c.xx.fbcdn.net/3.jpg"))

	// other domains have their own bucket
	assert.True(t, dl.Allow("https://www.facebook.com/"))
	assert.True(t, dl.Allow("not a url"))
}

func TestWaitHonorsContext(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	require.NoError(t, dl.Wait(context.Background(), "https://www.facebook.com/a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, dl.Wait(ctx, "https://www.facebook.com/b"))
}

func TestSetLimit(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	dl.SetLimit("facebook.com", 0.001, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, dl.Allow("https://www.facebook.com/"))
	}
	assert.False(t, dl.Allow("https://www.facebook.com/"))
}
