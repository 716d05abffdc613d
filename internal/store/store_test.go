package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertPosts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	posts := []models.Post{
		{
			ID:         "pfbidA",
			Target:     "nasa",
			AuthorName: "NASA",
			Content:    "first",
			PostedAt:   "2024-03-04T15:15:00Z",
			Reactions:  models.Reactions{Like: 2, Haha: 1, Total: 3},
			Images:     []string{"https://cdn.example.com/a.jpg"},
			Layout:     models.LayoutNew,
			ScrapedAt:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{ID: "pfbidB", Target: "nasa", Content: "second"},
		{Content: "no id"},
	}

	fresh, err := s.UpsertPosts(ctx, posts)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh)

	// rescrape with fewer fields keeps stored text and refreshes counts
	fresh, err = s.UpsertPosts(ctx, []models.Post{{ID: "pfbidA", Reactions: models.Reactions{Total: 10}}})
	require.NoError(t, err)
	assert.Equal(t, 0, fresh)

	got, err := s.Get(ctx, "pfbidA")
	require.NoError(t, err)
	assert.Equal(t, "NASA", got.AuthorName)
	assert.Equal(t, "first", got.Content)
	assert.Equal(t, "nasa", got.Target)
	assert.Equal(t, 10, got.Reactions.Total)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, got.Images)
	assert.Equal(t, []string{}, got.Videos)
	assert.Equal(t, models.LayoutNew, got.Layout)

	ok, err := s.Exists(ctx, "pfbidB")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertPostsMedia(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := models.Post{
		ID:     "pfbidA",
		Images: []string{"https://cdn.example.com/a.jpg"},
		Videos: []string{"https://video.example.com/v.mp4"},
	}
	_, err := s.UpsertPosts(ctx, []models.Post{first})
	require.NoError(t, err)

	// nothing found keeps the stored media
	_, err = s.UpsertPosts(ctx, []models.Post{{ID: "pfbidA"}})
	require.NoError(t, err)
	got, err := s.Get(ctx, "pfbidA")
	require.NoError(t, err)
	assert.Equal(t, first.Images, got.Images)
	assert.Equal(t, first.Videos, got.Videos)

	// new media replaces it
	_, err = s.UpsertPosts(ctx, []models.Post{{ID: "pfbidA", Images: []string{"https://cdn.example.com/b.jpg"}}})
	require.NoError(t, err)
	got, err = s.Get(ctx, "pfbidA")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/b.jpg"}, got.Images)
	assert.Equal(t, first.Videos, got.Videos)
}

func TestPostsQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.UpsertPosts(ctx, []models.Post{
		{ID: "1", Target: "nasa", PostedAt: "2024-01-01T00:00:00Z", ScrapedAt: base},
		{ID: "2", Target: "nasa", PostedAt: "2024-01-03T00:00:00Z", ScrapedAt: base.Add(48 * time.Hour)},
		{ID: "3", Target: "esa", PostedAt: "2024-01-02T00:00:00Z", ScrapedAt: base.Add(24 * time.Hour)},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "all newest first", query: Query{}, want: []string{"2", "3", "1"}},
		{name: "by target", query: Query{Target: "nasa"}, want: []string{"2", "1"}},
		{name: "since", query: Query{Since: base.Add(time.Hour)}, want: []string{"2", "3"}},
		{name: "limit", query: Query{Limit: 1}, want: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := s.Posts(ctx, tt.query)
			require.NoError(t, err)
			var ids []string
			for _, p := range posts {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	first := &Run{Target: "nasa", StartedAt: start, FinishedAt: start.Add(time.Minute), Posts: 5, NewPosts: 5}
	require.NoError(t, s.RecordRun(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &Run{Target: "nasa", StartedAt: start.Add(time.Hour), Posts: 5, NewPosts: 1, Error: "TIMEOUT"}
	require.NoError(t, s.RecordRun(ctx, second))
	require.NoError(t, s.RecordRun(ctx, &Run{Target: "esa", StartedAt: start}))

	runs, err := s.Runs(ctx, "nasa", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, "TIMEOUT", runs[0].Error)
	assert.Equal(t, start, runs[1].StartedAt)
	assert.Equal(t, 5, runs[1].NewPosts)

	runs, err = s.Runs(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "posts.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.UpsertPosts(ctx, []models.Post{{ID: "1"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	ok, err := s.Exists(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)
}
