package downloader

import (
	"testing"

	"github.com/law-makers/fbscrape/pkg/models"
)

func TestExtractJobs(t *testing.T) {
	posts := []models.Post{
		{
			ID:     "10",
			Images: []string{"https://cdn.example.com/a.jpg?x=1", "https://cdn.example.com/b.png"},
			Videos: []string{"https://video.example.com/v.mp4"},
		},
		{
			ID:     "11",
			Images: []string{"https://cdn.example.com/a.jpg?x=1", "", "https://cdn.example.com/noext"},
		},
	}

	jobs := ExtractJobs(posts, MediaTypeAll)
	want := []Job{
		{URL: "https://cdn.example.com/a.jpg?x=1", PostID: "10", Filename: "10_img1.jpg"},
		{URL: "https://cdn.example.com/b.png", PostID: "10", Filename: "10_img2.png"},
		{URL: "https://video.example.com/v.mp4", PostID: "10", Filename: "10_vid1.mp4"},
		{URL: "https://cdn.example.com/noext", PostID: "11", Filename: "11_img1"},
	}

	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d: %+v", len(jobs), len(want), jobs)
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Errorf("job %d = %+v, want %+v", i, jobs[i], want[i])
		}
	}
}

func TestExtractJobs_Type(t *testing.T) {
	posts := []models.Post{{
		ID:     "1",
		Images: []string{"https://cdn.example.com/a.jpg"},
		Videos: []string{"https://video.example.com/v.mp4"},
	}}

	if jobs := ExtractJobs(posts, MediaTypeImage); len(jobs) != 1 || jobs[0].Filename != "1_img1.jpg" {
		t.Errorf("image jobs = %+v", jobs)
	}
	if jobs := ExtractJobs(posts, MediaTypeVideo); len(jobs) != 1 || jobs[0].Filename != "1_vid1.mp4" {
		t.Errorf("video jobs = %+v", jobs)
	}
}

func TestParseMediaType(t *testing.T) {
	for in, want := range map[string]MediaType{"": MediaTypeAll, "IMAGE": MediaTypeImage, "video": MediaTypeVideo} {
		got, err := ParseMediaType(in)
		if err != nil || got != want {
			t.Errorf("ParseMediaType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMediaType("audio"); err == nil {
		t.Error("expected error for audio")
	}
}
