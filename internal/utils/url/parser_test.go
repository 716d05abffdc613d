package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestTargetURL(t *testing.T) {
	tests := []struct {
		target  string
		isGroup bool
		want    string
	}{
		{"nasa", false, "https://www.facebook.com/nasa"},
		{"/nasa/", false, "https://www.facebook.com/nasa"},
		{"123456", true, "https://www.facebook.com/groups/123456"},
		{"https://www.facebook.com/nasa/posts/1", false, "https://www.facebook.com/nasa/posts/1"},
	}
	for _, tt := range tests {
		got, err := TargetURL(tt.target, tt.isGroup)
		if err != nil {
			t.Fatalf("TargetURL(%q): %v", tt.target, err)
		}
		if got != tt.want {
			t.Errorf("TargetURL(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}

	if _, err := TargetURL("  ", false); err == nil {
		t.Error("expected error for empty target")
	}
}

func TestTargetName(t *testing.T) {
	tests := map[string]string{
		"nasa":                                   "nasa",
		"https://www.facebook.com/nasa/posts/1":  "nasa",
		"https://www.facebook.com/groups/987/":   "987",
		"https://m.facebook.com/":                "",
	}
	for in, want := range tests {
		if got := TargetName(in); got != want {
			t.Errorf("TargetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	got := ResolveURL("https://www.facebook.com/nasa", "/photo/?fbid=1")
	if got != "https://www.facebook.com/photo/?fbid=1" {
		t.Errorf("ResolveURL = %q", got)
	}
}
