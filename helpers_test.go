package blogwidgets

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eringen/blogwidgets/plugins"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.24 -- released!  ", "go-1-24-released"},
		{"Äpfel & Birnen", "pfel-birnen"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"http://example.com", nil, "http://example.com/"},
		{"http://example.com", []string{"blog", "hello"}, "http://example.com/blog/hello/"},
		{"http://example.com/site", []string{"blog"}, "http://example.com/site/blog/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestEntryJsonLD(t *testing.T) {
	cfg := SiteConfig{Name: "Blog", URL: "http://example.com", Author: "Site Author"}
	e := Entry{Slug: "hello", PubDate: date(2024, 3, 9), Tags: []string{"go", "news"}, Image: "pic.jpg"}
	tr := plugins.Translation{Language: "de", Title: "Hallo </script>", Excerpt: "Kurz"}

	raw := EntryJsonLD(e, tr, cfg)
	var got map[string]any
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := map[string]any{
		"@context":         "https://schema.org",
		"@type":            "BlogPosting",
		"headline":         "Hallo </script>",
		"description":      "Kurz",
		"datePublished":    "2024-03-09",
		"inLanguage":       "de",
		"url":              "http://example.com/blog/hello/",
		"mainEntityOfPage": map[string]any{"@type": "WebPage", "@id": "http://example.com/blog/hello/"},
		"author":           map[string]any{"@type": "Person", "name": "Site Author"},
		"publisher":        map[string]any{"@type": "Organization", "name": "Blog"},
		"image":            "http://example.com/public/uploads/pic.jpg",
		"keywords":         "go, news",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EntryJsonLD mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(raw, "</script>") {
		t.Error("script end tag not escaped")
	}
}
