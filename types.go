package blogwidgets

import (
	"time"

	"github.com/eringen/blogwidgets/plugins"
)

// Entry is the blog entry type shared with the plugins.
type Entry = plugins.Entry

// Placement puts a plugin instance into a named placeholder of the page.
// Placements of one placeholder render in Position order.
type Placement struct {
	ID          int64
	Placeholder string
	Position    int
	PluginType  string
	PluginID    int64
}

// Media is an uploaded image stored under the static uploads directory.
type Media struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// PageMeta carries per-page OpenGraph and SEO metadata into the layout.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
