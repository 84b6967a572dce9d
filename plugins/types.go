// Package plugins renders the blog presentation plugins: the latest
// entries listing and the side menu archive. Each plugin turns one
// author-configured instance and the current request into a template
// name and a template context. Loading entries is left to a Source.
package plugins

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Plugin type names, used as registry keys and stored with placements.
const (
	LatestEntriesType = "CMSLatestEntriesPlugin"
	SideMenuType      = "SideMenu"
)

// Default templates.
const (
	LatestEntriesTemplate       = "cmsplugin_blog/latest_entries.html"
	LatestEntriesDetailTemplate = "cmsplugin_blog/latest_entries_detail.html"
	SideMenuTemplate            = "cmsplugin_blog/side_menu.html"
)

// DefaultLimit is the number of entries a new latest entries instance shows.
const DefaultLimit = 5

var (
	// ErrInvalidArchiveDate is returned when the month or year query
	// parameter is not an integer.
	ErrInvalidArchiveDate = errors.New("invalid archive date")
	// ErrUnknownPlugin is returned for a plugin type that is not registered.
	ErrUnknownPlugin = errors.New("unknown plugin type")
	// ErrWrongInstance is returned when a plugin is handed another plugin's
	// configuration.
	ErrWrongInstance = errors.New("instance does not belong to plugin")
)

// Translation is the language-specific part of an entry.
type Translation struct {
	Language string
	Title    string
	Excerpt  string
	Content  string
}

// Entry is a blog entry with all of its translations.
type Entry struct {
	ID           int64
	Slug         string
	PubDate      time.Time
	Published    bool
	Author       string
	Tags         []string
	Image        string
	Translations []Translation
}

// IsPublished reports whether the entry is visible at now.
func (e Entry) IsPublished(now time.Time) bool {
	return e.Published && !e.PubDate.After(now)
}

// HasLanguage reports whether the entry has a translation in lang.
func (e Entry) HasLanguage(lang string) bool {
	for _, t := range e.Translations {
		if t.Language == lang {
			return true
		}
	}
	return false
}

// TranslationFor returns the translation in lang, then in fallback, then
// the first one stored.
func (e Entry) TranslationFor(lang, fallback string) Translation {
	var first *Translation
	var fb *Translation
	for i := range e.Translations {
		t := &e.Translations[i]
		if t.Language == lang {
			return *t
		}
		if t.Language == fallback && fb == nil {
			fb = t
		}
		if first == nil {
			first = t
		}
	}
	if fb != nil {
		return *fb
	}
	if first != nil {
		return *first
	}
	return Translation{Language: lang}
}

// Link is the public URL of the entry detail page.
func (e Entry) Link() string {
	return "/blog/" + url.PathEscape(e.Slug) + "/"
}

// Item is an entry resolved to one language, as handed to templates.
type Item struct {
	ID       int64
	Slug     string
	URL      string
	PubDate  time.Time
	Author   string
	Tags     []string
	Image    string
	Language string
	Title    string
	Excerpt  string
	Content  string
}

func newItem(e Entry, lang, fallback string) Item {
	t := e.TranslationFor(lang, fallback)
	return Item{
		ID:       e.ID,
		Slug:     e.Slug,
		URL:      e.Link(),
		PubDate:  e.PubDate,
		Author:   e.Author,
		Tags:     e.Tags,
		Image:    e.Image,
		Language: t.Language,
		Title:    t.Title,
		Excerpt:  t.Excerpt,
		Content:  t.Content,
	}
}

// Instance is a stored plugin configuration.
type Instance interface {
	PluginType() string
	InstanceID() int64
}

// LatestEntriesConfig configures a latest entries plugin instance.
type LatestEntriesConfig struct {
	ID                  int64
	Title               string
	Limit               int // 0 means no limit
	CurrentLanguageOnly bool
	Tagged              string
	PaginateBy          int // 0 disables pagination
}

func (c *LatestEntriesConfig) PluginType() string { return LatestEntriesType }
func (c *LatestEntriesConfig) InstanceID() int64  { return c.ID }

// ArchiveConfig configures a side menu archive plugin instance.
type ArchiveConfig struct {
	ID               int64
	Title            string
	Tagged           string
	OptionalTemplate string
}

func (c *ArchiveConfig) PluginType() string { return SideMenuType }
func (c *ArchiveConfig) InstanceID() int64  { return c.ID }

// Request carries the parts of an HTTP request the plugins look at.
type Request struct {
	Query           url.Values
	Language        string
	DefaultLanguage string
	Now             time.Time
}

func (r Request) now() time.Time {
	if r.Now.IsZero() {
		return time.Now()
	}
	return r.Now
}

// Context is a template context.
type Context map[string]any

// Result is the outcome of rendering a plugin instance. Templates lists
// candidate template names in order of preference.
type Result struct {
	Templates []string
	Context   Context
}

// Template returns the preferred template name.
func (r Result) Template() string {
	if len(r.Templates) == 0 {
		return ""
	}
	return r.Templates[0]
}

// Source loads entries and tags for the plugins.
type Source interface {
	// PublishedEntries returns entries visible at now, newest first.
	// Plugins filter and order the result again.
	PublishedEntries(ctx context.Context, now time.Time) ([]Entry, error)
	// ExistingTags returns the subset of names that are known tags,
	// normalized and sorted by name.
	ExistingTags(ctx context.Context, names []string) ([]string, error)
}

// Plugin renders instances of one plugin type.
type Plugin interface {
	Type() string
	Name() string
	Render(ctx context.Context, req Request, inst Instance, placeholder string) (Result, error)
}
