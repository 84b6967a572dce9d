package templates

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blogwidgets/plugins"
)

func TestDefaultsExist(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	for _, name := range []string{
		plugins.LatestEntriesTemplate,
		plugins.LatestEntriesDetailTemplate,
		plugins.SideMenuTemplate,
		"base.html",
		"errors/404.html",
	} {
		assert.True(t, e.Exists(name), name)
	}
	assert.False(t, e.Exists("cmsplugin_blog/latest_entries_news.html"))
	assert.False(t, e.Exists(""))
}

func TestSelectFallsBack(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	name, err := e.Select("cmsplugin_blog/latest_entries_news.html", plugins.LatestEntriesTemplate)
	require.NoError(t, err)
	assert.Equal(t, plugins.LatestEntriesTemplate, name)

	_, err = e.Select("nope.html")
	assert.ErrorIs(t, err, ErrNoTemplate)
}

func TestOverrideDirShadowsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cmsplugin_blog"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmsplugin_blog", "latest_entries_news.html"),
		[]byte(`news:{% for item in latest %}{{ item.Slug }};{% endfor %}`), 0o644))

	e, err := New(WithOverrideDir(dir))
	require.NoError(t, err)

	name, err := e.Select("cmsplugin_blog/latest_entries_news.html", plugins.LatestEntriesTemplate)
	require.NoError(t, err)
	assert.Equal(t, "cmsplugin_blog/latest_entries_news.html", name)

	out, err := e.RenderString(name, map[string]any{
		"latest": []plugins.Item{{Slug: "a"}, {Slug: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "news:a;b;", out)
}

func TestOverrideDirMissing(t *testing.T) {
	_, err := New(WithOverrideDir(filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, err)
}

func TestResetPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.html")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	e, err := New(WithOverrideDir(dir))
	require.NoError(t, err)

	out, err := e.RenderString("x.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	out, err = e.RenderString("x.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "one", out, "compiled template is cached")

	e.Reset()
	out, err = e.RenderString("x.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestLatestEntriesTemplateRenders(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	pg := plugins.NewPaginator(3, 2)
	items := []plugins.Item{
		{Slug: "hello", URL: "/blog/hello/", Title: "Hello <World>", PubDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Tags: []string{"news"}},
		{Slug: "second", URL: "/blog/second/", Title: "Second"},
	}
	var buf bytes.Buffer
	err = e.Component([]string{plugins.LatestEntriesTemplate}, map[string]any{
		"instance":     &plugins.LatestEntriesConfig{ID: 7, Title: "Recent"},
		"latest":       items,
		"object_list":  items,
		"is_paginated": true,
		"paginator":    pg,
		"page_obj":     pg.Page(items, url.Values{"month": {"3"}, "year": {"2024"}}),
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `id="plugin-7"`)
	assert.Contains(t, out, "Hello &lt;World&gt;")
	assert.Contains(t, out, `href="/blog/hello/"`)
	assert.Contains(t, out, `datetime="2024-03-01"`)
	assert.Contains(t, out, `href="?month=3&amp;page=2&amp;year=2024" rel="next"`)
	assert.False(t, strings.Contains(out, `rel="prev"`))
}

func TestDetailTemplateRendersMarkdown(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	out, err := e.RenderString(plugins.LatestEntriesDetailTemplate, map[string]any{
		"instance": &plugins.LatestEntriesConfig{ID: 1},
		"entry":    plugins.Item{Title: "T", Content: "Some **bold** text <script>x</script>"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestSideMenuTemplateRendersMonths(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	out, err := e.RenderString(plugins.SideMenuTemplate, map[string]any{
		"instance": &plugins.ArchiveConfig{ID: 3},
		"archive":  []plugins.Item{{URL: "/blog/a/", Title: "A"}},
		"months":   []plugins.MonthArchive{{Year: 2024, Month: time.February, Count: 2}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `href="/?month=2&amp;year=2024"`)
	assert.Contains(t, out, "February 2024")
}
