package blogwidgets

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eringen/blogwidgets/plugins"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test_blog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func sampleEntry(slug string, pub time.Time, published bool, tags ...string) *Entry {
	return &Entry{
		Slug:      slug,
		PubDate:   pub,
		Published: published,
		Author:    "Ada",
		Tags:      tags,
		Translations: []plugins.Translation{
			{Language: "en", Title: "Title " + slug, Excerpt: "Excerpt", Content: "# Body"},
		},
	}
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSaveAndGetEntry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e := sampleEntry("hello", date(2024, 1, 15), true, "Go", "news", "go")
	e.Image = "cover.jpg"
	e.Translations = append(e.Translations, plugins.Translation{Language: "de", Title: "Hallo", Content: "Inhalt"})
	if err := s.SaveEntry(ctx, e); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if e.ID == 0 {
		t.Fatal("SaveEntry should assign an ID")
	}

	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	want := Entry{
		ID:        e.ID,
		Slug:      "hello",
		PubDate:   date(2024, 1, 15),
		Published: true,
		Author:    "Ada",
		Image:     "cover.jpg",
		Tags:      []string{"go", "news"},
		Translations: []plugins.Translation{
			{Language: "de", Title: "Hallo", Content: "Inhalt"},
			{Language: "en", Title: "Title hello", Excerpt: "Excerpt", Content: "# Body"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetEntry mismatch (-want +got):\n%s", diff)
	}

	bySlug, err := s.GetEntryBySlug(ctx, "hello")
	if err != nil {
		t.Fatalf("GetEntryBySlug failed: %v", err)
	}
	if bySlug.ID != e.ID {
		t.Errorf("GetEntryBySlug ID = %d, want %d", bySlug.ID, e.ID)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.GetEntry(ctx, 42); !IsNotFound(err) {
		t.Errorf("GetEntry error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetEntryBySlug(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("GetEntryBySlug error = %v, want ErrNotFound", err)
	}
}

func TestUpdateEntryReplacesTranslationsAndTags(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e := sampleEntry("post", date(2024, 2, 1), false, "draft", "go")
	if err := s.SaveEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	e.Slug = "renamed"
	e.Published = true
	e.Tags = []string{"go"}
	e.Translations = []plugins.Translation{{Language: "de", Title: "Neu"}}
	if err := s.SaveEntry(ctx, e); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Slug != "renamed" || !got.Published {
		t.Errorf("got slug %q published %v", got.Slug, got.Published)
	}
	if diff := cmp.Diff([]string{"go"}, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if len(got.Translations) != 1 || got.Translations[0].Title != "Neu" {
		t.Errorf("translations = %+v", got.Translations)
	}

	// Tags stay known after the last entry drops them.
	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"draft", "go"}, tags); diff != "" {
		t.Errorf("ListTags mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateMissingEntry(t *testing.T) {
	s := setupTestStore(t)
	e := sampleEntry("ghost", date(2024, 1, 1), true)
	e.ID = 99
	if err := s.SaveEntry(context.Background(), e); !IsNotFound(err) {
		t.Errorf("SaveEntry error = %v, want ErrNotFound", err)
	}
}

func TestSaveEntryRequiresSlug(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SaveEntry(context.Background(), sampleEntry(" ", date(2024, 1, 1), true)); err == nil {
		t.Error("expected error for empty slug")
	}
}

func TestDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.SaveEntry(ctx, sampleEntry("same", date(2024, 1, 1), true)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveEntry(ctx, sampleEntry("same", date(2024, 1, 2), true)); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestListAndPublishedEntries(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := date(2024, 6, 15)

	for _, e := range []*Entry{
		sampleEntry("old", date(2024, 1, 1), true),
		sampleEntry("new", date(2024, 3, 1), true),
		sampleEntry("draft", date(2024, 2, 1), false),
		sampleEntry("scheduled", date(2024, 12, 1), true),
	} {
		if err := s.SaveEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	slugs := func(entries []Entry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Slug)
		}
		return out
	}

	all, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"scheduled", "new", "draft", "old"}, slugs(all)); diff != "" {
		t.Errorf("ListEntries mismatch (-want +got):\n%s", diff)
	}

	flagged, err := s.ListPublishedFlag(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"scheduled", "new", "old"}, slugs(flagged)); diff != "" {
		t.Errorf("ListPublishedFlag mismatch (-want +got):\n%s", diff)
	}

	visible, err := s.PublishedEntries(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"new", "old"}, slugs(visible)); diff != "" {
		t.Errorf("PublishedEntries mismatch (-want +got):\n%s", diff)
	}
}

func TestSamePubDateOrdersByID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, slug := range []string{"first", "second"} {
		if err := s.SaveEntry(ctx, sampleEntry(slug, date(2024, 1, 1), true)); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Slug != "second" {
		t.Errorf("expected newest ID first, got %+v", entries)
	}
}

func TestDeleteEntry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	e := sampleEntry("bye", date(2024, 1, 1), true, "go")
	if err := s.SaveEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if _, err := s.GetEntry(ctx, e.ID); !IsNotFound(err) {
		t.Errorf("entry still present: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entry_titles`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d orphaned translations", n)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tagged_items`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d orphaned tag links", n)
	}
}

func TestExistingTags(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.SaveEntry(ctx, sampleEntry("a", date(2024, 1, 1), true, "news", "go")); err != nil {
		t.Fatal(err)
	}

	got, err := s.ExistingTags(ctx, []string{"News", "missing", "go", "news"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"go", "news"}, got); diff != "" {
		t.Errorf("ExistingTags mismatch (-want +got):\n%s", diff)
	}

	got, err = s.ExistingTags(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("ExistingTags(nil) = %v, want empty", got)
	}
}

func TestLatestEntriesPluginCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cfg := &plugins.LatestEntriesConfig{Title: "Recent", Limit: 3, CurrentLanguageOnly: true, Tagged: "news go", PaginateBy: 2}
	if err := s.SaveLatestEntriesPlugin(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetLatestEntriesPlugin(ctx, cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("GetLatestEntriesPlugin mismatch (-want +got):\n%s", diff)
	}

	cfg.Limit = 0
	cfg.CurrentLanguageOnly = false
	if err := s.SaveLatestEntriesPlugin(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	inst, err := s.GetInstance(ctx, plugins.LatestEntriesType, cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(plugins.Instance(cfg), inst); diff != "" {
		t.Errorf("GetInstance mismatch (-want +got):\n%s", diff)
	}

	list, err := s.ListLatestEntriesPlugins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("ListLatestEntriesPlugins len = %d, want 1", len(list))
	}

	missing := &plugins.LatestEntriesConfig{ID: 404}
	if err := s.SaveLatestEntriesPlugin(ctx, missing); !IsNotFound(err) {
		t.Errorf("update missing instance error = %v, want ErrNotFound", err)
	}
}

func TestArchivePluginCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cfg := &plugins.ArchiveConfig{Title: "Archive", Tagged: "news", OptionalTemplate: "custom/side.html"}
	if err := s.SaveArchivePlugin(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetArchivePlugin(ctx, cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("GetArchivePlugin mismatch (-want +got):\n%s", diff)
	}
	list, err := s.ListArchivePlugins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("ListArchivePlugins len = %d, want 1", len(list))
	}
}

func TestGetInstanceUnknownType(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetInstance(context.Background(), "Nope", 1)
	if err == nil {
		t.Fatal("expected error for unknown plugin type")
	}
	if err := s.DeleteInstance(context.Background(), "Nope", 1); err == nil {
		t.Fatal("expected error deleting unknown plugin type")
	}
}

func TestPlacements(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	archive := &plugins.ArchiveConfig{Title: "Archive"}
	if err := s.SaveArchivePlugin(ctx, archive); err != nil {
		t.Fatal(err)
	}
	latest := &plugins.LatestEntriesConfig{Limit: 5}
	if err := s.SaveLatestEntriesPlugin(ctx, latest); err != nil {
		t.Fatal(err)
	}

	for _, p := range []*Placement{
		{Placeholder: "sidebar", Position: 0, PluginType: plugins.SideMenuType, PluginID: archive.ID},
		{Placeholder: "content", Position: 1, PluginType: plugins.LatestEntriesType, PluginID: latest.ID},
		{Placeholder: "content", Position: 0, PluginType: plugins.SideMenuType, PluginID: archive.ID},
	} {
		if err := s.SavePlacement(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListPlacements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, p := range list {
		order = append(order, p.Placeholder+":"+p.PluginType)
	}
	want := []string{"content:SideMenu", "content:CMSLatestEntriesPlugin", "sidebar:SideMenu"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("ListPlacements mismatch (-want +got):\n%s", diff)
	}

	// Deleting an instance removes its placements.
	if err := s.DeleteInstance(ctx, plugins.SideMenuType, archive.ID); err != nil {
		t.Fatal(err)
	}
	list, err = s.ListPlacements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].PluginType != plugins.LatestEntriesType {
		t.Errorf("placements after delete = %+v", list)
	}
	if _, err := s.GetArchivePlugin(ctx, archive.ID); !IsNotFound(err) {
		t.Errorf("archive instance still present: %v", err)
	}

	if err := s.DeletePlacement(ctx, list[0].ID); err != nil {
		t.Fatal(err)
	}
	list, err = s.ListPlacements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("placements after DeletePlacement = %+v", list)
	}
}

func TestMedia(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m := Media{Filename: "cat-1a2b3c4d.jpg", OriginalName: "Cat.PNG", Width: 800, Height: 600, Size: 1234, UploadedAt: date(2024, 5, 1)}
	if err := s.SaveMedia(ctx, m); err != nil {
		t.Fatal(err)
	}
	e := sampleEntry("with-image", date(2024, 1, 1), true)
	e.Image = m.Filename
	if err := s.SaveEntry(ctx, e); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListMedia(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Media{m}, list); diff != "" {
		t.Errorf("ListMedia mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteMedia(ctx, m.Filename); err != nil {
		t.Fatal(err)
	}
	list, err = s.ListMedia(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("media after delete = %+v", list)
	}
	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Image != "" {
		t.Errorf("entry image = %q, want cleared", got.Image)
	}
}
