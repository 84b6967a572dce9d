package blogwidgets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/blogwidgets/plugins"
	"github.com/eringen/blogwidgets/tagging"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// dateLayout keeps stored dates in UTC with a fixed width so they sort
// lexically.
const dateLayout = "2006-01-02T15:04:05Z"

// Store wraps a SQLite database holding entries, tags, plugin instances,
// placements and media.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during admin writes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    pub_date TEXT NOT NULL,
    is_published INTEGER NOT NULL DEFAULT 0,
    author TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS entries_pub_date ON entries (pub_date);
CREATE TABLE IF NOT EXISTS entry_titles (
    entry_id INTEGER NOT NULL,
    language TEXT NOT NULL,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (entry_id, language)
);
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS tagged_items (
    tag_id INTEGER NOT NULL,
    entry_id INTEGER NOT NULL,
    PRIMARY KEY (tag_id, entry_id)
);
CREATE TABLE IF NOT EXISTS latest_entries_plugins (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL DEFAULT '',
    lim INTEGER NOT NULL DEFAULT 5,
    current_language_only INTEGER NOT NULL DEFAULT 0,
    tagged TEXT NOT NULL DEFAULT '',
    paginate_by INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS archive_plugins (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL DEFAULT '',
    tagged TEXT NOT NULL DEFAULT '',
    optional_template TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS placements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    placeholder TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    plugin_type TEXT NOT NULL,
    plugin_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS media (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Entries ---

// SaveEntry inserts e when e.ID is zero and updates it otherwise. The
// entry's translations and tags replace the stored ones. Tags are
// normalized to lowercase.
func (s *Store) SaveEntry(ctx context.Context, e *Entry) error {
	if strings.TrimSpace(e.Slug) == "" {
		return fmt.Errorf("save entry: slug is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if e.ID == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entries (slug, pub_date, is_published, author, image) VALUES (?, ?, ?, ?, ?)`,
			e.Slug, formatDate(e.PubDate), boolInt(e.Published), e.Author, e.Image)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE entries SET slug = ?, pub_date = ?, is_published = ?, author = ?, image = ? WHERE id = ?`,
			e.Slug, formatDate(e.PubDate), boolInt(e.Published), e.Author, e.Image, e.ID)
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_titles WHERE entry_id = ?`, e.ID); err != nil {
		return err
	}
	for _, t := range e.Translations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_titles (entry_id, language, title, excerpt, content) VALUES (?, ?, ?, ?, ?)`,
			e.ID, t.Language, t.Title, t.Excerpt, t.Content); err != nil {
			return fmt.Errorf("insert translation %s: %w", t.Language, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tagged_items WHERE entry_id = ?`, e.ID); err != nil {
		return err
	}
	e.Tags = tagging.NormalizeAll(e.Tags)
	for _, name := range e.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert tag %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tagged_items (tag_id, entry_id) SELECT id, ? FROM tags WHERE name = ?`,
			e.ID, name); err != nil {
			return fmt.Errorf("tag entry %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// GetEntry returns an entry by ID regardless of its published status.
func (s *Store) GetEntry(ctx context.Context, id int64) (Entry, error) {
	entries, err := s.queryEntries(ctx, `WHERE e.id = ?`, id)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// GetEntryBySlug returns an entry by slug regardless of its published status.
func (s *Store) GetEntryBySlug(ctx context.Context, slug string) (Entry, error) {
	entries, err := s.queryEntries(ctx, `WHERE e.slug = ?`, slug)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// ListEntries returns every entry (published and drafts), newest first.
func (s *Store) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, ``)
}

// ListPublishedFlag returns entries marked published, including those
// scheduled for later, newest first.
func (s *Store) ListPublishedFlag(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, `WHERE e.is_published = 1`)
}

// PublishedEntries returns entries marked published with a publication
// date not after now, newest first.
func (s *Store) PublishedEntries(ctx context.Context, now time.Time) ([]Entry, error) {
	return s.queryEntries(ctx, `WHERE e.is_published = 1 AND e.pub_date <= ?`, formatDate(now))
}

// DeleteEntry removes an entry with its translations and tag links.
func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM entry_titles WHERE entry_id = ?`,
		`DELETE FROM tagged_items WHERE entry_id = ?`,
		`DELETE FROM entries WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) queryEntries(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.slug, e.pub_date, e.is_published, e.author, e.image FROM entries e `+where+
			` ORDER BY e.pub_date DESC, e.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	index := make(map[int64]int)
	for rows.Next() {
		var e Entry
		var pub string
		var published int
		if err := rows.Scan(&e.ID, &e.Slug, &pub, &published, &e.Author, &e.Image); err != nil {
			return nil, err
		}
		if e.PubDate, err = parseDate(pub); err != nil {
			return nil, fmt.Errorf("entry %d pub_date: %w", e.ID, err)
		}
		e.Published = published == 1
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	rows.Close()

	if err := s.attachTranslations(ctx, entries, index); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, entries, index); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) attachTranslations(ctx context.Context, entries []Entry, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, language, title, excerpt, content FROM entry_titles ORDER BY entry_id, language`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var t plugins.Translation
		if err := rows.Scan(&id, &t.Language, &t.Title, &t.Excerpt, &t.Content); err != nil {
			return err
		}
		if i, ok := index[id]; ok {
			entries[i].Translations = append(entries[i].Translations, t)
		}
	}
	return rows.Err()
}

func (s *Store) attachTags(ctx context.Context, entries []Entry, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ti.entry_id, t.name FROM tagged_items ti JOIN tags t ON t.id = ti.tag_id ORDER BY t.name`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		if i, ok := index[id]; ok {
			entries[i].Tags = append(entries[i].Tags, name)
		}
	}
	return rows.Err()
}

// --- Tags ---

// ListTags returns every known tag name, sorted.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ExistingTags returns the names among names that are known tags, sorted.
func (s *Store) ExistingTags(ctx context.Context, names []string) ([]string, error) {
	all, err := s.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return existingTags(all, names), nil
}

func existingTags(known, names []string) []string {
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	var out []string
	for _, n := range tagging.NormalizeAll(names) {
		if _, ok := set[n]; ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// --- Plugin instances ---

// SaveLatestEntriesPlugin inserts or updates a latest entries instance.
func (s *Store) SaveLatestEntriesPlugin(ctx context.Context, c *plugins.LatestEntriesConfig) error {
	if c.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO latest_entries_plugins (title, lim, current_language_only, tagged, paginate_by) VALUES (?, ?, ?, ?, ?)`,
			c.Title, c.Limit, boolInt(c.CurrentLanguageOnly), c.Tagged, c.PaginateBy)
		if err != nil {
			return err
		}
		c.ID, err = res.LastInsertId()
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE latest_entries_plugins SET title = ?, lim = ?, current_language_only = ?, tagged = ?, paginate_by = ? WHERE id = ?`,
		c.Title, c.Limit, boolInt(c.CurrentLanguageOnly), c.Tagged, c.PaginateBy, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLatestEntriesPlugin returns a latest entries instance by ID.
func (s *Store) GetLatestEntriesPlugin(ctx context.Context, id int64) (*plugins.LatestEntriesConfig, error) {
	c := &plugins.LatestEntriesConfig{}
	var langOnly int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, lim, current_language_only, tagged, paginate_by FROM latest_entries_plugins WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Limit, &langOnly, &c.Tagged, &c.PaginateBy)
	if err != nil {
		return nil, err
	}
	c.CurrentLanguageOnly = langOnly == 1
	return c, nil
}

// ListLatestEntriesPlugins returns all latest entries instances by ID.
func (s *Store) ListLatestEntriesPlugins(ctx context.Context) ([]*plugins.LatestEntriesConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, lim, current_language_only, tagged, paginate_by FROM latest_entries_plugins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*plugins.LatestEntriesConfig
	for rows.Next() {
		c := &plugins.LatestEntriesConfig{}
		var langOnly int
		if err := rows.Scan(&c.ID, &c.Title, &c.Limit, &langOnly, &c.Tagged, &c.PaginateBy); err != nil {
			return nil, err
		}
		c.CurrentLanguageOnly = langOnly == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveArchivePlugin inserts or updates a side menu archive instance.
func (s *Store) SaveArchivePlugin(ctx context.Context, c *plugins.ArchiveConfig) error {
	if c.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO archive_plugins (title, tagged, optional_template) VALUES (?, ?, ?)`,
			c.Title, c.Tagged, c.OptionalTemplate)
		if err != nil {
			return err
		}
		c.ID, err = res.LastInsertId()
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE archive_plugins SET title = ?, tagged = ?, optional_template = ? WHERE id = ?`,
		c.Title, c.Tagged, c.OptionalTemplate, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetArchivePlugin returns a side menu archive instance by ID.
func (s *Store) GetArchivePlugin(ctx context.Context, id int64) (*plugins.ArchiveConfig, error) {
	c := &plugins.ArchiveConfig{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, tagged, optional_template FROM archive_plugins WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Tagged, &c.OptionalTemplate)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListArchivePlugins returns all side menu archive instances by ID.
func (s *Store) ListArchivePlugins(ctx context.Context) ([]*plugins.ArchiveConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, tagged, optional_template FROM archive_plugins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*plugins.ArchiveConfig
	for rows.Next() {
		c := &plugins.ArchiveConfig{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Tagged, &c.OptionalTemplate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetInstance loads the stored configuration of any plugin type.
func (s *Store) GetInstance(ctx context.Context, typ string, id int64) (plugins.Instance, error) {
	switch typ {
	case plugins.LatestEntriesType:
		return s.GetLatestEntriesPlugin(ctx, id)
	case plugins.SideMenuType:
		return s.GetArchivePlugin(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %q", plugins.ErrUnknownPlugin, typ)
	}
}

// DeleteInstance removes a plugin instance and every placement of it.
func (s *Store) DeleteInstance(ctx context.Context, typ string, id int64) error {
	var table string
	switch typ {
	case plugins.LatestEntriesType:
		table = "latest_entries_plugins"
	case plugins.SideMenuType:
		table = "archive_plugins"
	default:
		return fmt.Errorf("%w: %q", plugins.ErrUnknownPlugin, typ)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM placements WHERE plugin_type = ? AND plugin_id = ?`, typ, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Placements ---

// SavePlacement inserts or updates a placement.
func (s *Store) SavePlacement(ctx context.Context, p *Placement) error {
	if p.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO placements (placeholder, position, plugin_type, plugin_id) VALUES (?, ?, ?, ?)`,
			p.Placeholder, p.Position, p.PluginType, p.PluginID)
		if err != nil {
			return err
		}
		p.ID, err = res.LastInsertId()
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE placements SET placeholder = ?, position = ?, plugin_type = ?, plugin_id = ? WHERE id = ?`,
		p.Placeholder, p.Position, p.PluginType, p.PluginID, p.ID)
	return err
}

// ListPlacements returns placements ordered by placeholder and position.
func (s *Store) ListPlacements(ctx context.Context) ([]Placement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, placeholder, position, plugin_type, plugin_id FROM placements ORDER BY placeholder, position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(&p.ID, &p.Placeholder, &p.Position, &p.PluginType, &p.PluginID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePlacement removes a placement by ID.
func (s *Store) DeletePlacement(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM placements WHERE id = ?`, id)
	return err
}

// --- Media ---

// SaveMedia records uploaded media metadata.
func (s *Store) SaveMedia(ctx context.Context, m Media) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO media (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Filename, m.OriginalName, m.Width, m.Height, m.Size, formatDate(m.UploadedAt))
	return err
}

// ListMedia returns uploaded media, newest first.
func (s *Store) ListMedia(ctx context.Context) ([]Media, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, original_name, width, height, size, uploaded_at FROM media ORDER BY uploaded_at DESC, filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Media
	for rows.Next() {
		var m Media
		var at string
		if err := rows.Scan(&m.Filename, &m.OriginalName, &m.Width, &m.Height, &m.Size, &at); err != nil {
			return nil, err
		}
		if m.UploadedAt, err = parseDate(at); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMedia removes media metadata. Entries still pointing at the file
// lose their image.
func (s *Store) DeleteMedia(ctx context.Context, filename string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE entries SET image = '' WHERE image = ?`, filename); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE filename = ?`, filename); err != nil {
		return err
	}
	return tx.Commit()
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
