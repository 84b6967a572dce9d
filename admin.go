package blogwidgets

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/blogwidgets/i18n"
	"github.com/eringen/blogwidgets/plugins"
	"github.com/eringen/blogwidgets/tagging"
)

// Accepted publication date layouts, from the datetime-local input first.
var pubDateLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// entryRow is one line of the dashboard entry table.
type entryRow struct {
	ID      int64
	Slug    string
	URL     string
	Title   string
	PubDate time.Time
	Tags    []string
	Draft   bool
}

// pluginChoice names a registered plugin type in the admin forms.
type pluginChoice struct {
	Type string
	Name string
}

// translationForm is one language's fields of the entry form.
type translationForm struct {
	Language string
	Title    string
	Excerpt  string
	Content  string
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return a.renderAdminLogin(c, http.StatusOK, false)
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Logger.Warn("failed admin login", zap.String("ip", ip))
	return a.renderAdminLogin(c, http.StatusUnauthorized, true)
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) renderAdminLogin(c echo.Context, code int, failed bool) error {
	return RenderStatus(c, code, a.view(map[string]any{
		"failed":   failed,
		"hide_nav": true,
		"csrf":     CsrfToken(c),
	}, "admin/login.html"))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	entries, err := a.Store.ListEntries(c.Request().Context())
	if err != nil {
		return err
	}
	lang := a.Languages.Fallback()
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		tr := e.TranslationFor(lang, lang)
		rows = append(rows, entryRow{
			ID:      e.ID,
			Slug:    e.Slug,
			URL:     e.Link(),
			Title:   tr.Title,
			PubDate: e.PubDate,
			Tags:    e.Tags,
			Draft:   !e.IsPublished(a.now()),
		})
	}
	return Render(c, a.view(map[string]any{
		"entries": rows,
		"message": msg,
		"csrf":    CsrfToken(c),
	}, "admin/dashboard.html"))
}

// --- Entries ---

func (a *App) handleAdminEntryNew(c echo.Context) error {
	return a.renderEntryForm(c, Entry{PubDate: a.now().UTC()}, "")
}

func (a *App) handleAdminEntry(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	e, err := a.Store.GetEntry(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return a.renderEntryForm(c, e, "")
}

func (a *App) renderEntryForm(c echo.Context, e Entry, msg string) error {
	media, err := a.Store.ListMedia(c.Request().Context())
	if err != nil {
		return err
	}
	forms := make([]translationForm, 0, len(a.Languages.Supported()))
	for _, lang := range a.Languages.Supported() {
		f := translationForm{Language: lang}
		for _, t := range e.Translations {
			if t.Language == lang {
				f.Title, f.Excerpt, f.Content = t.Title, t.Excerpt, t.Content
			}
		}
		forms = append(forms, f)
	}
	code := http.StatusOK
	if msg != "" {
		code = http.StatusBadRequest
	}
	return RenderStatus(c, code, a.view(map[string]any{
		"entry":        e,
		"pub_date":     e.PubDate.UTC().Format(pubDateLayouts[0]),
		"tags":         tagging.EditString(e.Tags),
		"translations": forms,
		"media":        media,
		"message":      msg,
		"csrf":         CsrfToken(c),
	}, "admin/entry_form.html"))
}

// entryFromForm reads the entry form. The returned message is non-empty
// when the input is invalid.
func (a *App) entryFromForm(c echo.Context) (Entry, string) {
	var e Entry
	if v := strings.TrimSpace(c.FormValue("id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return e, "Invalid entry id."
		}
		e.ID = id
	}
	e.Author = strings.TrimSpace(c.FormValue("author"))
	e.Image = strings.TrimSpace(c.FormValue("image"))
	e.Published = c.FormValue("published") != ""
	e.Tags = tagging.ParseTagInput(c.FormValue("tags"))

	for _, lang := range a.Languages.Supported() {
		title := strings.TrimSpace(c.FormValue("title_" + lang))
		if title == "" {
			continue
		}
		e.Translations = append(e.Translations, plugins.Translation{
			Language: lang,
			Title:    title,
			Excerpt:  strings.TrimSpace(c.FormValue("excerpt_" + lang)),
			Content:  c.FormValue("content_" + lang),
		})
	}

	e.PubDate = a.now().UTC().Truncate(time.Minute)
	if v := strings.TrimSpace(c.FormValue("pub_date")); v != "" {
		d, ok := parsePubDate(v)
		if !ok {
			return e, "Invalid publication date. Use YYYY-MM-DD or YYYY-MM-DDTHH:MM."
		}
		e.PubDate = d
	}
	if len(e.Translations) == 0 {
		return e, "A title in at least one language is required."
	}

	e.Slug = Slugify(c.FormValue("slug"))
	if e.Slug == "" {
		e.Slug = Slugify(e.TranslationFor(a.Languages.Fallback(), a.Languages.Fallback()).Title)
	}
	if e.Slug == "" {
		return e, "Slug is required. Add a title or slug."
	}
	if e.Image != "" && !validMediaName(e.Image) {
		return e, "Invalid image."
	}
	return e, ""
}

func parsePubDate(v string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d.UTC(), true
		}
	}
	return time.Time{}, false
}

func (a *App) handleAdminEntrySave(c echo.Context) error {
	ctx := c.Request().Context()
	e, msg := a.entryFromForm(c)
	if msg != "" {
		return a.renderEntryForm(c, e, msg)
	}
	if other, err := a.Store.GetEntryBySlug(ctx, e.Slug); err == nil && other.ID != e.ID {
		return a.renderEntryForm(c, e, fmt.Sprintf("Slug %q is already used by another entry.", e.Slug))
	} else if err != nil && !IsNotFound(err) {
		return err
	}
	if err := a.Store.SaveEntry(ctx, &e); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Logger.Info("entry saved", zap.Int64("id", e.ID), zap.String("slug", e.Slug))
	return redirectWithMessage(c, "/admin/", "Entry saved.")
}

func (a *App) handleAdminEntryDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	if err := a.Store.DeleteEntry(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Logger.Info("entry deleted", zap.Int64("id", id))
	return redirectWithMessage(c, "/admin/", "Entry deleted.")
}

// --- Plugin instances and placements ---

func (a *App) handleAdminPlugins(c echo.Context) error {
	return a.renderAdminPlugins(c, nil, c.QueryParam("msg"))
}

func (a *App) handleAdminPluginEdit(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	inst, err := a.Store.GetInstance(c.Request().Context(), c.Param("type"), id)
	if err != nil {
		return err
	}
	return a.renderAdminPlugins(c, inst, "")
}

func (a *App) renderAdminPlugins(c echo.Context, editing plugins.Instance, msg string) error {
	ctx := c.Request().Context()
	latest, err := a.Store.ListLatestEntriesPlugins(ctx)
	if err != nil {
		return err
	}
	archives, err := a.Store.ListArchivePlugins(ctx)
	if err != nil {
		return err
	}
	placements, err := a.Store.ListPlacements(ctx)
	if err != nil {
		return err
	}
	lang := a.Languages.Fallback()
	var choices []pluginChoice
	for _, typ := range a.Pool.Types() {
		if pl, err := a.Pool.Get(typ); err == nil {
			choices = append(choices, pluginChoice{Type: typ, Name: i18n.Translate(lang, pl.Name())})
		}
	}
	editLatest := &plugins.LatestEntriesConfig{Limit: plugins.DefaultLimit}
	editArchive := &plugins.ArchiveConfig{}
	switch inst := editing.(type) {
	case *plugins.LatestEntriesConfig:
		editLatest = inst
	case *plugins.ArchiveConfig:
		editArchive = inst
	}
	return Render(c, a.view(map[string]any{
		"latest":       latest,
		"archives":     archives,
		"placements":   placements,
		"placeholders": a.Config.Placeholders,
		"plugin_types": choices,
		"edit_latest":  editLatest,
		"edit_archive": editArchive,
		"latest_type":  plugins.LatestEntriesType,
		"archive_type": plugins.SideMenuType,
		"message":      msg,
		"csrf":         CsrfToken(c),
	}, "admin/plugins.html"))
}

func formInt(c echo.Context, name string, def int) (int, error) {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number", name)
	}
	return n, nil
}

func formID(c echo.Context) (int64, error) {
	v := strings.TrimSpace(c.FormValue("id"))
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func (a *App) handleAdminPluginSave(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := formID(c)
	if err != nil {
		return redirectWithMessage(c, "/admin/plugins/", "Invalid instance id.")
	}
	title := strings.TrimSpace(c.FormValue("title"))
	tagged := strings.TrimSpace(c.FormValue("tagged"))

	switch typ := c.Param("type"); typ {
	case plugins.LatestEntriesType:
		cfg := &plugins.LatestEntriesConfig{
			ID:                  id,
			Title:               title,
			Tagged:              tagged,
			CurrentLanguageOnly: c.FormValue("current_language_only") != "",
		}
		if cfg.Limit, err = formInt(c, "limit", plugins.DefaultLimit); err != nil {
			return redirectWithMessage(c, "/admin/plugins/", err.Error())
		}
		if cfg.PaginateBy, err = formInt(c, "paginate_by", 0); err != nil {
			return redirectWithMessage(c, "/admin/plugins/", err.Error())
		}
		if err := a.Store.SaveLatestEntriesPlugin(ctx, cfg); err != nil {
			return err
		}
		id = cfg.ID
	case plugins.SideMenuType:
		cfg := &plugins.ArchiveConfig{
			ID:               id,
			Title:            title,
			Tagged:           tagged,
			OptionalTemplate: strings.TrimSpace(c.FormValue("optional_template")),
		}
		if cfg.OptionalTemplate != "" {
			clean := plugins.CleanTemplateName(cfg.OptionalTemplate)
			if clean == "" {
				return redirectWithMessage(c, "/admin/plugins/", "Invalid template name.")
			}
			if !a.Templates.Exists(clean) {
				return redirectWithMessage(c, "/admin/plugins/", fmt.Sprintf("Template %q does not exist.", clean))
			}
			cfg.OptionalTemplate = clean
		}
		if err := a.Store.SaveArchivePlugin(ctx, cfg); err != nil {
			return err
		}
		id = cfg.ID
	default:
		return echo.ErrNotFound
	}
	a.Logger.Info("plugin instance saved", zap.String("plugin", c.Param("type")), zap.Int64("id", id))
	return redirectWithMessage(c, "/admin/plugins/", "Plugin saved.")
}

func (a *App) handleAdminPluginDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	if err := a.Store.DeleteInstance(c.Request().Context(), c.Param("type"), id); err != nil {
		return err
	}
	return redirectWithMessage(c, "/admin/plugins/", "Plugin deleted.")
}

func (a *App) handleAdminPlacementSave(c echo.Context) error {
	ctx := c.Request().Context()
	p := Placement{
		Placeholder: strings.TrimSpace(c.FormValue("placeholder")),
		PluginType:  strings.TrimSpace(c.FormValue("plugin_type")),
	}
	var err error
	if p.ID, err = formID(c); err != nil {
		return redirectWithMessage(c, "/admin/plugins/", "Invalid placement id.")
	}
	if !contains(a.Config.Placeholders, p.Placeholder) {
		return redirectWithMessage(c, "/admin/plugins/", fmt.Sprintf("Unknown placeholder %q.", p.Placeholder))
	}
	if p.Position, err = formInt(c, "position", 0); err != nil {
		return redirectWithMessage(c, "/admin/plugins/", err.Error())
	}
	if p.PluginID, err = strconv.ParseInt(strings.TrimSpace(c.FormValue("plugin_id")), 10, 64); err != nil {
		return redirectWithMessage(c, "/admin/plugins/", "Invalid plugin instance.")
	}
	if _, err := a.Store.GetInstance(ctx, p.PluginType, p.PluginID); err != nil {
		return redirectWithMessage(c, "/admin/plugins/", "Plugin instance not found.")
	}
	if err := a.Store.SavePlacement(ctx, &p); err != nil {
		return err
	}
	return redirectWithMessage(c, "/admin/plugins/", "Placement saved.")
}

func (a *App) handleAdminPlacementDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	if err := a.Store.DeletePlacement(c.Request().Context(), id); err != nil {
		return err
	}
	return redirectWithMessage(c, "/admin/plugins/", "Placement removed.")
}

func redirectWithMessage(c echo.Context, path, msg string) error {
	return c.Redirect(http.StatusSeeOther, path+"?msg="+url.QueryEscape(msg))
}

func contains(vals []string, v string) bool {
	for _, s := range vals {
		if s == v {
			return true
		}
	}
	return false
}
