package blogwidgets

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/blogwidgets/markdown"
	"github.com/eringen/blogwidgets/plugins"
)

func (a *App) handleHome(c echo.Context) error {
	req := a.pluginRequest(c)
	meta := PageMeta{
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		OGType:      "website",
	}
	return a.renderPage(c, req, meta, WebsiteJsonLD(a.Config))
}

// handleEntry renders the page with latest entries instances switched to
// detail mode for the entry.
func (a *App) handleEntry(c echo.Context) error {
	slug := c.Param("slug")
	ctx := c.Request().Context()
	entry, err := a.Cache.GetPublished(ctx, slug, a.now())
	if err != nil {
		return err
	}
	req := a.pluginRequest(c)
	req.Query.Set("entry", slug)

	tr := entry.TranslationFor(req.Language, req.DefaultLanguage)
	desc := tr.Excerpt
	if desc == "" {
		desc = markdown.Excerpt(tr.Content, 160)
	}
	meta := PageMeta{
		Title:       tr.Title,
		Description: desc,
		URL:         BuildURL(a.Config.URL, "blog", entry.Slug),
		OGType:      "article",
	}
	return a.renderPage(c, req, meta, EntryJsonLD(entry, tr, a.Config))
}

// handlePlugin renders a single plugin instance as an HTML fragment, for
// HTMX pagination and embedding.
func (a *App) handlePlugin(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	inst, err := a.Store.GetInstance(ctx, c.Param("type"), id)
	if err != nil {
		return err
	}
	placeholder := c.QueryParam("placeholder")
	cmp, err := a.RenderInstance(ctx, a.pluginRequest(c), inst, placeholder)
	if err != nil {
		return err
	}
	return Render(c, cmp)
}

func (a *App) handleSitemap(c echo.Context) error {
	entries, err := a.Cache.PublishedEntries(c.Request().Context(), a.now())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, entries)
}

func (a *App) handleFeed(c echo.Context) error {
	entries, err := a.Cache.PublishedEntries(c.Request().Context(), a.now())
	if err != nil {
		return err
	}
	return a.renderRSS(c, entries)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleSiteCSS(c echo.Context) error {
	b, err := fs.ReadFile(EmbeddedAssets, "embedded/site.css")
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", b)
}

// handleRobots serves robots.txt from the static dir, or a permissive
// default pointing at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	body := "User-agent: *\nDisallow: /admin/\n\nSitemap: " + a.Config.URL + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := ""
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	case errors.Is(err, plugins.ErrInvalidArchiveDate):
		code = http.StatusBadRequest
		message = err.Error()
	case IsNotFound(err), errors.Is(err, plugins.ErrUnknownPlugin):
		code = http.StatusNotFound
	}

	var page string
	switch {
	case code == http.StatusNotFound:
		page = "errors/404.html"
	case code == http.StatusBadRequest:
		page = "errors/400.html"
	case code >= 500:
		a.Logger.Error("server error",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI))
		page = "errors/500.html"
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	if rerr := RenderStatus(c, code, a.view(map[string]any{"message": message}, page)); rerr != nil {
		a.Logger.Error("render error page", zap.String("template", page), zap.Error(rerr))
		_ = c.String(code, http.StatusText(code))
	}
}
