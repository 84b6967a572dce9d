package blogwidgets

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/blogwidgets/i18n"
	"github.com/eringen/blogwidgets/plugins"
)

const layoutTemplate = "base.html"

// pluginRequest builds the plugin view of an HTTP request. The query is
// copied so handlers can add parameters without touching Echo's cache.
func (a *App) pluginRequest(c echo.Context) plugins.Request {
	q := url.Values{}
	for k, v := range c.QueryParams() {
		q[k] = append([]string(nil), v...)
	}
	return plugins.Request{
		Query:           q,
		Language:        a.language(c),
		DefaultLanguage: a.Languages.Fallback(),
		Now:             a.now(),
	}
}

// language negotiates the request language and remembers an explicit
// choice in the language cookie.
func (a *App) language(c echo.Context) string {
	lang := a.Languages.FromRequest(c.Request())
	if c.QueryParam("language") == lang {
		// The response carries a per-visitor cookie.
		c.Response().Header().Set("Cache-Control", "private, no-store")
		c.SetCookie(&http.Cookie{
			Name:     i18n.CookieName,
			Value:    lang,
			Path:     "/",
			MaxAge:   365 * 24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   a.Config.CookieSecure,
		})
	}
	return lang
}

// RenderInstance renders one plugin instance with the first existing
// template among those the plugin asked for.
func (a *App) RenderInstance(ctx context.Context, req plugins.Request, inst plugins.Instance, placeholder string) (templ.Component, error) {
	res, err := a.Pool.Render(ctx, req, inst, placeholder)
	if err != nil {
		return nil, err
	}
	name, err := a.Templates.Select(res.Templates...)
	if err != nil {
		return nil, err
	}
	if name != res.Template() {
		a.Logger.Debug("template fallback",
			zap.String("plugin", inst.PluginType()),
			zap.Int64("instance", inst.InstanceID()),
			zap.String("wanted", res.Template()),
			zap.String("using", name))
	}
	return a.Templates.Component([]string{name}, res.Context), nil
}

// renderPlaceholders renders every placement into its placeholder, in
// position order. Placements of missing instances or unregistered plugin
// types are skipped.
func (a *App) renderPlaceholders(ctx context.Context, req plugins.Request) (map[string]string, error) {
	placements, err := a.Store.ListPlacements(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(a.Config.Placeholders))
	out := make(map[string]string, len(a.Config.Placeholders))
	for _, name := range a.Config.Placeholders {
		known[name] = true
		out[name] = ""
	}

	bufs := make(map[string]*bytes.Buffer)
	for _, p := range placements {
		if !known[p.Placeholder] {
			continue
		}
		inst, err := a.Store.GetInstance(ctx, p.PluginType, p.PluginID)
		if err != nil {
			if IsNotFound(err) || errors.Is(err, plugins.ErrUnknownPlugin) {
				a.Logger.Warn("skipping placement",
					zap.Int64("placement", p.ID),
					zap.String("plugin", p.PluginType),
					zap.Int64("instance", p.PluginID),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		cmp, err := a.RenderInstance(ctx, req, inst, p.Placeholder)
		if err != nil {
			return nil, err
		}
		buf := bufs[p.Placeholder]
		if buf == nil {
			buf = &bytes.Buffer{}
			bufs[p.Placeholder] = buf
		}
		if err := cmp.Render(ctx, buf); err != nil {
			return nil, err
		}
	}
	for name, buf := range bufs {
		out[name] = buf.String()
	}
	return out, nil
}

// renderPage renders the page layout with every placeholder filled.
func (a *App) renderPage(c echo.Context, req plugins.Request, meta PageMeta, jsonld string) error {
	placeholders, err := a.renderPlaceholders(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return Render(c, a.view(map[string]any{
		"meta":         meta,
		"language":     req.Language,
		"languages":    a.Languages.Supported(),
		"placeholders": placeholders,
		"jsonld":       jsonld,
	}, layoutTemplate))
}
