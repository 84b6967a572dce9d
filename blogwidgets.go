// Package blogwidgets serves a small multilingual blog whose pages are
// assembled from plugin instances: a latest entries listing and a side
// menu archive, placed into the placeholders of a page layout.
//
// Plugin and page markup lives in Django-syntax templates that a site can
// shadow from a directory on disk; blogwidgets handles the handler logic,
// middleware, admin and database operations.
package blogwidgets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/blogwidgets/i18n"
	"github.com/eringen/blogwidgets/plugins"
	"github.com/eringen/blogwidgets/templates"
)

// App is the central application. It wires together the store, cache,
// plugin pool, templates, handlers and middleware.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Cache     *EntryCache
	Pool      *plugins.Pool
	Templates *templates.Engine
	Languages *i18n.Negotiator
	Logger    *zap.Logger

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
	clock        func() time.Time
	stopWatch    context.CancelFunc
	ready        bool
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
		clock:     time.Now,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open initializes the logger, database, cache, plugin pool and templates.
// It is enough for rendering plugin instances without serving HTTP.
func (a *App) Open() error {
	if a.Logger == nil {
		l, err := NewLogger(a.Config)
		if err != nil {
			return fmt.Errorf("blogwidgets: logger: %w", err)
		}
		a.Logger = l
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("blogwidgets: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewEntryCache(a.Store, a.Config.CacheTTL)
	a.Pool = plugins.DefaultPool(a.Cache)
	a.Languages = i18n.NewNegotiator(a.Config.Languages, a.Config.DefaultLanguage)

	tplOpts := []templates.Option{templates.WithGlobals(map[string]any{
		"site": a.Config.public(),
	})}
	if a.Config.TemplateDir != "" {
		tplOpts = append(tplOpts, templates.WithOverrideDir(a.Config.TemplateDir))
	}
	a.Templates, err = templates.New(tplOpts...)
	if err != nil {
		a.Store.Close()
		a.Store = nil
		return fmt.Errorf("blogwidgets: init templates: %w", err)
	}

	if a.Config.WatchTemplates && a.Templates.OverrideDir() != "" {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopWatch = cancel
		go func() {
			err := a.Templates.Watch(ctx, func(path string) {
				a.Logger.Debug("template changed", zap.String("path", path))
			})
			if err != nil {
				a.Logger.Error("template watcher stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

// Setup validates the configuration, opens resources and registers
// middleware and routes. Tests drive a.Echo directly after Setup.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if err := a.Open(); err != nil {
		return err
	}
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the app up and starts the server.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("url", a.Config.URL))
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/public/site.css", a.handleSiteCSS)
	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handleEntry)
	e.GET("/plugins/:type/:id/", a.handlePlugin)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", requireAdmin)
	admin.GET("/entries/new/", a.handleAdminEntryNew)
	admin.GET("/entries/:id/", a.handleAdminEntry)
	admin.POST("/entries/", a.handleAdminEntrySave)
	admin.POST("/entries/:id/delete/", a.handleAdminEntryDelete)
	admin.GET("/plugins/", a.handleAdminPlugins)
	admin.GET("/plugins/:type/:id/", a.handleAdminPluginEdit)
	admin.POST("/plugins/:type/", a.handleAdminPluginSave)
	admin.POST("/plugins/:type/:id/delete/", a.handleAdminPluginDelete)
	admin.POST("/placements/", a.handleAdminPlacementSave)
	admin.POST("/placements/:id/delete/", a.handleAdminPlacementDelete)
	admin.GET("/media/", a.handleMediaList)
	admin.POST("/media/upload/", a.handleMediaUpload)
	admin.POST("/media/:filename/delete/", a.handleMediaDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}

func (a *App) now() time.Time {
	return a.clock()
}
