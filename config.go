package blogwidgets

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a site. Values come from an
// optional YAML file and are then overridden by environment variables.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/blog.db")

	AdminPassword string `yaml:"admin_password"` // Required: admin login password
	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	// Languages entries can be written in; DefaultLanguage is used when a
	// request does not ask for one of them.
	Languages       []string `yaml:"languages"`
	DefaultLanguage string   `yaml:"default_language"`

	// TemplateDir holds templates that shadow the built-in ones, e.g.
	// cmsplugin_blog/latest_entries_news.html.
	TemplateDir    string `yaml:"template_dir"`
	WatchTemplates bool   `yaml:"watch_templates"`

	// Placeholders rendered by the page layout, in order.
	Placeholders []string `yaml:"placeholders"`

	CacheTTL time.Duration `yaml:"cache_ttl"` // Entry cache TTL (default 5min)
	LogLevel string        `yaml:"log_level"` // debug, info, warn, error (default info)
	DevLog   bool          `yaml:"dev_log"`   // Human readable console logs
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{c.DefaultLanguage}
	}
	if len(c.Placeholders) == 0 {
		c.Placeholders = []string{"content", "sidebar"}
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports missing required settings.
func (c SiteConfig) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("blogwidgets: AdminPassword is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("blogwidgets: SessionSecret is required")
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("blogwidgets: log level: %w", err)
	}
	return nil
}

// public returns the settings templates may show.
func (c SiteConfig) public() map[string]any {
	return map[string]any{
		"Name":        c.Name,
		"URL":         c.URL,
		"Description": c.Description,
		"Author":      c.Author,
	}
}

// LoadConfig reads the YAML file at path, if path is not empty, applies
// environment overrides and fills in defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SITE_NAME", &c.Name)
	str("SITE_URL", &c.URL)
	str("SITE_DESCRIPTION", &c.Description)
	str("SITE_AUTHOR", &c.Author)
	str("LISTEN_ADDR", &c.Addr)
	str("DATABASE_PATH", &c.DatabasePath)
	str("ADMIN_PASSWORD", &c.AdminPassword)
	str("ADMIN_SESSION_SECRET", &c.SessionSecret)
	str("TEMPLATE_DIR", &c.TemplateDir)
	str("DEFAULT_LANGUAGE", &c.DefaultLanguage)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("LANGUAGES"); ok && v != "" {
		c.Languages = FilterEmpty(strings.Split(v, ","))
	}
	if v, ok := lookup("COOKIE_SECURE"); ok && v != "" {
		c.CookieSecure = strings.EqualFold(v, "true")
	}
	if v, ok := lookup("WATCH_TEMPLATES"); ok && v != "" {
		c.WatchTemplates = strings.EqualFold(v, "true")
	}
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	if v, ok := lookup("DEV_LOG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEV_LOG: %w", err)
		}
		c.DevLog = b
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}
