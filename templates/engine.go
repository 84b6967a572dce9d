// Package templates loads and renders the Django-syntax templates used by
// the plugins and pages. Templates are looked up in an optional override
// directory first and in the embedded defaults second.
package templates

import (
	"bytes"
	"context"
	"embed"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/flosch/pongo2/v6"
	"github.com/pkg/errors"

	"github.com/eringen/blogwidgets/markdown"
)

//go:embed all:defaults
var defaults embed.FS

// ErrNoTemplate is returned when none of the candidate templates exist.
var ErrNoTemplate = errors.New("no template found")

// Engine renders named templates.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	sources   []fs.FS
	overrides string
	globals   pongo2.Context
	compiled  map[string]*pongo2.Template
}

// Option configures an Engine.
type Option func(*Engine)

// WithOverrideDir adds a directory whose templates shadow the defaults.
func WithOverrideDir(dir string) Option {
	return func(e *Engine) {
		e.overrides = strings.TrimSpace(dir)
	}
}

// WithGlobals seeds values visible in every template.
func WithGlobals(globals map[string]any) Option {
	return func(e *Engine) {
		e.globals.Update(pongo2.Context(globals))
	}
}

// Defaults returns the built-in templates.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// New builds an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		compiled: make(map[string]*pongo2.Template),
		globals:  pongo2.Context{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.overrides != "" {
		info, err := os.Stat(e.overrides)
		if err != nil {
			return nil, errors.Wrapf(err, "templates: override dir %q", e.overrides)
		}
		if !info.IsDir() {
			return nil, errors.Errorf("templates: override dir %q is not a directory", e.overrides)
		}
		e.sources = append(e.sources, os.DirFS(e.overrides))
	}
	e.sources = append(e.sources, Defaults())

	loaders := make([]pongo2.TemplateLoader, 0, len(e.sources))
	for _, src := range e.sources {
		loaders = append(loaders, pongo2.NewFSLoader(src))
	}
	e.set = pongo2.NewSet("blogwidgets", loaders...)
	e.set.Globals = e.globals
	registerFilters()
	return e, nil
}

// OverrideDir returns the override directory, if any.
func (e *Engine) OverrideDir() string {
	return e.overrides
}

// Exists reports whether a template named name can be loaded.
func (e *Engine) Exists(name string) bool {
	if name == "" {
		return false
	}
	for _, src := range e.sources {
		if info, err := fs.Stat(src, name); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// Select returns the first existing template among names.
func (e *Engine) Select(names ...string) (string, error) {
	for _, n := range names {
		if e.Exists(n) {
			return n, nil
		}
	}
	return "", errors.Wrapf(ErrNoTemplate, "tried %s", strings.Join(names, ", "))
}

// Render executes the template name with data into w.
func (e *Engine) Render(w io.Writer, name string, data map[string]any) error {
	tpl, err := e.template(name)
	if err != nil {
		return err
	}
	if err := tpl.ExecuteWriter(pongo2.Context(data), w); err != nil {
		return errors.Wrapf(err, "templates: execute %q", name)
	}
	return nil
}

// RenderString is Render into a string.
func (e *Engine) RenderString(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Component wraps the first existing template of names as a templ
// component. The template is chosen when the component renders.
func (e *Engine) Component(names []string, data map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name, err := e.Select(names...)
		if err != nil {
			return err
		}
		return e.Render(w, name, data)
	})
}

// Reset drops every compiled template so the next render reads from disk.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.compiled = make(map[string]*pongo2.Template)
	e.mu.Unlock()
}

func (e *Engine) template(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tpl, ok := e.compiled[name]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tpl, ok := e.compiled[name]; ok {
		return tpl, nil
	}
	if !e.Exists(name) {
		return nil, errors.Wrapf(ErrNoTemplate, "%q", name)
	}
	// The set keeps its own cache keyed by name; a fresh string read
	// keeps Reset effective for edited files.
	src, err := e.read(name)
	if err != nil {
		return nil, err
	}
	tpl, err = e.set.FromBytes(src)
	if err != nil {
		return nil, errors.Wrapf(err, "templates: parse %q", name)
	}
	e.compiled[name] = tpl
	return tpl, nil
}

func (e *Engine) read(name string) ([]byte, error) {
	for _, src := range e.sources {
		b, err := fs.ReadFile(src, name)
		if err == nil {
			return b, nil
		}
	}
	return nil, errors.Wrapf(ErrNoTemplate, "%q", name)
}

var filtersOnce sync.Once

func registerFilters() {
	filtersOnce.Do(func() {
		register := func(name string, fn pongo2.FilterFunction) {
			if !pongo2.FilterExists(name) {
				_ = pongo2.RegisterFilter(name, fn)
			}
		}
		register("markdown", filterMarkdown)
		register("naturalsize", filterNaturalSize)
		register("naturaltime", filterNaturalTime)
		register("isodate", filterISODate)
	})
}

func filterMarkdown(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(markdown.HTML(in.String())), nil
}

func filterNaturalSize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Integer() < 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(humanize.Bytes(uint64(in.Integer()))), nil
}

func filterNaturalTime(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t, ok := in.Interface().(time.Time)
	if !ok || t.IsZero() {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(humanize.Time(t)), nil
}

func filterISODate(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t, ok := in.Interface().(time.Time)
	if !ok || t.IsZero() {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(t.Format("2006-01-02")), nil
}
