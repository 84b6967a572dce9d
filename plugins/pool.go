package plugins

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Pool is a registry of plugins keyed by type.
type Pool struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{plugins: make(map[string]Plugin)}
}

// DefaultPool returns a pool with the latest entries and side menu plugins
// registered against src.
func DefaultPool(src Source) *Pool {
	p := NewPool()
	p.MustRegister(NewLatestEntries(src))
	p.MustRegister(NewSideMenu(src))
	return p
}

// Register adds a plugin. Registering the same type twice is an error.
func (p *Pool) Register(pl Plugin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.plugins[pl.Type()]; ok {
		return errors.Errorf("plugin %q already registered", pl.Type())
	}
	p.plugins[pl.Type()] = pl
	return nil
}

// MustRegister is like Register but panics on error.
func (p *Pool) MustRegister(pl Plugin) {
	if err := p.Register(pl); err != nil {
		panic(err)
	}
}

// Get returns the plugin registered for typ.
func (p *Pool) Get(typ string) (Plugin, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pl, ok := p.plugins[typ]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlugin, "%q", typ)
	}
	return pl, nil
}

// Types returns the registered plugin types, sorted.
func (p *Pool) Types() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.plugins))
	for t := range p.plugins {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Render looks up the plugin for inst and renders it.
func (p *Pool) Render(ctx context.Context, req Request, inst Instance, placeholder string) (Result, error) {
	pl, err := p.Get(inst.PluginType())
	if err != nil {
		return Result{}, err
	}
	return pl.Render(ctx, req, inst, placeholder)
}
