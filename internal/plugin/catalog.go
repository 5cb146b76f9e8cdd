package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
)

// Constructor builds a plugin instance from its configured options.
type Constructor func(opts Options) (Plugin, error)

// Catalog maps plugin names to constructors, per kind.
type Catalog struct {
	mu    sync.RWMutex
	ctors map[Kind]map[string]Constructor
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ctors: map[Kind]map[string]Constructor{
		KindTransformer: {},
		KindFilter:      {},
		KindEmitter:     {},
	}}
}

// Add registers a constructor. A later Add with the same kind and name wins.
func (c *Catalog) Add(kind Kind, name string, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[kind][name] = ctor
}

// Names returns the sorted names available for kind.
func (c *Catalog) Names(kind Kind) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ctors[kind]))
	for n := range c.ctors[kind] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New instantiates the plugin described by spec.
func (c *Catalog) New(kind Kind, spec config.PluginSpec) (Plugin, error) {
	c.mu.RLock()
	ctor, ok := c.ctors[kind][spec.Name]
	c.mu.RUnlock()
	if !ok {
		return nil, derrors.ConfigError(fmt.Sprintf("unknown %s %q", kind, spec.Name)).
			WithContext(derrors.ContextPlugin, spec.Name).
			Build()
	}
	p, err := ctor(Options(spec.Options))
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, fmt.Sprintf("configure %s %q", kind, spec.Name)).
			Fatal().
			WithContext(derrors.ContextPlugin, spec.Name).
			Build()
	}
	if got := p.Descriptor().Kind; got != kind {
		return nil, derrors.ConfigError(fmt.Sprintf("plugin %q is a %s, configured as %s", spec.Name, got, kind)).Build()
	}
	return p, nil
}

// Build instantiates the configured plugin lists, in order, into a new manager.
func (c *Catalog) Build(cfg config.PluginsConfig, logger *slog.Logger) (*Manager, error) {
	m := NewManager(logger)
	groups := []struct {
		kind  Kind
		specs []config.PluginSpec
	}{
		{KindTransformer, cfg.Transformers},
		{KindFilter, cfg.Filters},
		{KindEmitter, cfg.Emitters},
	}
	for _, g := range groups {
		for _, spec := range g.specs {
			p, err := c.New(g.kind, spec)
			if err != nil {
				return nil, err
			}
			if err := m.Register(p); err != nil {
				return nil, derrors.WrapError(err, derrors.CategoryConfig, "register plugin").Fatal().Build()
			}
		}
	}
	return m, nil
}
