// Package factory instantiates generators by name on top of a registry,
// optionally caching one instance per name.
package factory

import (
	"log/slog"
	"sync"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
)

// Factory creates generator instances. The cache is guarded by a mutex held
// across the read-check-insert sequence, so concurrent cached calls for one
// name construct at most once.
type Factory struct {
	reg    *registry.Registry
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*plugin.Instance
}

// New creates a Factory backed by reg.
func New(reg *registry.Registry, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		reg:    reg,
		logger: logger,
		cache:  make(map[string]*plugin.Instance),
	}
}

// Create returns an instance of the named generator. The boolean is false
// iff name is unregistered or its constructor fails. With cached set, an
// existing instance is returned unchanged; otherwise a new one is built and
// stored. Uncached calls never read or write the cache.
func (f *Factory) Create(name string, cached bool) (*plugin.Instance, bool) {
	d, ok := f.reg.Metadata(name)
	if !ok {
		return nil, false
	}

	if !cached {
		return f.build(d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if inst, ok := f.cache[name]; ok {
		return inst, true
	}
	inst, ok := f.build(d)
	if !ok {
		return nil, false
	}
	f.cache[name] = inst
	return inst, true
}

func (f *Factory) build(d registry.Descriptor) (*plugin.Instance, bool) {
	inst, err := d.Constructor.New()
	if err != nil {
		f.logger.Error("generator construction failed", "generator", d.Name, "error", err)
		return nil, false
	}
	return inst, true
}

// ConfigKey returns the configuration key of the named generator.
func (f *Factory) ConfigKey(name string) (string, bool) {
	d, ok := f.reg.Metadata(name)
	if !ok {
		return "", false
	}
	return d.ConfigKey, true
}

// Metadata returns the descriptor of the named generator.
func (f *Factory) Metadata(name string) (registry.Descriptor, bool) {
	return f.reg.Metadata(name)
}

// ListNames lists registered names, optionally filtered by category.
func (f *Factory) ListNames(category string) []string {
	return f.reg.ListNames(category)
}

// ListCategories lists the registered categories, sorted.
func (f *Factory) ListCategories() []string {
	return f.reg.ListCategories()
}

// ClearCache drops every cached instance. The registry is unaffected.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]*plugin.Instance)
}

// Len returns the number of cached instances.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}
