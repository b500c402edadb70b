package filter

import (
	"slices"
	"sync"

	"github.com/born-ml/denoise/internal/core"
)

// Constructor creates a filter bound to dev.
type Constructor func(dev core.Device) (core.Filter, error)

// Registry maps filter type names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates a registry with all built-in filters.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
	}
	r.Register("copy", NewCopy)
	return r
}

// Register adds or replaces a filter type.
func (r *Registry) Register(typ string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[typ] = c
}

// Get returns the constructor for typ.
func (r *Registry) Get(typ string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[typ]
	return c, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.constructors))
	for typ := range r.constructors {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}

// New creates a filter of type typ on a committed device.
func (r *Registry) New(dev core.Device, typ string) (core.Filter, error) {
	if err := dev.CheckCommitted(); err != nil {
		return nil, err
	}
	c, ok := r.Get(typ)
	if !ok {
		return nil, core.Errorf(core.InvalidArgument, "unknown filter type: '%s'", typ)
	}
	f, err := c(dev)
	if err != nil {
		return nil, err
	}
	core.Logger().Debug("created filter", "type", typ, "device", dev.Type().String())
	return f, nil
}

var defaultRegistry = NewRegistry()

// New creates a filter from the default registry.
func New(dev core.Device, typ string) (core.Filter, error) {
	return defaultRegistry.New(dev, typ)
}

// Types lists the filter types of the default registry.
func Types() []string {
	return defaultRegistry.Types()
}
