// Package registry maps device types to backend factories.
package registry

import (
	"sync"

	"github.com/born-ml/denoise/internal/config"
	"github.com/born-ml/denoise/internal/core"
)

// Factory creates devices of one type.
type Factory struct {
	// New creates an uncommitted device.
	New func(cfg *config.Config) (core.Device, error)
	// IsSupported reports whether the backend can run on this machine.
	IsSupported func() bool
}

var (
	registryMu sync.RWMutex
	factories  = make(map[core.DeviceType]Factory)
	// Priority order for the default device (first supported wins).
	priority = []core.DeviceType{core.DeviceWebGPU, core.DeviceOpenCL, core.DeviceCPU}
)

// Register registers a factory for typ.
// This is typically called from init() functions in backend packages.
// If a factory for typ is already registered, it will be replaced.
func Register(typ core.DeviceType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[typ] = f
}

// Unregister removes a factory from the registry.
// This is useful for testing.
func Unregister(typ core.DeviceType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, typ)
}

// Available returns the registered device types in priority order.
func Available() []core.DeviceType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]core.DeviceType, 0, len(factories))
	for _, typ := range priority {
		if _, ok := factories[typ]; ok {
			types = append(types, typ)
		}
	}
	return types
}

// New creates a device of the given type. DeviceDefault picks the first
// supported backend in priority order.
func New(typ core.DeviceType, cfg *config.Config) (core.Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if typ == core.DeviceDefault {
		for _, t := range priority {
			f, ok := factories[t]
			if !ok || (f.IsSupported != nil && !f.IsSupported()) {
				continue
			}
			core.Logger().Debug("selected default device", "type", t.String())
			return f.New(cfg)
		}
		return nil, core.Errorf(core.UnsupportedHardware, "no supported device found")
	}

	f, ok := factories[typ]
	if !ok {
		return nil, core.Errorf(core.InvalidArgument, "unsupported device type")
	}
	return f.New(cfg)
}
