// Package cpu implements the host CPU device: heap, shared and imported
// external buffers, an in-order task queue and row-parallel kernels.
package cpu

import (
	"runtime"

	"github.com/born-ml/denoise/internal/config"
	"github.com/born-ml/denoise/internal/core"
	"github.com/born-ml/denoise/internal/parallel"
	"github.com/born-ml/denoise/internal/registry"
)

func init() {
	registry.Register(core.DeviceCPU, registry.Factory{
		New: func(cfg *config.Config) (core.Device, error) {
			return New(cfg), nil
		},
		IsSupported: func() bool { return true },
	})
}

// Device is the CPU device.
type Device struct {
	core.DeviceBase

	engine      *Engine
	numThreads  int
	setAffinity bool
}

// New creates an uncommitted CPU device with defaults from cfg.
func New(cfg *config.Config) *Device {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	d := &Device{
		numThreads:  cfg.NumThreads,
		setAffinity: cfg.SetAffinity,
	}
	d.InitBase(core.DeviceCPU, externalMemoryTypes, cfg.Verbose)
	core.Logger().Info("created device", "type", core.DeviceCPU.String())
	return d
}

// Device implements core.Object.
func (d *Device) Device() core.Device {
	return d
}

// Engine returns the engine, or nil before Commit.
func (d *Device) Engine() core.Engine {
	if d.engine == nil {
		return nil
	}
	return d.engine
}

// Commit finalizes the configuration and creates the engine.
func (d *Device) Commit() error {
	if d.IsCommitted() {
		return core.Errorf(core.InvalidOperation, "device can be committed only once")
	}

	threads := d.numThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = threads
	cfg.Enabled = threads > 1
	cfg.LockThreads = d.setAffinity

	d.engine = newEngine(d, cfg)
	d.MarkCommitted()

	core.Logger().Info("committed device",
		"type", core.DeviceCPU.String(),
		"numThreads", threads,
		"setAffinity", d.setAffinity)
	return nil
}

// Wait blocks until all work queued on the device has completed.
func (d *Device) Wait() error {
	if d.engine == nil {
		return nil
	}
	return d.engine.Wait()
}

// Destroy implements core.Object. The device has been drained already.
func (d *Device) Destroy() error {
	core.Logger().Debug("destroyed device", "type", core.DeviceCPU.String())
	d.engine = nil
	return nil
}

// GetInt returns a device parameter.
func (d *Device) GetInt(name string) (int, error) {
	switch name {
	case "numThreads":
		return d.numThreads, nil
	case "setAffinity":
		return boolToInt(d.setAffinity), nil
	default:
		return d.DeviceBase.GetInt(name)
	}
}

// SetInt sets a device parameter. Threading parameters can only be changed
// before Commit.
func (d *Device) SetInt(name string, value int) error {
	switch name {
	case "numThreads", "setAffinity":
		if d.IsCommitted() {
			return core.Errorf(core.InvalidOperation, "device parameter '%s' cannot be changed after commit", name)
		}
		if name == "numThreads" {
			d.numThreads = value
		} else {
			d.setAffinity = value != 0
		}
		return nil
	default:
		return d.DeviceBase.SetInt(name, value)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
