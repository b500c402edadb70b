//go:build opencl

// Package opencl implements an OpenCL device on go-opencl
// (github.com/passkeyra/go-opencl). Transfers are blocking, so asynchronous
// operations complete before they return. It does not run filter kernels.
package opencl

import (
	"fmt"

	"github.com/born-ml/denoise/internal/config"
	"github.com/born-ml/denoise/internal/core"
	"github.com/born-ml/denoise/internal/registry"
	"github.com/passkeyra/go-opencl/opencl"
)

func init() {
	registry.Register(core.DeviceOpenCL, registry.Factory{
		New: func(cfg *config.Config) (core.Device, error) {
			return New(cfg), nil
		},
		IsSupported: IsAvailable,
	})
}

// clError is a failure reported by the OpenCL runtime.
type clError struct {
	op  string
	err error
}

func (e *clError) Error() string {
	return fmt.Sprintf("opencl: %s: %v", e.op, e.err)
}

func (e *clError) Unwrap() error {
	return e.err
}

// OutOfMemory implements core.BackendError.
func (e *clError) OutOfMemory() bool {
	return e.op == "create buffer"
}

// Device is an OpenCL GPU device.
type Device struct {
	core.DeviceBase

	device       opencl.Device
	context      opencl.Context
	commandQueue opencl.CommandQueue

	engine *Engine
}

// New creates an uncommitted OpenCL device.
func New(cfg *config.Config) *Device {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	d := &Device{}
	d.InitBase(core.DeviceOpenCL, core.ExternalMemoryNone, cfg.Verbose)
	core.Logger().Info("created device", "type", core.DeviceOpenCL.String())
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

// Commit creates the context and command queue on the first available GPU.
func (d *Device) Commit() error {
	if d.IsCommitted() {
		return core.Errorf(core.InvalidOperation, "device can be committed only once")
	}

	device, ok := firstDevice(opencl.DeviceTypeGPU)
	if !ok {
		return core.Errorf(core.UnsupportedHardware, "no OpenCL GPU device available")
	}
	d.device = device

	var err error
	d.context, err = d.device.CreateContext()
	if err != nil {
		return &clError{op: "create context", err: err}
	}

	d.commandQueue, err = d.context.CreateCommandQueue(d.device)
	if err != nil {
		d.context.Release()
		return &clError{op: "create command queue", err: err}
	}

	d.engine = &Engine{device: d}
	d.MarkCommitted()
	core.Logger().Info("committed device", "type", core.DeviceOpenCL.String())
	return nil
}

// Wait returns immediately: all transfers are blocking.
func (d *Device) Wait() error {
	return nil
}

// Destroy releases the command queue and context.
func (d *Device) Destroy() error {
	if d.engine != nil {
		d.commandQueue.Release()
		d.context.Release()
		d.engine = nil
	}
	core.Logger().Debug("destroyed device", "type", core.DeviceOpenCL.String())
	return nil
}

// firstDevice returns the first available OpenCL device of type deviceType.
func firstDevice(deviceType opencl.DeviceType) (opencl.Device, bool) {
	platforms, err := opencl.GetPlatforms()
	if err != nil {
		return opencl.Device{}, false
	}

	for _, platform := range platforms {
		devices, err := platform.GetDevices(deviceType)
		if err != nil {
			continue
		}
		for _, device := range devices {
			var available bool
			err = device.GetInfo(opencl.DeviceAvailable, &available)
			if err == nil && available {
				return device, true
			}
		}
	}
	return opencl.Device{}, false
}

// IsAvailable reports whether an OpenCL GPU device is present.
func IsAvailable() (available bool) {
	// The ICD loader may be missing entirely.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()
	_, available = firstDevice(opencl.DeviceTypeGPU)
	return available
}
